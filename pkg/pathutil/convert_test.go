package pathutil

import (
	"runtime"
	"testing"
)

func TestToRelative(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("path separator assumptions are unix-specific")
	}

	tests := []struct {
		name     string
		absPath  string
		rootDir  string
		expected string
	}{
		{
			name:     "simple relative path",
			absPath:  "/home/user/project/src/main.go",
			rootDir:  "/home/user/project",
			expected: "src/main.go",
		},
		{
			name:     "nested relative path",
			absPath:  "/home/user/project/internal/chunking/semantic.go",
			rootDir:  "/home/user/project",
			expected: "internal/chunking/semantic.go",
		},
		{
			name:     "root level file",
			absPath:  "/home/user/project/README.md",
			rootDir:  "/home/user/project",
			expected: "README.md",
		},
		{
			name:     "same directory",
			absPath:  "/home/user/project",
			rootDir:  "/home/user/project",
			expected: ".",
		},
		{
			name:     "outside root",
			absPath:  "/other/location/file.go",
			rootDir:  "/home/user/project",
			expected: "/other/location/file.go",
		},
		{
			name:     "already relative",
			absPath:  "src/main.go",
			rootDir:  "/home/user/project",
			expected: "src/main.go",
		},
		{
			name:     "empty absPath",
			absPath:  "",
			rootDir:  "/home/user/project",
			expected: "",
		},
		{
			name:     "empty rootDir",
			absPath:  "/home/user/project/main.go",
			rootDir:  "",
			expected: "/home/user/project/main.go",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToRelative(tt.absPath, tt.rootDir)
			if got != tt.expected {
				t.Errorf("ToRelative(%q, %q) = %q, want %q", tt.absPath, tt.rootDir, got, tt.expected)
			}
		})
	}
}

func TestToAbsolute(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("path separator assumptions are unix-specific")
	}

	tests := []struct {
		name     string
		path     string
		rootDir  string
		expected string
	}{
		{
			name:     "relative joins root",
			path:     "src/main.go",
			rootDir:  "/home/user/project",
			expected: "/home/user/project/src/main.go",
		},
		{
			name:     "already absolute passes through",
			path:     "/etc/chunker.config.toml",
			rootDir:  "/home/user/project",
			expected: "/etc/chunker.config.toml",
		},
		{
			name:     "empty path",
			path:     "",
			rootDir:  "/home/user/project",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToAbsolute(tt.path, tt.rootDir)
			if got != tt.expected {
				t.Errorf("ToAbsolute(%q, %q) = %q, want %q", tt.path, tt.rootDir, got, tt.expected)
			}
		})
	}
}
