package processor

import (
	"testing"

	"github.com/standardbeagle/chunker/internal/config"
	"github.com/standardbeagle/chunker/internal/types"
)

func TestRegistry_Build_DefaultsOrderedByPriority(t *testing.T) {
	reg := NewRegistry()
	fb := reg.Build(nil)

	names := fb.FindProcessors("notes.md", types.LangMarkdown)
	if len(names) != 1 || names[0] != "markdown_section" {
		t.Fatalf("expected markdown_section to claim notes.md, got %v", names)
	}

	names = fb.FindProcessors("server.log", types.LangLog)
	if len(names) != 1 || names[0] != "log_level" {
		t.Fatalf("expected log_level to claim server.log, got %v", names)
	}
}

func TestRegistry_Build_HonorsDisabledOverride(t *testing.T) {
	reg := NewRegistry()
	disabled := false
	cfg := &config.Config{
		Processors: map[string]config.ProcessorConfig{
			"log_level": {Enabled: &disabled},
		},
	}

	fb := reg.Build(cfg)
	if names := fb.FindProcessors("server.log", types.LangLog); len(names) != 0 {
		t.Fatalf("expected log_level to be excluded, got %v", names)
	}
	if names := fb.FindProcessors("notes.md", types.LangMarkdown); len(names) != 1 {
		t.Fatalf("expected markdown_section to remain enabled, got %v", names)
	}
}

func TestRegistry_List_AppliesPriorityOverride(t *testing.T) {
	reg := NewRegistry()
	cfg := &config.Config{
		Processors: map[string]config.ProcessorConfig{
			"log_level": {Priority: 99},
		},
	}

	caps := reg.List(cfg)
	if caps[0].Name != "log_level" || caps[0].Priority != 99 {
		t.Fatalf("expected log_level overridden to priority 99 and sorted first, got %+v", caps)
	}
}
