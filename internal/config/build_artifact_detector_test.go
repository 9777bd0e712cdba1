package config

import "testing"

func TestIsGeneratedFile_VendorPath(t *testing.T) {
	if !IsGeneratedFile("vendor/github.com/foo/bar.go", []byte("package bar")) {
		t.Error("expected a vendor/ path to be flagged as generated")
	}
}

func TestIsGeneratedFile_ContentMarker(t *testing.T) {
	content := []byte("// Code generated by protoc-gen-go. DO NOT EDIT.\npackage pb\n")
	if !IsGeneratedFile("internal/pb/service.pb.go", content) {
		t.Error("expected a Code generated header to be flagged as generated")
	}
}

func TestIsGeneratedFile_OrdinaryFile(t *testing.T) {
	content := []byte("package main\n\nfunc main() {}\n")
	if IsGeneratedFile("cmd/app/main.go", content) {
		t.Error("expected an ordinary source file not to be flagged as generated")
	}
}
