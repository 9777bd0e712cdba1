package analysis

import "testing"

func TestSemanticAnalyzer_ValidationNameClassifiesAsValidation(t *testing.T) {
	tree, src := parseGo(t, "package main\n\nfunc validateInput(s string) bool {\n\treturn len(s) > 0\n}\n")
	defer tree.Close()

	fn := findKind(tree.RootNode(), "function_declaration")
	metrics, err := NewSemanticAnalyzer().Analyze(fn, src, "validateInput")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if metrics.Role != RoleValidation {
		t.Errorf("expected role %q, got %q", RoleValidation, metrics.Role)
	}
}

func TestSemanticAnalyzer_IOCallLowersPurityAndFlagsIOEffect(t *testing.T) {
	tree, src := parseGo(t, `package main

func saveRecord(r string) {
	writeToDisk(r)
}
`)
	defer tree.Close()

	fn := findKind(tree.RootNode(), "function_declaration")
	metrics, err := NewSemanticAnalyzer().Analyze(fn, src, "saveRecord")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if metrics.PurityScore >= 1.0 {
		t.Errorf("expected purity score reduced by an I/O call, got %v", metrics.PurityScore)
	}
	if metrics.IOEffects == 0 {
		t.Error("expected at least one IO effect to be observed")
	}
}

func TestSemanticAnalyzer_NoMatchingNameFallsBackToComputationOrProcedure(t *testing.T) {
	tree, src := parseGo(t, "package main\n\nfunc add(a, b int) int {\n\treturn a + b\n}\n")
	defer tree.Close()

	fn := findKind(tree.RootNode(), "function_declaration")
	metrics, err := NewSemanticAnalyzer().Analyze(fn, src, "add")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if metrics.Role != RoleComputation && metrics.Role != RoleProcedure {
		t.Errorf("expected fallback role computation or procedure, got %q", metrics.Role)
	}
}

func TestCohesion_SinglePatternIsHighlyCohesive(t *testing.T) {
	if got := cohesion(1); got != 1.0 {
		t.Errorf("expected cohesion 1.0 for a single pattern, got %v", got)
	}
}

func TestCohesion_NoPatternsIsNeutral(t *testing.T) {
	if got := cohesion(0); got != 0.5 {
		t.Errorf("expected neutral cohesion 0.5 for no patterns, got %v", got)
	}
}

func TestCohesion_MultiplePatternsReduceCohesionButNeverNegative(t *testing.T) {
	if got := cohesion(10); got < 0 {
		t.Errorf("expected cohesion floored at 0, got %v", got)
	}
}
