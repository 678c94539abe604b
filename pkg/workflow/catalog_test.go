package workflow

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalogResolvesNames(t *testing.T) {
	cat := DefaultCatalog()

	if id := cat.IDForName(StatusAbstraction); id != 4 {
		t.Fatalf("Abstraction id = %d, want 4", id)
	}
	if id := cat.IDForName("abstraction"); id != 4 {
		t.Fatalf("name resolution should be case-insensitive, got %d", id)
	}
	if id := cat.IDForName("NotAStatus"); id != 0 {
		t.Fatalf("unknown status should resolve to 0, got %d", id)
	}
}

func TestIsRegressedThreshold(t *testing.T) {
	cat := DefaultCatalog()

	if !cat.IsRegressed(cat.IDForName(StatusAbstraction)) {
		t.Fatal("status at the threshold must count as regressed")
	}
	if !cat.IsRegressed(cat.IDForName(StatusChartCollection)) {
		t.Fatal("earliest status must count as regressed")
	}
	if cat.IsRegressed(cat.IDForName(StatusOverread)) {
		t.Fatal("status past the threshold must not count as regressed")
	}
	if cat.IsRegressed(0) {
		t.Fatal("unresolved status must never count as regressed")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workflow.yaml")
	content := []byte("statuses:\n  - id: 1\n    name: Intake\n  - id: 2\n    name: Abstraction\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}

	cat, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	if len(cat.Statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(cat.Statuses))
	}
	if cat.RegressThreshold() != 2 {
		t.Fatalf("threshold = %d, want 2", cat.RegressThreshold())
	}
}

func TestLoadEmptyPathFallsBack(t *testing.T) {
	cat, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cat.Statuses) == 0 {
		t.Fatal("expected default catalog")
	}
}
