package providers

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFindSpec(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"pkg.spec", "README.md", "pkg.spec.in"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	spec, err := findSpec(dir)
	if err != nil {
		t.Fatalf("findSpec failed: %v", err)
	}
	if spec != "pkg.spec" {
		t.Errorf("spec = %q, want pkg.spec", spec)
	}
}

func TestFindSpecNone(t *testing.T) {
	_, err := findSpec(t.TempDir())

	var build *BuildError
	if !errors.As(err, &build) {
		t.Fatalf("expected *BuildError, got %v", err)
	}
	if KindOf(err) != KindSrpmBuildError {
		t.Errorf("KindOf = %q, want %q", KindOf(err), KindSrpmBuildError)
	}
}

func TestFindSpecAmbiguous(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.spec", "b.spec"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var build *BuildError
	if _, err := findSpec(dir); !errors.As(err, &build) {
		t.Fatalf("expected *BuildError for two spec files, got %v", err)
	}
}

func TestFindSpecIgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "other.spec"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pkg.spec"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	spec, err := findSpec(dir)
	if err != nil {
		t.Fatalf("findSpec failed: %v", err)
	}
	if spec != "pkg.spec" {
		t.Errorf("spec = %q, want pkg.spec", spec)
	}
}
