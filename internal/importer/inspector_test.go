package importer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/TommyLike/copr/internal/providers"
)

func TestFormatEVR(t *testing.T) {
	cases := []struct {
		name    string
		epoch   string
		version string
		release string
		want    string
	}{
		{"zero epoch", "0", "1.2", "3.fc40", "0:1.2-3.fc40"},
		{"positive epoch", "2", "1.0", "1.el7", "2:1.0-1.el7"},
		{"unset epoch", "(none)", "1.2", "3.fc40", "1.2-3.fc40"},
		{"empty epoch", "", "1.2", "3.fc40", "1.2-3.fc40"},
		{"non-numeric epoch", "x1", "1.2", "3", "1.2-3"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatEVR(tc.epoch, tc.version, tc.release); got != tc.want {
				t.Errorf("FormatEVR(%q, %q, %q) = %q, want %q",
					tc.epoch, tc.version, tc.release, got, tc.want)
			}
		})
	}
}

func TestInspectMissingFile(t *testing.T) {
	ins := NewInspector(nil)

	_, _, err := ins.Inspect(context.Background(), filepath.Join(t.TempDir(), "nope.src.rpm"))
	if err == nil {
		t.Fatal("Inspect should fail for a missing file")
	}

	var q *QueryError
	if !errors.As(err, &q) {
		t.Fatalf("expected *QueryError, got %T", err)
	}
	if providers.KindOf(err) != providers.KindQueryFailed {
		t.Errorf("KindOf = %q, want %q", providers.KindOf(err), providers.KindQueryFailed)
	}
}
