package git

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestDiscover(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, dir := range []string{
		"a.git",
		"Zeta.git",
		"b/.git",
		"nested/c.git",
		"nested/deeper/d.git",
		"nested/deeper/deepest/e.git",
		"plain/dir",
	} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "file.git"), nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	abs := func(paths ...string) []string {
		out := make([]string, len(paths))
		for i, p := range paths {
			out[i] = filepath.Join(root, p)
		}
		return out
	}
	tests := []struct {
		depth int
		want  []string
	}{
		{0, abs("a.git", "b/.git", "Zeta.git")},
		{1, abs("a.git", "b/.git", "nested/c.git", "Zeta.git")},
		{2, abs("a.git", "b/.git", "nested/c.git", "nested/deeper/d.git", "Zeta.git")},
	}
	for _, tt := range tests {
		got, err := Discover(root, tt.depth)
		if err != nil {
			t.Fatalf("Discover(depth=%d): %v", tt.depth, err)
		}
		if !slices.Equal(got, tt.want) {
			t.Fatalf("Discover(depth=%d) = %v, want %v", tt.depth, got, tt.want)
		}
	}
}

func TestDiscoverMissingRoot(t *testing.T) {
	t.Parallel()

	if _, err := Discover(filepath.Join(t.TempDir(), "missing"), 1); err == nil {
		t.Fatal("expected error for missing root")
	}
}
