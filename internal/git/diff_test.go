package git

import (
	"context"
	"strings"
	"testing"
)

func diffFile(t *testing.T, d *CommitDiff, path string) FileDiff {
	t.Helper()
	for _, f := range d.Files {
		if f.Path == path {
			return f
		}
	}
	t.Fatalf("no diff for %s in %+v", path, d.Files)
	return FileDiff{}
}

func TestDiffRootCommit(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	h := tr.commit("root\n", tr.tree(map[string]string{"a.txt": "1\n2\n3\n", "dir/b.txt": "b\n"}))
	r := tr.open()
	d, err := r.Diff(context.Background(), tr.commitObject(r, h))
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(d.Files) != 2 || d.Added != 4 || d.Deleted != 0 {
		t.Fatalf("Diff() = %d files, +%d -%d", len(d.Files), d.Added, d.Deleted)
	}
	a := diffFile(t, d, "a.txt")
	if !strings.Contains(a.Patch, "--- /dev/null") || !strings.Contains(a.Patch, "+++ b/a.txt") {
		t.Fatalf("patch header missing:\n%s", a.Patch)
	}
}

func TestDiffModifyDeleteAndBinary(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	parent := tr.commit("parent\n", tr.tree(map[string]string{
		"a.txt":   "1\n2\n3\n",
		"gone":    "x\ny\n",
		"bin.dat": "\x00\x01\x02",
		"same":    "same\n",
	}))
	child := tr.commit("child\n", tr.tree(map[string]string{
		"a.txt":   "1\ntwo\n3\n4",
		"bin.dat": "\x00\x01\x03",
		"same":    "same\n",
	}), parent)
	r := tr.open()
	d, err := r.Diff(context.Background(), tr.commitObject(r, child))
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(d.Files) != 3 {
		t.Fatalf("Diff() files = %+v", d.Files)
	}

	a := diffFile(t, d, "a.txt")
	if a.Added != 2 || a.Deleted != 1 {
		t.Fatalf("a.txt +%d -%d, want +2 -1", a.Added, a.Deleted)
	}
	for _, want := range []string{"--- a/a.txt", "+++ b/a.txt", "-2\n", "+two\n", "+4"} {
		if !strings.Contains(a.Patch, want) {
			t.Fatalf("a.txt patch missing %q:\n%s", want, a.Patch)
		}
	}

	gone := diffFile(t, d, "gone")
	if gone.Added != 0 || gone.Deleted != 2 {
		t.Fatalf("gone +%d -%d, want +0 -2", gone.Added, gone.Deleted)
	}
	if !strings.Contains(gone.Patch, "+++ /dev/null") {
		t.Fatalf("gone patch:\n%s", gone.Patch)
	}

	bin := diffFile(t, d, "bin.dat")
	if !bin.Binary || bin.Patch != "" || bin.Added != 0 {
		t.Fatalf("bin.dat = %+v", bin)
	}

	if d.Added != 2 || d.Deleted != 3 {
		t.Fatalf("totals +%d -%d, want +2 -3", d.Added, d.Deleted)
	}
}

func TestDiffRename(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	content := strings.Repeat("a line that is long enough to compare\n", 20)
	parent := tr.commit("parent\n", tr.tree(map[string]string{"old.txt": content}))
	child := tr.commit("child\n", tr.tree(map[string]string{"new.txt": content}), parent)
	r := tr.open()
	d, err := r.Diff(context.Background(), tr.commitObject(r, child))
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(d.Files) != 1 {
		t.Fatalf("Diff() files = %+v, want one rename", d.Files)
	}
	f := d.Files[0]
	if f.Path != "new.txt" || f.OldPath != "old.txt" || f.Added != 0 || f.Deleted != 0 {
		t.Fatalf("rename = %+v", f)
	}
}

func TestFileLines(t *testing.T) {
	t.Parallel()

	lines, err := fileLines(nil)
	if err != nil || len(lines) != 0 {
		t.Fatalf("fileLines(nil) = %v, %v", lines, err)
	}
}
