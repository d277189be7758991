package git

import (
	"context"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
)

func TestDescribe(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	hashes := tr.linearHistory(6)
	tr.tag("v1", tr.annotatedTag("v1", hashes[1], plumbing.CommitObject))
	tr.tag("v0", hashes[0])
	r := tr.open()
	ctx := context.Background()

	tests := []struct {
		hash plumbing.Hash
		want string
	}{
		{hashes[0], "v0"},
		{hashes[1], "v1"},
		{hashes[2], "v1-1-g" + hashes[2].String()[:7]},
		{hashes[4], "v1-3-g" + hashes[4].String()[:7]},
		{hashes[5], "v1-4-g" + hashes[5].String()[:7]},
	}
	for _, tt := range tests {
		got, err := r.Describe(ctx, tr.commitObject(r, tt.hash))
		if err != nil {
			t.Fatalf("Describe(%s): %v", tt.hash, err)
		}
		if got != tt.want {
			t.Fatalf("Describe(%s) = %q, want %q", tt.hash, got, tt.want)
		}
	}
}

func TestDescribeWithoutTags(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	hashes := tr.linearHistory(3)
	r := tr.open()
	got, err := r.Describe(context.Background(), tr.commitObject(r, hashes[2]))
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if want := "g" + hashes[2].String()[:7]; got != want {
		t.Fatalf("Describe() = %q, want %q", got, want)
	}
}

func TestDescribeTagOnlyOnDescendant(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	hashes := tr.linearHistory(3)
	tr.tag("v9", hashes[2])
	r := tr.open()
	got, err := r.Describe(context.Background(), tr.commitObject(r, hashes[1]))
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if want := "g" + hashes[1].String()[:7]; got != want {
		t.Fatalf("Describe() = %q, want %q", got, want)
	}
}

func TestDescribeAcrossMerge(t *testing.T) {
	t.Parallel()

	// root - a - merge
	//    \- b -/
	// a is tagged old, b is tagged new and is more recent than a.
	tr := newTestRepo(t)
	root := tr.commit("root\n", tr.tree(map[string]string{"f": "0"}))
	a := tr.commit("a\n", tr.tree(map[string]string{"f": "a"}), root)
	b := tr.commit("b\n", tr.tree(map[string]string{"f": "b"}), root)
	merge := tr.commit("merge\n", tr.tree(map[string]string{"f": "ab"}), a, b)
	tr.branch("master", merge)
	tr.tag("old", a)
	tr.tag("new", b)

	r := tr.open()
	got, err := r.Describe(context.Background(), tr.commitObject(r, merge))
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if want := "new-1-g" + merge.String()[:7]; got != want {
		t.Fatalf("Describe() = %q, want %q", got, want)
	}
}

func TestDescribeCancelled(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	hashes := tr.linearHistory(3)
	tr.tag("v0", hashes[0])
	r := tr.open()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Describe(ctx, tr.commitObject(r, hashes[2])); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
