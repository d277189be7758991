package git

import (
	"cmp"
	"context"
	"io"

	"github.com/emirpasic/gods/trees/binaryheap"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// revWalk visits the ancestors of a commit (the commit included) newest
// first by committer time. Commits with equal timestamps come out in the
// order they were discovered, so a child always precedes its parents and
// the walk is reproducible.
type revWalk struct {
	r    *Repository
	heap *binaryheap.Heap
	seen map[plumbing.Hash]struct{}
	seq  uint64
}

type walkItem struct {
	commit *object.Commit
	seq    uint64
}

func (r *Repository) newRevWalk(start *object.Commit) *revWalk {
	w := &revWalk{
		r:    r,
		heap: binaryheap.NewWith(newestFirst),
		seen: map[plumbing.Hash]struct{}{start.Hash: {}},
	}
	w.push(start)
	return w
}

func newestFirst(a, b interface{}) int {
	x, y := a.(walkItem), b.(walkItem)
	tx, ty := x.commit.Committer.When, y.commit.Committer.When
	if c := ty.Compare(tx); c != 0 {
		return c
	}
	return cmp.Compare(x.seq, y.seq)
}

func (w *revWalk) push(c *object.Commit) {
	w.heap.Push(walkItem{commit: c, seq: w.seq})
	w.seq++
}

// next returns io.EOF once history is exhausted.
func (w *revWalk) next(ctx context.Context) (*object.Commit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := w.heap.Pop()
	if !ok {
		return nil, io.EOF
	}
	c := v.(walkItem).commit
	for _, parent := range c.ParentHashes {
		if _, ok := w.seen[parent]; ok {
			continue
		}
		w.seen[parent] = struct{}{}
		pc, err := w.r.commit(parent)
		if err != nil {
			return nil, err
		}
		w.push(pc)
	}
	return c, nil
}
