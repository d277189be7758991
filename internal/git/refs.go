package git

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	minHashPrefix = 4
	hashHexSize   = 40
)

// Resolve turns a branch name, tag name or (possibly abbreviated) object id
// into a commit, in that order. An empty name resolves HEAD.
func (r *Repository) Resolve(name string) (*object.Commit, error) {
	if name == "" {
		return r.Head()
	}
	if err := r.errIfEmpty(); err != nil {
		return nil, err
	}
	c, err := r.resolveRef(plumbing.NewBranchReferenceName(name))
	if !errors.Is(err, ErrRefNotFound) {
		return c, err
	}
	c, err = r.resolveRef(plumbing.NewTagReferenceName(name))
	if !errors.Is(err, ErrRefNotFound) {
		return c, err
	}
	return r.resolveHash(name)
}

func (r *Repository) resolveRef(name plumbing.ReferenceName) (*object.Commit, error) {
	ref, err := r.repo.Reference(name, true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, refNotFound(name.Short())
		}
		return nil, fmt.Errorf("read ref %s: %w", name, err)
	}
	return r.peel(ref.Hash(), name.Short())
}

func (r *Repository) resolveHash(name string) (*object.Commit, error) {
	if !isHex(name) || len(name) < minHashPrefix || len(name) > hashHexSize {
		return nil, refNotFound(name)
	}
	if len(name) == hashHexSize {
		return r.peel(plumbing.NewHash(name), name)
	}
	hash, err := r.repo.ResolveRevision(plumbing.Revision(name))
	if err != nil {
		return nil, refNotFound(name)
	}
	return r.peel(*hash, name)
}

// peel follows annotated tag objects, possibly nested, down to a commit.
func (r *Repository) peel(hash plumbing.Hash, name string) (*object.Commit, error) {
	for {
		obj, err := r.repo.Object(plumbing.AnyObject, hash)
		if err != nil {
			if errors.Is(err, plumbing.ErrObjectNotFound) {
				return nil, refNotFound(name)
			}
			return nil, fmt.Errorf("read object %s: %w", hash, err)
		}
		switch o := obj.(type) {
		case *object.Commit:
			return o, nil
		case *object.Tag:
			hash = o.Target
		default:
			return nil, refNotFound(name)
		}
	}
}

// Branches returns the sorted short names of all local branches.
func (r *Repository) Branches() ([]string, error) {
	return memoize(r, "branches", func() ([]string, error) {
		return r.refNames(func(n plumbing.ReferenceName) bool { return n.IsBranch() })
	})
}

// Tags returns the sorted short names of all tags.
func (r *Repository) Tags() ([]string, error) {
	return memoize(r, "tags", func() ([]string, error) {
		return r.refNames(func(n plumbing.ReferenceName) bool { return n.IsTag() })
	})
}

func (r *Repository) refNames(keep func(plumbing.ReferenceName) bool) ([]string, error) {
	refs, err := r.repo.References()
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	defer refs.Close()
	var names []string
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if keep(ref.Name()) {
			names = append(names, ref.Name().Short())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// TagList returns every tag that resolves to a commit, newest first.
func (r *Repository) TagList() ([]TagInfo, error) {
	names, err := r.Tags()
	if err != nil {
		return nil, err
	}
	tags := make([]TagInfo, 0, len(names))
	for _, name := range names {
		ref, err := r.repo.Reference(plumbing.NewTagReferenceName(name), true)
		if err != nil {
			return nil, fmt.Errorf("read tag %s: %w", name, err)
		}
		info := TagInfo{Name: name}
		if tag, err := r.repo.TagObject(ref.Hash()); err == nil {
			info.Tag = tag
		}
		c, err := r.peel(ref.Hash(), name)
		if errors.Is(err, ErrRefNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		info.Commit = c
		tags = append(tags, info)
	}
	slices.SortStableFunc(tags, func(a, b TagInfo) int {
		return b.When().Compare(a.When())
	})
	return tags, nil
}

// ReverseRefs maps commits to the branches and tags pointing at them.
// Remote-tracking refs are ignored and tags are peeled to their commit.
// Within a commit, refs are ordered by full ref name.
func (r *Repository) ReverseRefs() (map[plumbing.Hash][]Ref, error) {
	return memoize(r, "reverse_refs", r.buildReverseRefs)
}

func (r *Repository) buildReverseRefs() (map[plumbing.Hash][]Ref, error) {
	iter, err := r.repo.References()
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	defer iter.Close()
	var refs []*plumbing.Reference
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		if n := ref.Name(); n.IsBranch() || n.IsTag() {
			refs = append(refs, ref)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	slices.SortFunc(refs, func(a, b *plumbing.Reference) int {
		return cmp.Compare(a.Name(), b.Name())
	})

	index := map[plumbing.Hash][]Ref{}
	for _, ref := range refs {
		name := ref.Name()
		if name.IsBranch() {
			index[ref.Hash()] = append(index[ref.Hash()], Ref{Kind: RefKindHead, Name: name.Short(), Hash: ref.Hash()})
			continue
		}
		c, err := r.peel(ref.Hash(), name.Short())
		if errors.Is(err, ErrRefNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		index[c.Hash] = append(index[c.Hash], Ref{Kind: RefKindTag, Name: name.Short(), Hash: c.Hash})
	}
	return index, nil
}

// RefForCommit returns a stable display label for hash: the name of the last
// ref pointing at it, or the full hash when none does.
func (r *Repository) RefForCommit(hash plumbing.Hash) (string, error) {
	index, err := r.ReverseRefs()
	if err != nil {
		return "", err
	}
	refs := index[hash]
	if len(refs) == 0 {
		return hash.String(), nil
	}
	return refs[len(refs)-1].Name, nil
}

// SplitRef splits a "<ref>/<path>" string. Branch and tag names may contain
// slashes, so the longest matching branch wins, then the longest matching
// tag; otherwise the first segment is taken as an object id.
func (r *Repository) SplitRef(p string) (ref string, rest string, commit *object.Commit, err error) {
	p = strings.Trim(p, "/")
	if err := r.errIfEmpty(); err != nil {
		return "", "", nil, err
	}
	branches, err := r.Branches()
	if err != nil {
		return "", "", nil, err
	}
	tags, err := r.Tags()
	if err != nil {
		return "", "", nil, err
	}
	candidates := []struct {
		names []string
		full  func(string) plumbing.ReferenceName
	}{
		{branches, plumbing.NewBranchReferenceName},
		{tags, plumbing.NewTagReferenceName},
	}
	for _, cand := range candidates {
		if name, ok := longestPrefix(cand.names, p); ok {
			commit, err := r.resolveRef(cand.full(name))
			if err != nil {
				return "", "", nil, err
			}
			return name, strings.TrimPrefix(p[len(name):], "/"), commit, nil
		}
	}
	ref, rest, _ = strings.Cut(p, "/")
	commit, err = r.resolveHash(ref)
	if err != nil {
		return "", "", nil, err
	}
	return ref, rest, commit, nil
}

func longestPrefix(names []string, p string) (string, bool) {
	best := ""
	for _, name := range names {
		if len(name) <= len(best) {
			continue
		}
		if p == name || strings.HasPrefix(p, name+"/") {
			best = name
		}
	}
	return best, best != ""
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
