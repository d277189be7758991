package git

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// TreeAt returns the directory at p (slash separated, "" for the root) as of
// commit c.
func (r *Repository) TreeAt(c *object.Commit, p string) (*object.Tree, error) {
	root, err := r.tree(c.TreeHash)
	if err != nil {
		return nil, err
	}
	t, err := r.subtree(root, p)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, pathError(ErrPathNotFound, p)
	}
	return t, nil
}

// ListTree returns the immediate entries of the directory at p, in tree
// order.
func (r *Repository) ListTree(c *object.Commit, p string) ([]TreeEntry, error) {
	t, err := r.TreeAt(c, p)
	if err != nil {
		return nil, err
	}
	entries := make([]TreeEntry, 0, len(t.Entries))
	for _, e := range t.Entries {
		entries = append(entries, TreeEntry{Name: e.Name, Mode: e.Mode, Kind: entryKind(e.Mode), Hash: e.Hash})
	}
	return entries, nil
}

// FileAt returns the regular or executable file at p as of commit c.
func (r *Repository) FileAt(c *object.Commit, p string) (*object.File, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil, pathError(ErrPathNotFound, p)
	}
	dir, name := splitDir(p)
	t, err := r.TreeAt(c, dir)
	if err != nil {
		return nil, err
	}
	entry := findEntry(t, name)
	if entry == nil {
		return nil, pathError(ErrPathNotFound, p)
	}
	if entry.Mode != filemode.Regular && entry.Mode != filemode.Executable && entry.Mode != filemode.Deprecated {
		return nil, pathError(ErrNotAFile, p)
	}
	blob, err := r.repo.BlobObject(entry.Hash)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", entry.Hash, err)
	}
	return object.NewFile(p, entry.Mode, blob), nil
}

// subtree walks dir below root. A missing component yields (nil, nil) so
// callers walking history can tell absence from failure; a component that
// is not a directory yields ErrNotADirectory.
func (r *Repository) subtree(root *object.Tree, dir string) (*object.Tree, error) {
	t := root
	for _, part := range splitPath(dir) {
		entry := findEntry(t, part)
		if entry == nil {
			return nil, nil
		}
		if entry.Mode != filemode.Dir {
			return nil, pathError(ErrNotADirectory, dir)
		}
		next, err := r.tree(entry.Hash)
		if err != nil {
			return nil, err
		}
		t = next
	}
	return t, nil
}

// pathHash returns the object id at p in c's snapshot and whether p exists
// there at all.
func (r *Repository) pathHash(c *object.Commit, parts []string) (plumbing.Hash, bool, error) {
	t, err := r.tree(c.TreeHash)
	if err != nil {
		return plumbing.ZeroHash, false, err
	}
	for i, part := range parts {
		entry := findEntry(t, part)
		if entry == nil {
			return plumbing.ZeroHash, false, nil
		}
		if i == len(parts)-1 {
			return entry.Hash, true, nil
		}
		if entry.Mode != filemode.Dir {
			return plumbing.ZeroHash, false, nil
		}
		if t, err = r.tree(entry.Hash); err != nil {
			return plumbing.ZeroHash, false, err
		}
	}
	return c.TreeHash, true, nil
}

func findEntry(t *object.Tree, name string) *object.TreeEntry {
	for i := range t.Entries {
		if t.Entries[i].Name == name {
			return &t.Entries[i]
		}
	}
	return nil
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func splitDir(p string) (dir, name string) {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[:i], p[i+1:]
	}
	return "", p
}
