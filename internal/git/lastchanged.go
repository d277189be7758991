package git

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// LastChanged attributes every immediate entry of the directory dir ("" for
// the root) as of c to the commit that last modified it.
//
// Ancestors are visited newest first starting at c. A still unresolved entry
// is attributed to the visited commit as soon as it is missing from, or
// differs in, at least one of that commit's parents. Only one directory
// level is inspected, so the cost is bounded by depth walked times entries.
func (r *Repository) LastChanged(ctx context.Context, c *object.Commit, dir string) (LastChanged, error) {
	dir = strings.Trim(dir, "/")
	t, err := r.TreeAt(c, dir)
	if err != nil {
		return nil, err
	}
	unresolved := make(map[string]plumbing.Hash, len(t.Entries))
	for _, e := range t.Entries {
		unresolved[e.Name] = e.Hash
	}
	result := make(LastChanged, len(unresolved))
	attribute := func(name string, owner *object.Commit) {
		result[name] = LastChangedRecord{Name: name, Hash: unresolved[name], Commit: owner}
		delete(unresolved, name)
	}
	attributeAll := func(owner *object.Commit) {
		for name := range unresolved {
			attribute(name, owner)
		}
	}

	w := r.newRevWalk(c)
	var prev *object.Commit
	visited := 0
	for len(unresolved) > 0 {
		cur, err := w.next(ctx)
		if errors.Is(err, io.EOF) {
			attributeAll(prev)
			break
		}
		if err != nil {
			return nil, fmt.Errorf("lastchanged %s: %w", dir, err)
		}
		visited++
		tree, err := r.dirAt(cur, dir)
		if err != nil {
			return nil, err
		}
		if tree == nil {
			attributeAll(prev)
			break
		}
		if len(cur.ParentHashes) == 0 {
			attributeAll(cur)
			break
		}
		parents := make([]*object.Tree, 0, len(cur.ParentHashes))
		for _, ph := range cur.ParentHashes {
			parent, err := r.commit(ph)
			if err != nil {
				return nil, err
			}
			pt, err := r.dirAt(parent, dir)
			if err != nil {
				return nil, err
			}
			parents = append(parents, pt)
		}
		for name, hash := range unresolved {
			if changedInAnyParent(parents, name, hash) {
				attribute(name, cur)
			}
		}
		prev = cur
	}
	slog.Debug("LastChanged done",
		slog.String("commit", c.Hash.String()),
		slog.String("dir", dir),
		slog.Int("entries", len(result)),
		slog.Int("visited", visited),
	)
	return result, nil
}

func changedInAnyParent(parents []*object.Tree, name string, hash plumbing.Hash) bool {
	for _, pt := range parents {
		if pt == nil {
			return true
		}
		e := findEntry(pt, name)
		if e == nil || e.Hash != hash {
			return true
		}
	}
	return false
}

// dirAt returns the directory dir in c's snapshot, or nil when it does not
// exist there as a directory.
func (r *Repository) dirAt(c *object.Commit, dir string) (*object.Tree, error) {
	root, err := r.tree(c.TreeHash)
	if err != nil {
		return nil, err
	}
	t, err := r.subtree(root, dir)
	if errors.Is(err, ErrNotADirectory) {
		return nil, nil
	}
	return t, err
}

type lastChangedCacheFile struct {
	Commit string            `json:"commit"`
	Path   string            `json:"path"`
	Files  map[string]string `json:"files"`
}

// LastChangedCached is LastChanged backed by a JSON file in the handle's
// cache directory. Results are keyed by commit and directory, which never
// change, so cache entries are never invalidated. Failing to write the cache
// is logged and does not fail the query.
func (r *Repository) LastChangedCached(ctx context.Context, c *object.Commit, dir string) (LastChanged, error) {
	dir = strings.Trim(dir, "/")
	cacheDir, err := r.CacheDir()
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("dirlog_%s_%s.json", c.Hash, strings.ReplaceAll(dir, "/", "_"))
	cachePath := filepath.Join(cacheDir, name)
	if lc, err := r.readLastChangedCache(c, dir, cachePath); err == nil {
		return lc, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		slog.Warn("ignoring unreadable lastchanged cache", slog.String("path", cachePath), slog.Any("error", err))
	}

	lc, err := r.LastChanged(ctx, c, dir)
	if err != nil {
		return nil, err
	}
	entry := lastChangedCacheFile{Commit: c.Hash.String(), Path: dir, Files: make(map[string]string, len(lc))}
	for name, rec := range lc {
		entry.Files[name] = rec.Commit.Hash.String()
	}
	if err := writeJSONAtomic(cachePath, entry); err != nil {
		slog.Error("write lastchanged cache", slog.String("path", cachePath), slog.Any("error", err))
	}
	return lc, nil
}

func (r *Repository) readLastChangedCache(c *object.Commit, dir, cachePath string) (LastChanged, error) {
	data, err := os.ReadFile(cachePath)
	if err != nil {
		return nil, err
	}
	var entry lastChangedCacheFile
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode %s: %w", cachePath, err)
	}
	t, err := r.TreeAt(c, dir)
	if err != nil {
		return nil, err
	}
	lc := make(LastChanged, len(entry.Files))
	for _, e := range t.Entries {
		hash, ok := entry.Files[e.Name]
		if !ok {
			return nil, fmt.Errorf("cache %s misses entry %q", cachePath, e.Name)
		}
		owner, err := r.commit(plumbing.NewHash(hash))
		if err != nil {
			return nil, err
		}
		lc[e.Name] = LastChangedRecord{Name: e.Name, Hash: e.Hash, Commit: owner}
	}
	return lc, nil
}

// writeJSONAtomic writes v next to path and renames it into place so readers
// never observe a partial file.
func writeJSONAtomic(path string, v any) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := json.NewEncoder(f).Encode(v); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
