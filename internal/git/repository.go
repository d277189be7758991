package git

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
	lru "github.com/hashicorp/golang-lru/v2"
)

const treeCacheSize = 512

// Options carry the process level settings a Repository needs to derive its
// display properties.
type Options struct {
	// Root is the directory repositories are served from. Names and clone
	// URLs are computed relative to it.
	Root string
	// CloneURLsBase maps a protocol (git, ssh, http) to the URL prefix
	// prepended to the repository path.
	CloneURLsBase map[string]string
}

// Repository is a read-only handle on a single repository. It is meant to be
// opened per query: derived properties are memoized for the lifetime of the
// handle and never shared with other handles.
type Repository struct {
	repo    *gitlib.Repository
	gitDir  string
	workDir string
	bare    bool
	opts    Options

	mu    sync.Mutex
	memo  map[string]any
	trees *lru.Cache[plumbing.Hash, *object.Tree]
}

// Open opens the repository at path, falling back to path + ".git".
func Open(repoPath string, opts Options) (*Repository, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		abs += ".git"
	}
	if opts.Root != "" {
		if opts.Root, err = filepath.Abs(opts.Root); err != nil {
			return nil, err
		}
	}
	repo, err := gitlib.PlainOpen(abs)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	trees, err := lru.New[plumbing.Hash, *object.Tree](treeCacheSize)
	if err != nil {
		return nil, err
	}
	r := &Repository{
		repo:   repo,
		gitDir: abs,
		opts:   opts,
		memo:   map[string]any{},
		trees:  trees,
		bare:   true,
	}
	if fs, ok := repo.Storer.(*filesystem.Storage); ok {
		r.gitDir = fs.Filesystem().Root()
	}
	if wt, err := repo.Worktree(); err == nil {
		r.bare = false
		r.workDir = wt.Filesystem.Root()
	}
	slog.Debug("repository opened", slog.String("git_dir", r.gitDir), slog.Bool("bare", r.bare))
	return r, nil
}

// memoize caches fn's result under key for the lifetime of r.
func memoize[T any](r *Repository, key string, fn func() (T, error)) (T, error) {
	r.mu.Lock()
	if v, ok := r.memo[key]; ok {
		r.mu.Unlock()
		return v.(T), nil
	}
	r.mu.Unlock()
	v, err := fn()
	if err != nil {
		var zero T
		return zero, err
	}
	r.mu.Lock()
	r.memo[key] = v
	r.mu.Unlock()
	return v, nil
}

// GitDir returns the path of the repository's git directory.
func (r *Repository) GitDir() string {
	return r.gitDir
}

func (r *Repository) IsBare() bool {
	return r.bare
}

// Name is the repository path relative to Options.Root, without the .git
// suffix.
func (r *Repository) Name() string {
	name := filepath.ToSlash(r.gitDir)
	if r.opts.Root != "" {
		if rel, err := filepath.Rel(r.opts.Root, r.gitDir); err == nil && !strings.HasPrefix(rel, "..") {
			name = filepath.ToSlash(rel)
		}
	}
	name = strings.TrimSuffix(name, "/")
	if trimmed := strings.TrimSuffix(name, "/.git"); trimmed != name {
		name = trimmed
	} else {
		name = strings.TrimSuffix(name, ".git")
	}
	if r.opts.Root == "" {
		name = path.Base(name)
	}
	return name
}

// Description returns the contents of the description file, or "" when
// there is none.
func (r *Repository) Description() (string, error) {
	return memoize(r, "description", func() (string, error) {
		data, err := os.ReadFile(filepath.Join(r.gitDir, "description"))
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("read description: %w", err)
		}
		return string(data), nil
	})
}

// Owner returns goblet.owner from the repository config, falling back to the
// owner of the git directory.
func (r *Repository) Owner() (string, error) {
	return memoize(r, "owner", func() (string, error) {
		cfg, err := r.repo.Config()
		if err != nil {
			return "", fmt.Errorf("read config: %w", err)
		}
		if owner := cfg.Raw.Section("goblet").Option("owner"); owner != "" {
			return owner, nil
		}
		return fileOwner(r.gitDir)
	})
}

// CloneURLs returns clone URLs keyed by protocol. Explicit
// goblet.cloneurl<proto> settings win over Options.CloneURLsBase.
func (r *Repository) CloneURLs() (map[string]string, error) {
	return memoize(r, "clone_urls", func() (map[string]string, error) {
		cfg, err := r.repo.Config()
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		section := cfg.Raw.Section("goblet")
		urls := map[string]string{}
		for _, proto := range []string{"git", "ssh", "http"} {
			if v := section.Option("cloneurl" + proto); v != "" {
				urls[proto] = v
				continue
			}
			base, ok := r.opts.CloneURLsBase[proto]
			if !ok {
				continue
			}
			p := r.gitDir
			if !r.IsBare() {
				p = r.workDir
			}
			rel := strings.TrimPrefix(filepath.ToSlash(p), filepath.ToSlash(r.opts.Root))
			urls[proto] = base + rel
		}
		return urls, nil
	})
}

// Head returns the commit HEAD points at, or ErrEmptyRepository when HEAD is
// unborn.
func (r *Repository) Head() (*object.Commit, error) {
	ref, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, ErrEmptyRepository
		}
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	return r.commit(ref.Hash())
}

// IsEmpty reports whether the repository has no commits yet: HEAD is
// unborn and no branch or tag exists.
func (r *Repository) IsEmpty() (bool, error) {
	_, err := r.Head()
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, ErrEmptyRepository):
		return false, err
	}
	branches, err := r.Branches()
	if err != nil {
		return false, err
	}
	tags, err := r.Tags()
	if err != nil {
		return false, err
	}
	return len(branches) == 0 && len(tags) == 0, nil
}

// errIfEmpty returns ErrEmptyRepository when there is no commit to start a
// lookup from. Other failures are left to the lookup itself.
func (r *Repository) errIfEmpty() error {
	if empty, err := r.IsEmpty(); err == nil && empty {
		return ErrEmptyRepository
	}
	return nil
}

// CacheDir returns the handle's private cache directory, creating it on
// first use.
func (r *Repository) CacheDir() (string, error) {
	return memoize(r, "cache_dir", func() (string, error) {
		dir := filepath.Join(r.gitDir, "goblet", "cache")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create cache dir: %w", err)
		}
		return dir, nil
	})
}

func (r *Repository) commit(hash plumbing.Hash) (*object.Commit, error) {
	c, err := r.repo.CommitObject(hash)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, refNotFound(hash.String())
		}
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	return c, nil
}

func (r *Repository) tree(hash plumbing.Hash) (*object.Tree, error) {
	if t, ok := r.trees.Get(hash); ok {
		return t, nil
	}
	t, err := r.repo.TreeObject(hash)
	if err != nil {
		return nil, fmt.Errorf("read tree %s: %w", hash, err)
	}
	r.trees.Add(hash, t)
	return t, nil
}
