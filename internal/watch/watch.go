package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/thiagokokada/gitbrowse/internal/debounce"
	"github.com/thiagokokada/gitbrowse/internal/git"
	"github.com/thiagokokada/gitbrowse/internal/snapshot"
)

// Builder is satisfied by *snapshot.Builder.
type Builder interface {
	Build(ctx context.Context, src snapshot.Source, c *object.Commit, f snapshot.Format) (*snapshot.Snapshot, error)
}

type Options struct {
	RepoPath string
	Repo     git.Options
	Formats  []snapshot.Format
	Debounce time.Duration
}

// Watcher keeps the snapshot cache warm for every branch head of a
// repository, rebuilding whenever its refs change.
type Watcher struct {
	opts    Options
	builder Builder
}

func New(builder Builder, opts Options) *Watcher {
	return &Watcher{opts: opts, builder: builder}
}

// Prewarm opens a fresh handle and builds a snapshot of every branch head in
// every configured format. Failures of single snapshots are collected and do
// not stop the others.
func (w *Watcher) Prewarm(ctx context.Context) error {
	repo, err := git.Open(w.opts.RepoPath, w.opts.Repo)
	if err != nil {
		return err
	}
	branches, err := repo.Branches()
	if err != nil {
		return err
	}
	start := time.Now()
	var errs []error
	built := 0
	for _, branch := range branches {
		if err := ctx.Err(); err != nil {
			return err
		}
		c, err := repo.Resolve(branch)
		if err != nil {
			errs = append(errs, fmt.Errorf("branch %s: %w", branch, err))
			continue
		}
		for _, f := range w.opts.Formats {
			if _, err := w.builder.Build(ctx, repo, c, f); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				errs = append(errs, fmt.Errorf("branch %s (%s): %w", branch, f, err))
				continue
			}
			built++
		}
	}
	slog.Debug("snapshot prewarm done",
		slog.String("repo", repo.Name()),
		slog.Int("branches", len(branches)),
		slog.Int("snapshots", built),
		slog.Duration("elapsed", time.Since(start)),
	)
	return errors.Join(errs...)
}

// Run prewarms once and then again after every burst of ref changes, until
// ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	repo, err := git.Open(w.opts.RepoPath, w.opts.Repo)
	if err != nil {
		return err
	}
	gitDir := repo.GitDir()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() {
		if err := fsw.Close(); err != nil {
			slog.Error("watcher close", slog.Any("error", err))
		}
	}()
	for path := range watchPaths(gitDir) {
		slog.Debug("adding path to FS watcher", slog.String("path", path))
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}

	triggers := make(chan struct{}, 1)
	d := debounce.New(w.opts.Debounce, func() {
		select {
		case triggers <- struct{}{}:
		default:
		}
	})
	defer d.Stop()

	w.prewarmLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			if d.Pending() {
				slog.Debug("dropping pending snapshot prewarm", slog.String("repo", repo.Name()))
			}
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if shouldIgnoreWatchPath(gitDir, ev.Name) {
				continue
			}
			slog.Debug("fsnotify event",
				slog.String("op", ev.Op.String()),
				slog.String("path", ev.Name),
			)
			if ev.Op&fsnotify.Create != 0 && isDir(ev.Name) {
				if err := fsw.Add(ev.Name); err != nil {
					slog.Error("watch new directory", slog.String("path", ev.Name), slog.Any("error", err))
				}
			}
			d.Trigger()
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Error("fsnotify error", slog.Any("error", err))
		case <-triggers:
			w.prewarmLogged(ctx)
		}
	}
}

func (w *Watcher) prewarmLogged(ctx context.Context) {
	if err := w.Prewarm(ctx); err != nil && ctx.Err() == nil {
		slog.Error("snapshot prewarm", slog.Any("error", err))
	}
}

// watchPaths returns the git directory itself (HEAD, packed-refs) and every
// directory below refs/heads and refs/tags, since fsnotify does not recurse.
func watchPaths(gitDir string) iter.Seq[string] {
	if gitDir == "" {
		return nil
	}
	uniquePaths := map[string]struct{}{gitDir: {}}
	for _, sub := range []string{"heads", "tags"} {
		root := filepath.Join(gitDir, "refs", sub)
		_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				uniquePaths[p] = struct{}{}
			}
			return nil
		})
	}
	return maps.Keys(uniquePaths)
}

func shouldIgnoreWatchPath(gitDir, name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".lock" || ext == ".ipc" {
		return true
	}
	rel, err := filepath.Rel(gitDir, name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	switch {
	case rel == "HEAD", rel == "packed-refs":
		return false
	case strings.HasPrefix(rel, "refs/"):
		return false
	}
	return true
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
