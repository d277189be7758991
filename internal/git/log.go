package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/object"
)

const DefaultPageSize = 50

// LogOptions select a page of a commit history. Skip and Count are indexes
// into the filtered sequence, so consecutive pages never overlap or leave
// gaps regardless of the filters.
type LogOptions struct {
	Skip  int
	Count int
	// Query keeps commits whose message contains it (case-sensitive).
	Query string
	// Path keeps commits that introduced, modified or removed the path.
	Path string
}

// WalkCommits yields one page of the history of start, newest first. The
// walk stops as soon as Skip+Count matching commits have been seen. Every
// call starts a fresh walk, so the same arguments always yield the same
// commits.
func (r *Repository) WalkCommits(ctx context.Context, start *object.Commit, opts LogOptions) iter.Seq2[*object.Commit, error] {
	return func(yield func(*object.Commit, error) bool) {
		if opts.Count <= 0 {
			return
		}
		skip := max(opts.Skip, 0)
		parts := splitPath(opts.Path)
		w := r.newRevWalk(start)
		visited, matched := 0, 0
		defer func() {
			slog.Debug("WalkCommits done",
				slog.String("start", start.Hash.String()),
				slog.Int("visited", visited),
				slog.Int("matched", matched),
			)
		}()
		for matched < skip+opts.Count {
			c, err := w.next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("iterate commits: %w", err))
				return
			}
			visited++
			if opts.Query != "" && !strings.Contains(c.Message, opts.Query) {
				continue
			}
			if len(parts) > 0 {
				changed, err := r.changesPath(c, parts)
				if err != nil {
					yield(nil, err)
					return
				}
				if !changed {
					continue
				}
			}
			matched++
			if matched <= skip {
				continue
			}
			if !yield(c, nil) {
				return
			}
		}
	}
}

// Commits collects a page of WalkCommits.
func (r *Repository) Commits(ctx context.Context, start *object.Commit, opts LogOptions) ([]*object.Commit, error) {
	commits := make([]*object.Commit, 0, max(opts.Count, 0))
	for c, err := range r.WalkCommits(ctx, start, opts) {
		if err != nil {
			return nil, err
		}
		commits = append(commits, c)
	}
	return commits, nil
}

// changesPath reports whether c is a change point for the path: present in a
// root commit, or different (content or presence) from at least one parent.
func (r *Repository) changesPath(c *object.Commit, parts []string) (bool, error) {
	hash, present, err := r.pathHash(c, parts)
	if err != nil {
		return false, err
	}
	if len(c.ParentHashes) == 0 {
		return present, nil
	}
	for _, ph := range c.ParentHashes {
		parent, err := r.commit(ph)
		if err != nil {
			return false, err
		}
		parentHash, parentPresent, err := r.pathHash(parent, parts)
		if err != nil {
			return false, err
		}
		if parentPresent != present || parentHash != hash {
			return true, nil
		}
	}
	return false, nil
}
