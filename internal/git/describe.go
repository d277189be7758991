package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const describeAbbrev = 7

// Describe names c relative to its nearest tagged ancestor in
// reverse-chronological order: the tag itself when c is tagged,
// "<tag>-<distance>-g<abbrev>" otherwise, or "g<abbrev>" when no ancestor
// carries a tag.
func (r *Repository) Describe(ctx context.Context, c *object.Commit) (string, error) {
	abbrev := c.Hash.String()[:describeAbbrev]
	tags, err := r.tagsByCommit()
	if err != nil {
		return "", err
	}
	if len(tags) == 0 {
		return "g" + abbrev, nil
	}
	w := r.newRevWalk(c)
	for distance := 0; ; distance++ {
		cur, err := w.next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("describe %s: %w", abbrev, err)
		}
		name, ok := tags[cur.Hash]
		if !ok {
			continue
		}
		slog.Debug("describe found tag", slog.String("commit", abbrev), slog.String("tag", name), slog.Int("distance", distance))
		if distance == 0 {
			return name, nil
		}
		return fmt.Sprintf("%s-%d-g%s", name, distance, abbrev), nil
	}
	return "g" + abbrev, nil
}

// tagsByCommit maps each tagged commit to one tag name. When several tags
// point at the same commit the last one by ref name is used.
func (r *Repository) tagsByCommit() (map[plumbing.Hash]string, error) {
	return memoize(r, "tags_by_commit", func() (map[plumbing.Hash]string, error) {
		index, err := r.ReverseRefs()
		if err != nil {
			return nil, err
		}
		tags := map[plumbing.Hash]string{}
		for hash, refs := range index {
			for _, ref := range refs {
				if ref.Kind == RefKindTag {
					tags[hash] = ref.Name
				}
			}
		}
		return tags, nil
	})
}
