package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/object"
)

type GrepLine struct {
	Number int
	Text   string
	// Match is false for context lines.
	Match bool
}

// GrepResult holds the matches of one file, grouped into hunks of
// contiguous lines.
type GrepResult struct {
	Path  string
	Hunks [][]GrepLine
}

// Grep searches the snapshot of c below dir for query and returns files
// skip..skip+count of the result. git is stopped as soon as the page is
// complete.
func (r *Repository) Grep(ctx context.Context, c *object.Commit, dir, query string, skip, count int) ([]GrepResult, error) {
	if count <= 0 {
		return nil, nil
	}
	dir = strings.Trim(dir, "/")
	if dir != "" {
		if _, err := r.TreeAt(c, dir); err != nil {
			return nil, err
		}
	}
	rev := c.Hash.String()
	args := []string{"grep", "-n", "--full-name", "-I", "-C1", "--heading", "--break", "-e", query, rev}
	if dir != "" {
		args = append(args, "--", dir)
	}

	var (
		results []GrepResult
		cur     *GrepResult
		seen    int
	)
	finish := func() bool {
		if cur == nil {
			return true
		}
		seen++
		if seen > skip {
			results = append(results, *cur)
		}
		cur = nil
		return len(results) < count
	}
	err := r.streamGit(ctx, true, args, func(line string) (bool, error) {
		switch {
		case line == "":
			return finish(), nil
		case strings.HasPrefix(line, rev+":"):
			if !finish() {
				return false, nil
			}
			cur = &GrepResult{Path: strings.TrimPrefix(line, rev+":"), Hunks: [][]GrepLine{nil}}
			return true, nil
		case cur == nil:
			return false, fmt.Errorf("unexpected grep output: %q", line)
		case line == "--":
			cur.Hunks = append(cur.Hunks, nil)
			return true, nil
		}
		gl, err := parseGrepLine(line)
		if err != nil {
			return false, err
		}
		last := len(cur.Hunks) - 1
		cur.Hunks[last] = append(cur.Hunks[last], gl)
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("grep %q: %w", query, err)
	}
	finish()
	return results, nil
}

// parseGrepLine parses "12:text" (match) or "12-text" (context).
func parseGrepLine(line string) (GrepLine, error) {
	i := strings.IndexAny(line, ":-")
	if i <= 0 {
		return GrepLine{}, fmt.Errorf("unexpected grep output: %q", line)
	}
	n, err := strconv.Atoi(line[:i])
	if err != nil {
		return GrepLine{}, fmt.Errorf("unexpected grep output: %q", line)
	}
	return GrepLine{Number: n, Text: line[i+1:], Match: line[i] == ':'}, nil
}
