package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// Blame attributes each line of the file at p as of c to a commit, in line
// order. A positive limit stops git after that many lines.
func (r *Repository) Blame(ctx context.Context, c *object.Commit, p string, limit int) ([]BlameLine, error) {
	p = strings.Trim(p, "/")
	if _, err := r.FileAt(c, p); err != nil {
		return nil, err
	}
	parser := newBlameParser()
	args := []string{"blame", "-p", c.Hash.String(), "--", p}
	err := r.streamGit(ctx, false, args, func(line string) (bool, error) {
		if err := parser.feed(line); err != nil {
			return false, err
		}
		return limit <= 0 || len(parser.lines) < limit, nil
	})
	if err != nil {
		return nil, fmt.Errorf("blame %s: %w", p, err)
	}
	return parser.lines, nil
}

// BlameLastModified approximates when the file at p last changed as the
// newest commit time among its blame lines. It is a cheaper, coarser
// alternative to LastChanged and the two are never mixed.
func (r *Repository) BlameLastModified(ctx context.Context, c *object.Commit, p string) (time.Time, error) {
	lines, err := r.Blame(ctx, c, p, 0)
	if err != nil {
		return time.Time{}, err
	}
	var newest time.Time
	for _, l := range lines {
		if l.Commit.CommitTime.After(newest) {
			newest = l.Commit.CommitTime
		}
	}
	return newest, nil
}

// blameParser consumes git blame --porcelain output. Commit metadata is
// only printed the first time a commit appears, so commits are shared
// between lines.
type blameParser struct {
	commits map[string]*BlameCommit
	cur     *BlameCommit
	orig    int
	final   int
	lines   []BlameLine
}

func newBlameParser() *blameParser {
	return &blameParser{commits: map[string]*BlameCommit{}}
}

func (p *blameParser) feed(line string) error {
	if p.cur == nil {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return fmt.Errorf("unexpected blame header: %q", line)
		}
		orig, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("unexpected blame header: %q", line)
		}
		final, err := strconv.Atoi(fields[2])
		if err != nil {
			return fmt.Errorf("unexpected blame header: %q", line)
		}
		c, ok := p.commits[fields[0]]
		if !ok {
			c = &BlameCommit{Hash: fields[0]}
			p.commits[fields[0]] = c
		}
		p.cur, p.orig, p.final = c, orig, final
		return nil
	}
	if content, ok := strings.CutPrefix(line, "\t"); ok {
		p.lines = append(p.lines, BlameLine{Content: content, OrigLine: p.orig, Line: p.final, Commit: p.cur})
		p.cur = nil
		return nil
	}
	key, val, _ := strings.Cut(line, " ")
	switch key {
	case "boundary":
		p.cur.Boundary = true
		p.cur.Previous = ""
	case "previous":
		p.cur.Previous = val
	case "author":
		p.cur.Author = val
	case "author-mail":
		p.cur.AuthorMail = strings.Trim(val, "<>")
	case "author-time":
		p.cur.AuthorTime = parseBlameTime(val, p.cur.AuthorTime)
	case "author-tz":
		p.cur.AuthorTime = p.cur.AuthorTime.In(parseTZ(val))
	case "committer-time":
		p.cur.CommitTime = parseBlameTime(val, p.cur.CommitTime)
	case "committer-tz":
		p.cur.CommitTime = p.cur.CommitTime.In(parseTZ(val))
	case "summary":
		p.cur.Summary = val
	}
	return nil
}

func parseBlameTime(val string, fallback time.Time) time.Time {
	sec, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return fallback
	}
	return time.Unix(sec, 0)
}

// parseTZ turns "+0200" into a fixed zone.
func parseTZ(tz string) *time.Location {
	if len(tz) != 5 {
		return time.UTC
	}
	hours, err1 := strconv.Atoi(tz[1:3])
	mins, err2 := strconv.Atoi(tz[3:5])
	if err1 != nil || err2 != nil {
		return time.UTC
	}
	offset := hours*3600 + mins*60
	if tz[0] == '-' {
		offset = -offset
	}
	return time.FixedZone(tz, offset)
}
