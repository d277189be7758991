package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pmezard/go-difflib/difflib"
)

const diffContextLines = 3

type FileDiff struct {
	Path string
	// OldPath is set when the file was renamed.
	OldPath string
	Added   int
	Deleted int
	Binary  bool
	Patch   string
}

// CommitDiff is a commit compared with its first parent, or with the empty
// tree for root commits.
type CommitDiff struct {
	Commit  *object.Commit
	Files   []FileDiff
	Added   int
	Deleted int
}

func (r *Repository) Diff(ctx context.Context, c *object.Commit) (*CommitDiff, error) {
	tree, err := r.tree(c.TreeHash)
	if err != nil {
		return nil, err
	}
	var parentTree *object.Tree
	if len(c.ParentHashes) > 0 {
		parent, err := r.commit(c.ParentHashes[0])
		if err != nil {
			return nil, err
		}
		if parentTree, err = r.tree(parent.TreeHash); err != nil {
			return nil, err
		}
	}
	changes, err := object.DiffTreeWithOptions(ctx, parentTree, tree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, fmt.Errorf("diff %s: %w", c.Hash, err)
	}
	d := &CommitDiff{Commit: c}
	for _, change := range changes {
		fd, err := fileDiff(change)
		if err != nil {
			return nil, fmt.Errorf("diff %s: %w", c.Hash, err)
		}
		d.Added += fd.Added
		d.Deleted += fd.Deleted
		d.Files = append(d.Files, fd)
	}
	return d, nil
}

func fileDiff(change *object.Change) (FileDiff, error) {
	fd := FileDiff{Path: change.To.Name}
	if fd.Path == "" {
		fd.Path = change.From.Name
	} else if change.From.Name != "" && change.From.Name != change.To.Name {
		fd.OldPath = change.From.Name
	}
	if change.From.TreeEntry.Mode == filemode.Submodule || change.To.TreeEntry.Mode == filemode.Submodule {
		return fd, nil
	}
	from, to, err := change.Files()
	if err != nil {
		return fd, err
	}
	if fd.Binary, err = isBinary(from, to); err != nil || fd.Binary {
		return fd, err
	}
	fromLines, err := fileLines(from)
	if err != nil {
		return fd, err
	}
	toLines, err := fileLines(to)
	if err != nil {
		return fd, err
	}
	for _, op := range difflib.NewMatcher(fromLines, toLines).GetOpCodes() {
		switch op.Tag {
		case 'r':
			fd.Deleted += op.I2 - op.I1
			fd.Added += op.J2 - op.J1
		case 'd':
			fd.Deleted += op.I2 - op.I1
		case 'i':
			fd.Added += op.J2 - op.J1
		}
	}
	fromName, toName := "/dev/null", "/dev/null"
	if from != nil {
		fromName = "a/" + from.Name
	}
	if to != nil {
		toName = "b/" + to.Name
	}
	fd.Patch, err = difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        fromLines,
		B:        toLines,
		FromFile: fromName,
		ToFile:   toName,
		Context:  diffContextLines,
	})
	return fd, err
}

func isBinary(files ...*object.File) (bool, error) {
	for _, f := range files {
		if f == nil {
			continue
		}
		bin, err := f.IsBinary()
		if err != nil || bin {
			return bin, err
		}
	}
	return false, nil
}

func fileLines(f *object.File) ([]string, error) {
	if f == nil {
		return []string{}, nil
	}
	content, err := f.Contents()
	if err != nil {
		return nil, err
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	} else {
		lines[len(lines)-1] += "\n"
	}
	return lines, nil
}
