package git

import (
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type RefKind uint8

const (
	RefKindHead RefKind = iota
	RefKindTag
)

func (k RefKind) String() string {
	if k == RefKindTag {
		return "tag"
	}
	return "head"
}

type Ref struct {
	Kind RefKind
	Name string // short name: main, feature/x, v1.0
	Hash plumbing.Hash
}

// TagInfo is a tag as shown in a tag listing. Tag is nil for lightweight tags.
type TagInfo struct {
	Name   string
	Tag    *object.Tag
	Commit *object.Commit
}

// When returns the tagger time for annotated tags and the commit time otherwise.
func (t TagInfo) When() time.Time {
	if t.Tag != nil && !t.Tag.Tagger.When.IsZero() {
		return t.Tag.Tagger.When
	}
	return t.Commit.Committer.When
}

type EntryKind uint8

const (
	EntryFile EntryKind = iota
	EntryExecutable
	EntrySymlink
	EntryDirectory
	EntrySubmodule
)

func (k EntryKind) String() string {
	switch k {
	case EntryExecutable:
		return "executable"
	case EntrySymlink:
		return "symlink"
	case EntryDirectory:
		return "directory"
	case EntrySubmodule:
		return "submodule"
	default:
		return "file"
	}
}

type TreeEntry struct {
	Name string
	Mode filemode.FileMode
	Kind EntryKind
	Hash plumbing.Hash
}

func entryKind(mode filemode.FileMode) EntryKind {
	switch mode {
	case filemode.Dir:
		return EntryDirectory
	case filemode.Executable:
		return EntryExecutable
	case filemode.Symlink:
		return EntrySymlink
	case filemode.Submodule:
		return EntrySubmodule
	default:
		return EntryFile
	}
}

// BlameCommit holds the per-commit metadata git blame reports once per commit.
type BlameCommit struct {
	Hash       string
	Author     string
	AuthorMail string
	AuthorTime time.Time
	CommitTime time.Time
	Summary    string
	// Previous is "<hash> <path>" of the commit the line came from before
	// Hash touched it. Empty for boundary commits.
	Previous string
	Boundary bool
}

type BlameLine struct {
	Content  string
	OrigLine int
	Line     int
	Commit   *BlameCommit
}

// LastChangedRecord attributes a tree entry, identified by its name and
// current object id, to the commit that last modified it.
type LastChangedRecord struct {
	Name   string
	Hash   plumbing.Hash
	Commit *object.Commit
}

// LastChanged maps immediate entry names of a directory to their record.
type LastChanged map[string]LastChangedRecord
