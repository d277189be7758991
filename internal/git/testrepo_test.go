package git

import (
	"cmp"
	"io"
	"os/exec"
	"slices"
	"strings"
	"testing"
	"time"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var testEpoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// testRepo writes objects straight into a bare repository so tests control
// every timestamp and never depend on the git binary.
type testRepo struct {
	t     *testing.T
	dir   string
	repo  *gitlib.Repository
	clock int
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := gitlib.PlainInit(dir, true)
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}
	return &testRepo{t: t, dir: dir, repo: repo}
}

func (tr *testRepo) store(o interface {
	Encode(plumbing.EncodedObject) error
}) plumbing.Hash {
	tr.t.Helper()
	obj := tr.repo.Storer.NewEncodedObject()
	if err := o.Encode(obj); err != nil {
		tr.t.Fatalf("encode object: %v", err)
	}
	h, err := tr.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		tr.t.Fatalf("store object: %v", err)
	}
	return h
}

func (tr *testRepo) blob(content string) plumbing.Hash {
	tr.t.Helper()
	obj := tr.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		tr.t.Fatalf("blob writer: %v", err)
	}
	if _, err := io.WriteString(w, content); err != nil {
		tr.t.Fatalf("write blob: %v", err)
	}
	if err := w.Close(); err != nil {
		tr.t.Fatalf("close blob: %v", err)
	}
	h, err := tr.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		tr.t.Fatalf("store blob: %v", err)
	}
	return h
}

// tree builds a tree from slash separated paths. A path prefixed with "x:"
// is stored as an executable and one prefixed with "l:" as a symlink.
func (tr *testRepo) tree(files map[string]string) plumbing.Hash {
	tr.t.Helper()
	type node struct {
		mode    filemode.FileMode
		content string
	}
	direct := map[string]node{}
	nested := map[string]map[string]string{}
	for p, content := range files {
		mode := filemode.Regular
		switch {
		case strings.HasPrefix(p, "x:"):
			mode, p = filemode.Executable, p[2:]
		case strings.HasPrefix(p, "l:"):
			mode, p = filemode.Symlink, p[2:]
		}
		if dir, rest, ok := strings.Cut(p, "/"); ok {
			if nested[dir] == nil {
				nested[dir] = map[string]string{}
			}
			prefix := ""
			switch mode {
			case filemode.Executable:
				prefix = "x:"
			case filemode.Symlink:
				prefix = "l:"
			}
			nested[dir][prefix+rest] = content
			continue
		}
		direct[p] = node{mode: mode, content: content}
	}
	var entries []object.TreeEntry
	for name, n := range direct {
		entries = append(entries, object.TreeEntry{Name: name, Mode: n.mode, Hash: tr.blob(n.content)})
	}
	for name, sub := range nested {
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: tr.tree(sub)})
	}
	sortTreeEntries(entries)
	return tr.store(&object.Tree{Entries: entries})
}

// sortTreeEntries applies git's tree order, where directories sort as if
// their name ended in a slash.
func sortTreeEntries(entries []object.TreeEntry) {
	key := func(e object.TreeEntry) string {
		if e.Mode == filemode.Dir {
			return e.Name + "/"
		}
		return e.Name
	}
	slices.SortFunc(entries, func(a, b object.TreeEntry) int {
		return cmp.Compare(key(a), key(b))
	})
}

func (tr *testRepo) treeWith(entries ...object.TreeEntry) plumbing.Hash {
	tr.t.Helper()
	sortTreeEntries(entries)
	return tr.store(&object.Tree{Entries: entries})
}

func (tr *testRepo) signature() object.Signature {
	tr.clock++
	return object.Signature{
		Name:  "Test Author",
		Email: "author@example.com",
		When:  testEpoch.Add(time.Duration(tr.clock) * time.Minute),
	}
}

// commit stores a commit whose timestamp is later than every object
// created before it.
func (tr *testRepo) commit(msg string, tree plumbing.Hash, parents ...plumbing.Hash) plumbing.Hash {
	tr.t.Helper()
	sig := tr.signature()
	return tr.store(&object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      msg,
		TreeHash:     tree,
		ParentHashes: parents,
	})
}

func (tr *testRepo) annotatedTag(name string, target plumbing.Hash, targetType plumbing.ObjectType) plumbing.Hash {
	tr.t.Helper()
	return tr.store(&object.Tag{
		Name:       name,
		Tagger:     tr.signature(),
		Message:    name + "\n",
		TargetType: targetType,
		Target:     target,
	})
}

func (tr *testRepo) setRef(name plumbing.ReferenceName, h plumbing.Hash) {
	tr.t.Helper()
	if err := tr.repo.Storer.SetReference(plumbing.NewHashReference(name, h)); err != nil {
		tr.t.Fatalf("set ref %s: %v", name, err)
	}
}

func (tr *testRepo) branch(name string, h plumbing.Hash) {
	tr.setRef(plumbing.NewBranchReferenceName(name), h)
}

func (tr *testRepo) tag(name string, h plumbing.Hash) {
	tr.setRef(plumbing.NewTagReferenceName(name), h)
}

func (tr *testRepo) open() *Repository {
	tr.t.Helper()
	r, err := Open(tr.dir, Options{})
	if err != nil {
		tr.t.Fatalf("open: %v", err)
	}
	return r
}

func (tr *testRepo) commitObject(r *Repository, h plumbing.Hash) *object.Commit {
	tr.t.Helper()
	c, err := r.commit(h)
	if err != nil {
		tr.t.Fatalf("commit %s: %v", h, err)
	}
	return c
}

// linearHistory creates n commits on master, each touching "n.txt", and
// returns their hashes oldest first.
func (tr *testRepo) linearHistory(n int) []plumbing.Hash {
	tr.t.Helper()
	var hashes []plumbing.Hash
	files := map[string]string{}
	for i := range n {
		files["n.txt"] = strings.Repeat("x\n", i+1)
		var parents []plumbing.Hash
		if i > 0 {
			parents = append(parents, hashes[i-1])
		}
		hashes = append(hashes, tr.commit(commitMessage(i), tr.tree(files), parents...))
	}
	tr.branch("master", hashes[n-1])
	return hashes
}

func commitMessage(i int) string {
	if i%2 == 0 {
		return "even commit " + string(rune('a'+i%26)) + "\n"
	}
	return "odd commit " + string(rune('a'+i%26)) + "\n"
}

func hashesOf(commits []*object.Commit) []plumbing.Hash {
	hashes := make([]plumbing.Hash, len(commits))
	for i, c := range commits {
		hashes[i] = c.Hash
	}
	return hashes
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath(gitBinary); err != nil {
		t.Skip("git binary not available")
	}
}
