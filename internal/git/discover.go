package git

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Discover lists the git directories below root: directories named *.git
// and the .git directory of work trees, searching at most depth levels
// below root. Unreadable directories are skipped.
func Discover(root string, depth int) ([]string, error) {
	var repos []string
	if err := discover(root, depth, &repos, true); err != nil {
		return nil, err
	}
	slices.SortFunc(repos, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return repos, nil
}

func discover(dir string, depth int, repos *[]string, top bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if top {
			return err
		}
		slog.Debug("skipping unreadable directory", slog.String("path", dir), slog.Any("error", err))
		return nil
	}
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			continue
		}
		switch {
		case strings.HasSuffix(e.Name(), ".git"):
			*repos = append(*repos, p)
		case isDir(filepath.Join(p, ".git")):
			*repos = append(*repos, filepath.Join(p, ".git"))
		case depth > 0:
			if err := discover(p, depth-1, repos, false); err != nil {
				return err
			}
		}
	}
	return nil
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
