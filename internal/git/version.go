package git

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// minGitVersion is the oldest git whose blame porcelain, grep --heading and
// --break, archive and format-patch output we parse.
var minGitVersion = gitVersion{2, 11, 0}

type gitVersion struct {
	major, minor, patch int
}

func (v gitVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.major, v.minor, v.patch)
}

func (v gitVersion) less(o gitVersion) bool {
	if v.major != o.major {
		return v.major < o.major
	}
	if v.minor != o.minor {
		return v.minor < o.minor
	}
	return v.patch < o.patch
}

// parseGitVersion accepts "git version 2.44.0", vendor suffixes such as
// "2.39.3 (Apple Git-146)" or "2.39.3.windows.1", and a bare "2.42".
func parseGitVersion(out string) (gitVersion, bool) {
	s := strings.TrimSpace(out)
	s = strings.TrimSpace(strings.TrimPrefix(s, "git version"))
	s = strings.TrimLeftFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	end := strings.IndexFunc(s, func(r rune) bool { return (r < '0' || r > '9') && r != '.' })
	if end >= 0 {
		s = s[:end]
	}
	parts := strings.Split(strings.Trim(s, "."), ".")
	if len(parts) < 2 {
		return gitVersion{}, false
	}
	var nums [3]int
	for i := 0; i < len(parts) && i < 3; i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			if i == 2 {
				break
			}
			return gitVersion{}, false
		}
		nums[i] = n
	}
	return gitVersion{nums[0], nums[1], nums[2]}, true
}

var gitVersionOnce = sync.OnceValues(func() (string, error) {
	out, err := exec.Command(gitBinary, "--version").CombinedOutput()
	text := strings.TrimSpace(string(out))
	if err != nil {
		return text, &ToolError{Tool: gitBinary, Args: []string{"--version"}, Stderr: text, Err: err}
	}
	return text, nil
})

// GitVersion reports the output of git --version.
func GitVersion() (string, error) {
	return gitVersionOnce()
}

func checkGitVersion(out string) error {
	v, ok := parseGitVersion(out)
	if !ok {
		return fmt.Errorf("unable to parse git version output: %q", out)
	}
	if v.less(minGitVersion) {
		return fmt.Errorf("git %s is too old, need at least %s", v, minGitVersion)
	}
	return nil
}

var requireGitOnce = sync.OnceValue(func() error {
	out, err := GitVersion()
	if err != nil {
		return err
	}
	if err := checkGitVersion(out); err != nil {
		return &ToolError{Tool: gitBinary, Args: []string{"--version"}, Err: err}
	}
	return nil
})
