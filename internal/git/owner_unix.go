//go:build unix

package git

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"
	"syscall"
)

// fileOwner returns the first gecos field of the user owning path, or the
// login name when gecos is empty.
func fileOwner(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return "", nil
	}
	u, err := user.LookupId(strconv.FormatUint(uint64(st.Uid), 10))
	if err != nil {
		return "", nil
	}
	if name, _, _ := strings.Cut(u.Name, ","); name != "" {
		return name, nil
	}
	return u.Username, nil
}
