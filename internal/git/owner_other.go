//go:build !unix

package git

func fileOwner(string) (string, error) {
	return "", nil
}
