package git

import (
	"errors"
	"fmt"
	"strings"
)

// Lookup failures. Callers map these to user facing responses with errors.Is.
var (
	ErrRefNotFound     = errors.New("no such commit or ref")
	ErrPathNotFound    = errors.New("no such file")
	ErrNotAFile        = errors.New("not a file")
	ErrNotADirectory   = errors.New("not a folder")
	ErrEmptyRepository = errors.New("repository has no commits")
	ErrExternalTool    = errors.New("external tool failure")
)

// ToolError reports an abnormal exit of an external program together with
// whatever it wrote to stderr.
type ToolError struct {
	Tool   string
	Args   []string
	Stderr string
	Err    error
}

func (e *ToolError) Error() string {
	var b strings.Builder
	b.WriteString(e.Tool)
	if len(e.Args) > 0 {
		b.WriteByte(' ')
		b.WriteString(e.Args[0])
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	if e.Stderr != "" {
		b.WriteString(": ")
		b.WriteString(e.Stderr)
	}
	return b.String()
}

func (e *ToolError) Unwrap() []error {
	return []error{ErrExternalTool, e.Err}
}

func refNotFound(name string) error {
	return fmt.Errorf("%w: %s", ErrRefNotFound, name)
}

func pathError(kind error, path string) error {
	return fmt.Errorf("%w: %s", kind, path)
}
