package git

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// maxLineSize bounds a single line of git output.
var maxLineSize = 16 << 20

var gitBinary = "git"

// runGit runs git against the handle's git directory and returns stdout.
// With allowExit1, exit status 1 without stderr output counts as success
// (git grep reports "no match" that way).
func (r *Repository) runGit(ctx context.Context, allowExit1 bool, args ...string) ([]byte, error) {
	if err := requireGitOnce(); err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, gitBinary, r.gitArgs(args)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var exitErr *exec.ExitError
		if allowExit1 && errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && stderr.Len() == 0 {
			return stdout.Bytes(), nil
		}
		return nil, &ToolError{Tool: gitBinary, Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.Bytes(), nil
}

// streamGit runs git and feeds stdout to fn one line at a time. Once fn asks
// to stop, the process is killed and the rest of its output is discarded.
func (r *Repository) streamGit(ctx context.Context, allowExit1 bool, args []string, fn func(line string) (more bool, err error)) error {
	if err := requireGitOnce(); err != nil {
		return err
	}
	procCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	cmd := exec.CommandContext(procCtx, gitBinary, r.gitArgs(args)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return &ToolError{Tool: gitBinary, Args: args, Err: err}
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, min(64*1024, maxLineSize)), maxLineSize)
	stopped := false
	var fnErr error
	for scanner.Scan() {
		more, err := fn(scanner.Text())
		if err != nil {
			fnErr = err
		}
		if err != nil || !more {
			stopped = true
			break
		}
	}
	scanErr := scanner.Err()
	if stopped || scanErr != nil {
		// git may be blocked writing output nobody will read.
		cancel()
	}
	waitErr := cmd.Wait()

	switch {
	case fnErr != nil:
		return fnErr
	case ctx.Err() != nil:
		return ctx.Err()
	case stopped:
		return nil
	case scanErr != nil:
		return fmt.Errorf("read %s output: %w", args[0], scanErr)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if allowExit1 && errors.As(waitErr, &exitErr) && exitErr.ExitCode() == 1 && stderr.Len() == 0 {
			return nil
		}
		return &ToolError{Tool: gitBinary, Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: waitErr}
	}
	return nil
}

func (r *Repository) gitArgs(args []string) []string {
	return append([]string{"--git-dir", r.gitDir}, args...)
}

// Patch returns c formatted as an email patch.
func (r *Repository) Patch(ctx context.Context, c *object.Commit) ([]byte, error) {
	return r.runGit(ctx, false, "format-patch", "--stdout", "-1", c.Hash.String())
}

// Archive writes the snapshot of c to output using git archive. format is
// one of git archive's container formats ("zip", "tar"); prefix is
// prepended to every path.
func (r *Repository) Archive(ctx context.Context, c *object.Commit, format, prefix, output string) error {
	_, err := r.runGit(ctx, false, "archive", "--format", format, "--prefix", prefix, "--output", output, c.Hash.String())
	return err
}
