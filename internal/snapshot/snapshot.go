package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/thiagokokada/gitbrowse/internal/git"
)

var (
	ErrUnknownFormat = errors.New("unknown snapshot format")
	ErrArchive       = errors.New("snapshot failed")
)

type Format uint8

const (
	Zip Format = iota
	TarGzip
	TarBzip2
	TarXz
)

type compressor func(ctx context.Context, dst io.Writer, src io.Reader) error

type formatInfo struct {
	name      string
	container string
	ext       string
	compress  compressor
}

var formats = map[Format]formatInfo{
	Zip:      {name: "zip", container: "zip", ext: "zip"},
	TarGzip:  {name: "tar.gz", container: "tar", ext: "tar.gz", compress: gzipCompress},
	TarBzip2: {name: "tar.bz2", container: "tar", ext: "tar.bz2", compress: externalCompress("bzip2", "-9", "-c")},
	TarXz:    {name: "tar.xz", container: "tar", ext: "tar.xz", compress: externalCompress("xz", "-c")},
}

// ParseFormat accepts a full extension ("tar.gz") or the short names used
// in download links ("gz", "tgz", "bz2", "xz", "zip").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "zip":
		return Zip, nil
	case "gz", "tgz", "tar.gz":
		return TarGzip, nil
	case "bz2", "tbz2", "tar.bz2":
		return TarBzip2, nil
	case "xz", "txz", "tar.xz":
		return TarXz, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) String() string { return formats[f].name }

// Ext is the file extension without the leading dot.
func (f Format) Ext() string { return formats[f].ext }

// ArchiveError reports which step of building a snapshot failed, with the
// external tool's diagnostic output when there is one.
type ArchiveError struct {
	Step   string
	Stderr string
	Err    error
}

func (e *ArchiveError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("snapshot %s: %v: %s", e.Step, e.Err, e.Stderr)
	}
	return fmt.Sprintf("snapshot %s: %v", e.Step, e.Err)
}

func (e *ArchiveError) Unwrap() []error { return []error{ErrArchive, e.Err} }

func archiveError(step string, err error) error {
	ae := &ArchiveError{Step: step, Err: err}
	var toolErr *git.ToolError
	if errors.As(err, &toolErr) {
		ae.Stderr = toolErr.Stderr
	}
	return ae
}

// Source is the part of a repository a Builder needs.
type Source interface {
	Name() string
	Describe(ctx context.Context, c *object.Commit) (string, error)
	Archive(ctx context.Context, c *object.Commit, format, prefix, output string) error
}

type Snapshot struct {
	// Path is the cached archive on disk.
	Path string
	// Filename is the suggested download name.
	Filename string
	Format   Format
}

// Builder produces archives of commits and keeps them in a cache directory,
// one subdirectory per repository. Once an archive exists in the cache it is
// returned as is.
type Builder struct {
	dir string

	mu       sync.Mutex
	inflight map[string]*build
}

type build struct {
	done chan struct{}
	err  error
}

func New(dir string) *Builder {
	return &Builder{dir: dir, inflight: map[string]*build{}}
}

func (b *Builder) Dir() string { return b.dir }

// Build returns the archive of c in format f, generating it when it is not
// cached yet. Concurrent requests for the same archive share one build.
func (b *Builder) Build(ctx context.Context, src Source, c *object.Commit, f Format) (*Snapshot, error) {
	info, ok := formats[f]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, f)
	}
	desc, err := src.Describe(ctx, c)
	if err != nil {
		return nil, archiveError("describe", err)
	}
	base := dashed(src.Name()) + "-" + dashed(desc)
	prefix := src.Name() + "-" + dashed(desc) + "/"
	snap := &Snapshot{
		Path:     filepath.Join(b.dir, cacheKey(src.Name()), cacheKey(desc)+"."+info.ext),
		Filename: base + "." + info.ext,
		Format:   f,
	}
	if exists(snap.Path) {
		slog.Debug("snapshot cache hit", slog.String("path", snap.Path))
		return snap, nil
	}

	for {
		b.mu.Lock()
		running, ok := b.inflight[snap.Path]
		if !ok {
			break
		}
		b.mu.Unlock()
		select {
		case <-running.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if running.err == nil {
			return snap, nil
		}
		// A build abandoned by its own caller is retried by the next one
		// still waiting.
		if !isContextErr(running.err) || ctx.Err() != nil {
			return nil, running.err
		}
	}
	running := &build{done: make(chan struct{})}
	b.inflight[snap.Path] = running
	b.mu.Unlock()

	running.err = b.generate(ctx, src, c, info, base, prefix, snap.Path)

	b.mu.Lock()
	delete(b.inflight, snap.Path)
	b.mu.Unlock()
	close(running.done)

	if running.err != nil {
		return nil, running.err
	}
	return snap, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (b *Builder) generate(ctx context.Context, src Source, c *object.Commit, info formatInfo, base, prefix, final string) error {
	if exists(final) {
		return nil
	}
	dir := filepath.Dir(final)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return archiveError("mkdir", err)
	}
	tmp := filepath.Join(dir, ".tmp-"+uuid.NewString()+"-"+base)
	raw := tmp + "." + info.container
	defer os.Remove(raw)

	if err := src.Archive(ctx, c, info.container, prefix, raw); err != nil {
		return archiveError("archive", err)
	}
	out := raw
	if info.compress != nil {
		out = tmp + "." + info.ext
		defer os.Remove(out)
		if err := compressFile(ctx, info.compress, raw, out); err != nil {
			return archiveError("compress", err)
		}
	}
	if err := os.Rename(out, final); err != nil {
		return archiveError("rename", err)
	}
	var size uint64
	if st, err := os.Stat(final); err == nil {
		size = uint64(st.Size())
	}
	slog.Info("snapshot created",
		slog.String("path", final),
		slog.String("commit", c.Hash.String()),
		slog.String("size", humanize.Bytes(size)),
	)
	return nil
}

func compressFile(ctx context.Context, compress compressor, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := compress(ctx, out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func gzipCompress(_ context.Context, dst io.Writer, src io.Reader) error {
	zw, err := gzip.NewWriterLevel(dst, gzip.BestCompression)
	if err != nil {
		return err
	}
	if _, err := io.Copy(zw, src); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func externalCompress(tool string, args ...string) compressor {
	return func(ctx context.Context, dst io.Writer, src io.Reader) error {
		cmd := exec.CommandContext(ctx, tool, args...)
		var stderr strings.Builder
		cmd.Stdin = src
		cmd.Stdout = dst
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return &git.ToolError{Tool: tool, Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
		}
		return nil
	}
}

// cacheKey turns a repository name or describe string into a single path
// element. Unlike dashed it is injective, so "a/b" and "a-b" never share a
// cache entry.
func cacheKey(s string) string {
	key := url.PathEscape(s)
	if strings.HasPrefix(key, ".") {
		key = "%2E" + key[1:]
	}
	return key
}

func dashed(s string) string {
	return strings.ReplaceAll(s, "/", "-")
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
