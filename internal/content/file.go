package content

import (
	"context"
	"os"
	"path/filepath"

	"github.com/keithlinneman/mdpreview/internal/cryptoutil"
	"github.com/keithlinneman/mdpreview/internal/log"
	"github.com/keithlinneman/mdpreview/internal/xerrors"
)

// DefaultMaxSize bounds a single resource read.
const DefaultMaxSize = 8 << 20

type FileOptions struct {
	Logger log.Logger
	// Root is the folder resources are resolved against.
	Root string
	// MaxSize is the largest file returned. Zero means DefaultMaxSize.
	MaxSize int64
}

// FileSource reads resources from a folder on disk.
type FileSource struct {
	root    string
	maxSize int64
	logger  log.Logger
}

// NewFileSource checks that Root is a directory and returns a source over it.
func NewFileSource(opts FileOptions) (*FileSource, error) {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Root == "" {
		opts.Root = "."
	}
	abs, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, xerrors.Wrapf(err, "resolve root %s", opts.Root)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, xerrors.Wrapf(err, "stat root %s", abs)
	}
	if !fi.IsDir() {
		return nil, xerrors.Newf("root %s is not a directory", abs)
	}
	return &FileSource{root: abs, maxSize: opts.MaxSize, logger: opts.Logger}, nil
}

// Root returns the absolute root folder.
func (s *FileSource) Root() string { return s.root }

// Fetch reads the resource and hashes it. Symlinks and ".." cannot leave the root.
func (s *FileSource) Fetch(ctx context.Context, resource string) (Result, error) {
	rel, ok := Rel(resource)
	if !ok {
		s.logger.Warn(ctx, "rejected resource outside root", "resource", resource)
		return Result{}, notFound(resource, nil)
	}
	if !IsMarkdown(rel) {
		s.logger.Debug(ctx, "resource is not markdown, add a .md extension", "resource", resource)
		return Result{}, ErrNotMarkdown
	}

	f, err := os.OpenInRoot(s.root, filepath.FromSlash(rel))
	if err != nil {
		s.logger.Debug(ctx, "could not open resource", "resource", resource, "err", err)
		return Result{}, notFound(resource, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return Result{}, notFound(resource, err)
	}
	if fi.IsDir() {
		return Result{}, notFound(resource, xerrors.Newf("%s is a directory", rel))
	}

	data, sum, err := cryptoutil.ReadAllSHA256(f, s.maxSize)
	if err != nil {
		s.logger.Warn(ctx, "could not read resource", "resource", resource, "err", err)
		return Result{}, notFound(resource, err)
	}
	return Result{Text: string(data), Digest: Digest(sum)}, nil
}
