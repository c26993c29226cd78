package content

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/keithlinneman/mdpreview/internal/pathutil"
)

// IndexResource is served for the site root.
const IndexResource = "README.md"

// Digest is the lowercase hex SHA-256 of a resource's bytes as stored.
type Digest string

// Result is one fetch of a resource. It is never cached.
type Result struct {
	Text   string
	Digest Digest
}

// Source fetches Markdown resources.
type Source interface {
	Fetch(ctx context.Context, resource string) (Result, error)
}

// ErrNotMarkdown is returned for resources without a Markdown extension.
var ErrNotMarkdown = errors.New("the file was not markdown")

// NotFoundError reports a resource that could not be fetched. Err holds the
// underlying cause when there is one.
type NotFoundError struct {
	Resource string
	Err      error
}

func (e *NotFoundError) Error() string {
	return "could not find " + DisplayName(e.Resource)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// DisplayName strips the leading "./" that page resources carry.
func DisplayName(resource string) string {
	return strings.TrimPrefix(resource, "./")
}

// IsMarkdown reports whether name has a Markdown extension.
func IsMarkdown(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// Rel converts a resource identifier ("README.md", "./docs/a.md") into a
// slash-separated path relative to the source root. ok is false when the
// identifier could point outside the root.
func Rel(resource string) (rel string, ok bool) {
	return pathutil.CleanRel(resource)
}

func notFound(resource string, err error) error {
	return &NotFoundError{Resource: resource, Err: err}
}
