// Package webassets bundles the icon font and stylesheet into the binary.
// Validators are computed once at init; the table is read-only afterwards.
package webassets

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/keithlinneman/mdpreview/internal/httpcache"
)

//go:embed static
var embedded embed.FS

// Asset is one bundled file.
type Asset struct {
	Name        string
	Data        []byte
	ContentType string
	ETag        httpcache.Validator
}

// octicon suffixes in match order; .woff2 must be tried before .woff
var octiconKinds = []struct {
	suffix      string
	file        string
	contentType string
}{
	{".css", "octicons/octicons.css", "text/css; charset=utf-8"},
	{".eot", "octicons/octicons.eot", "application/vnd.ms-fontobject"},
	{".svg", "octicons/octicons.svg", "image/svg+xml"},
	{".ttf", "octicons/octicons.ttf", "font/ttf"},
	{".woff2", "octicons/octicons.woff2", "font/woff2"},
	{".woff", "octicons/octicons.woff", "font/woff"},
}

const stylesheet = "style.css"

var table = mustLoad()

func mustLoad() map[string]Asset {
	out := make(map[string]Asset, len(octiconKinds)+1)
	add := func(name, contentType string) {
		data, err := fs.ReadFile(embedded, path.Join("static", name))
		if err != nil {
			panic(fmt.Errorf("webassets: %s: %w", name, err))
		}
		out[name] = Asset{
			Name:        name,
			Data:        data,
			ContentType: contentType,
			ETag:        httpcache.ForPayload(data),
		}
	}
	for _, k := range octiconKinds {
		add(k.file, k.contentType)
	}
	add(stylesheet, "text/css; charset=utf-8")
	return out
}

// Lookup returns the asset stored under name, e.g. "octicons/octicons.ttf".
func Lookup(name string) (Asset, bool) {
	a, ok := table[name]
	return a, ok
}

// Octicon picks the icon font file whose kind matches the suffix of file.
func Octicon(file string) (Asset, bool) {
	for _, k := range octiconKinds {
		if strings.HasSuffix(file, k.suffix) {
			return table[k.file], true
		}
	}
	return Asset{}, false
}

// Stylesheet returns the page stylesheet.
func Stylesheet() Asset { return table[stylesheet] }

// Names lists every bundled asset.
func Names() []string {
	names := make([]string, 0, len(table))
	for n := range table {
		names = append(names, n)
	}
	return names
}
