package httpcache

import (
	"path"
	"strings"
)

// Policy holds Cache-Control values per resource kind.
type Policy struct {
	// Page applies to rendered Markdown. It must force revalidation since
	// the file can change at any time.
	Page string
	// Asset applies to bundled fonts and stylesheets.
	Asset string
	// Other applies to anything else.
	Other string
}

// DefaultPolicy revalidates pages on every view and lets assets live for an hour.
func DefaultPolicy() Policy {
	return Policy{
		Page:  "no-cache",
		Asset: "public, max-age=3600",
		Other: "no-store",
	}
}

// ForFile picks the Cache-Control value by file extension.
func (p Policy) ForFile(name string) string {
	ext := strings.ToLower(path.Ext(name))

	switch ext {
	case ".md", ".markdown", ".html":
		return p.Page

	case ".css", ".js",
		".png", ".jpg", ".jpeg", ".webp", ".gif", ".svg", ".ico",
		".woff", ".woff2", ".ttf", ".eot":
		return p.Asset

	default:
		// the index route has no extension
		if ext == "" {
			return p.Page
		}
		return p.Other
	}
}
