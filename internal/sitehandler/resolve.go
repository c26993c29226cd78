package sitehandler

import (
	"path"
	"strings"

	"github.com/keithlinneman/mdpreview/internal/content"
)

// resolvePage maps a URL path to the resource it previews and the page title.
// The root maps to the index resource; every other path is taken relative to
// the source root. Validation happens in the source.
func resolvePage(urlPath string) (resource, title string) {
	if urlPath == "" || urlPath == "/" {
		return content.IndexResource, content.IndexResource
	}
	if !strings.HasPrefix(urlPath, "/") {
		urlPath = "/" + urlPath
	}
	return "." + urlPath, path.Base(urlPath)
}

// resolveLive maps the remainder of a live-update URL (after the prefix) to
// the resource the stream watches.
func resolveLive(rest string) string {
	if rest == "" || rest == "/" {
		return content.IndexResource
	}
	resource, _ := resolvePage(rest)
	return resource
}
