// Package page composes the HTML documents served for Markdown previews and
// their error pages. Every function is pure: the same inputs always produce
// byte-identical output.
package page

import (
	"html/template"
	"strings"
)

const (
	// LivePrefix is the path prefix of the live-update stream.
	LivePrefix = "/__live-update"

	// ContentID is the id of the element live updates replace.
	ContentID = "mdpreview-content"

	// ErrorTitle is the <title> of error pages.
	ErrorTitle = "mdpreview"
)

// Stylesheets linked from every document, in order.
var Stylesheets = []string{
	"/static/octicons/octicons.css",
	"https://github.githubassets.com/assets/frameworks-146fab5ea30e8afac08dd11013bb4ee0.css",
	"https://github.githubassets.com/assets/site-897ad5fdbe32a5cd67af5d1bdc68a292.css",
	"https://github.githubassets.com/assets/github-c21b6bf71617eeeb67a56b0d48b5bb5c.css",
	"/static/style.css",
}

var documentTmpl = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
{{- range .Stylesheets}}
<link rel="stylesheet" href="{{.}}">
{{- end}}
<title>{{.Title}}</title>
<script>
let hash = '';
let event = new EventSource('//' + location.host + '{{.LivePrefix}}' + location.pathname);
event.addEventListener('update', (e) => {
  let message = JSON.parse(e.data);
  if (message.hash !== hash) {
    hash = message.hash;
    document.getElementById('{{.ContentID}}').innerHTML = message.contents;
  }
});
</script>
</head>
<body>
{{.Body}}
</body>
</html>
`))

var markdownTmpl = template.Must(template.New("markdown").Parse(`<div class="page">
<div id="preview-page" class="preview-page">
<div role="main" class="main-content">
<div class="container new-discussion-timeline experiment-repo-nav">
<div class="repository-content">
<div id="readme" class="readme boxed-group clearfix announce instapaper_body md">
<h3><span class="octicon octicon-book"></span> {{.Name}}</h3>
<article id="{{.ContentID}}" class="markdown-body entry-content" itemprop="text">
{{.HTML}}
</article>
</div>
</div>
</div>
</div>
</div>
<div>&nbsp;</div>
</div>`))

var notMarkdownTmpl = template.Must(template.New("notmarkdown").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<h1>Not a Markdown File</h1>
<p><strong>{{.Path}}</strong> is not a markdown file and cannot be rendered</p>
</body>
</html>
`))

var notFoundTmpl = template.Must(template.New("notfound").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<h1>Couldn't find {{.Path}}</h1>
<p>For the index page <em>mdpreview</em> will look for a file named README.md in the root folder. Otherwise it looks for an exact file name.</p>
</body>
</html>
`))

// execute runs one of the fixed templates above. They only interpolate
// strings, so execution cannot fail short of a programming error.
func execute(t *template.Template, data any) string {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		panic("page: " + t.Name() + ": " + err.Error())
	}
	return b.String()
}

// Document wraps body in a complete HTML document that subscribes to live
// updates for the current path. body is inserted verbatim.
func Document(title, body string) string {
	return execute(documentTmpl, struct {
		Title       string
		Body        template.HTML
		Stylesheets []string
		LivePrefix  string
		ContentID   string
	}{title, template.HTML(body), Stylesheets, LivePrefix, ContentID})
}

// Markdown wraps rendered HTML in the readme container. html is inserted
// verbatim; name is escaped.
func Markdown(name, html string) string {
	return execute(markdownTmpl, struct {
		Name      string
		HTML      template.HTML
		ContentID string
	}{name, template.HTML(html), ContentID})
}

// NotMarkdown is the 400 page for a resource without a Markdown extension.
func NotMarkdown(path string) string {
	return execute(notMarkdownTmpl, struct{ Title, Path string }{ErrorTitle, path})
}

// NotFound is the 404 page for a missing resource.
func NotFound(path string) string {
	return execute(notFoundTmpl, struct{ Title, Path string }{ErrorTitle, path})
}
