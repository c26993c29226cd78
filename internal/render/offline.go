package render

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v2"

	"github.com/keithlinneman/mdpreview/internal/xerrors"
)

type OfflineOptions struct {
	// SafeMode drops raw HTML from the Markdown source.
	SafeMode bool
	// SkipFrontMatter renders a leading YAML block as Markdown instead of a table.
	SkipFrontMatter bool
}

// Offline renders with goldmark. A goldmark.Markdown is safe for concurrent
// use so one engine serves every request.
type Offline struct {
	engine      goldmark.Markdown
	frontMatter bool
}

var yamlFrontMatter = frontmatter.NewFormat("---", "---", yaml.Unmarshal)

// NewOffline builds an engine with the GFM extensions plus footnotes,
// definition lists and typographer.
func NewOffline(opts OfflineOptions) *Offline {
	rendererOptions := []renderer.Option{}
	if !opts.SafeMode {
		rendererOptions = append(rendererOptions, gmhtml.WithUnsafe())
	}

	engine := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			extension.DefinitionList,
			extension.Typographer,
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(rendererOptions...),
	)
	return &Offline{engine: engine, frontMatter: !opts.SkipFrontMatter}
}

func (o *Offline) Render(ctx context.Context, md string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", unavailable(md, "Render cancelled", err)
	}

	var buf bytes.Buffer
	body := []byte(md)
	if o.frontMatter {
		var meta yaml.MapSlice
		rest, err := frontmatter.Parse(strings.NewReader(md), &meta, yamlFrontMatter)
		// a malformed block is rendered as plain Markdown
		if err == nil && len(meta) > 0 {
			writeFrontMatter(&buf, meta)
			body = rest
		}
	}

	if err := o.engine.Convert(body, &buf); err != nil {
		return "", unavailable(md, "Could not convert markdown", xerrors.Wrap(err, "goldmark convert"))
	}
	return buf.String(), nil
}

// writeFrontMatter renders metadata as a one-row table, the way forges
// show it above a document.
func writeFrontMatter(buf *bytes.Buffer, meta yaml.MapSlice) {
	buf.WriteString("<table>\n<thead>\n<tr>\n")
	for _, item := range meta {
		fmt.Fprintf(buf, "<th>%s</th>\n", html.EscapeString(fmt.Sprint(item.Key)))
	}
	buf.WriteString("</tr>\n</thead>\n<tbody>\n<tr>\n")
	for _, item := range meta {
		buf.WriteString("<td>")
		writeValue(buf, item.Value)
		buf.WriteString("</td>\n")
	}
	buf.WriteString("</tr>\n</tbody>\n</table>\n")
}

func writeValue(buf *bytes.Buffer, v any) {
	switch val := v.(type) {
	case nil:
	case yaml.MapSlice:
		writeFrontMatter(buf, val)
	case []any:
		buf.WriteString("<table>\n<tbody>\n<tr>\n")
		for _, item := range val {
			buf.WriteString("<td>")
			writeValue(buf, item)
			buf.WriteString("</td>\n")
		}
		buf.WriteString("</tr>\n</tbody>\n</table>\n")
	default:
		buf.WriteString(html.EscapeString(fmt.Sprint(val)))
	}
}
