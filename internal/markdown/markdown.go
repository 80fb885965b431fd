// internal/markdown/markdown.go
package markdown

import (
	"bytes"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"
)

var engine = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		ghtml.WithHardWraps(),
	),
)

// Render converts markdown source to HTML for the preview pane. A
// conversion failure never surfaces as an error: the source is returned
// escaped inside a pre block so the preview always shows something.
func Render(source string) string {
	var buf bytes.Buffer
	if err := engine.Convert([]byte(source), &buf); err != nil {
		return "<pre>" + html.EscapeString(source) + "</pre>"
	}
	return buf.String()
}
