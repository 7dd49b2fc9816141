// ABOUTME: Server-side markdown rendering for chat replies
// ABOUTME: Agents answer in markdown; the browser receives sanitized-enough HTML

package web

import (
	"bytes"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownOnce sync.Once
	markdown     goldmark.Markdown
)

// RenderMarkdown converts a chat message body to HTML. Raw HTML embedded in
// the markdown is escaped, not passed through.
func RenderMarkdown(source string) (string, error) {
	markdownOnce.Do(func() {
		markdown = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		)
	})

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
