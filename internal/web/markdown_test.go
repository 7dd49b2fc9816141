// ABOUTME: Tests for markdown rendering of chat replies
// ABOUTME: Verifies GFM features and raw HTML escaping

package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdownBasics(t *testing.T) {
	html, err := RenderMarkdown("some **bold** text")
	require.NoError(t, err)
	assert.Contains(t, html, "<strong>bold</strong>")
}

func TestRenderMarkdownGFMTable(t *testing.T) {
	html, err := RenderMarkdown("| a | b |\n|---|---|\n| 1 | 2 |")
	require.NoError(t, err)
	assert.Contains(t, html, "<table>")
}

func TestRenderMarkdownEscapesRawHTML(t *testing.T) {
	html, err := RenderMarkdown(`before <script>alert("x")</script> after`)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}

func TestRenderMarkdownHardWraps(t *testing.T) {
	html, err := RenderMarkdown("line one\nline two")
	require.NoError(t, err)
	assert.Contains(t, html, "<br")
}
