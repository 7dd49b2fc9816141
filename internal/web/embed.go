// ABOUTME: Embeds the single-page browser UI into the binary
// ABOUTME: The binary ships self-contained; no static file directory to deploy

package web

import _ "embed"

//go:embed static/index.html
var indexHTML []byte
