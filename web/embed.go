// Package web holds the board page and its assets, embedded at build time.
package web

import "embed"

// Static is served under /static/
//
//go:embed static
var Static embed.FS

//go:embed static/index.html
var IndexHTML []byte
