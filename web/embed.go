package web

import "embed"

// FS contains the embedded dashboard assets.
//
//go:embed *.html
var FS embed.FS
