// Package static embeds the viewer web page.
package static

import "embed"

//go:embed index.html
var Content embed.FS
