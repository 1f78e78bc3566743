// Package web embeds the browser editor.
package web

import "embed"

// Assets holds the built editor under dist/.
//
//go:embed all:dist
var Assets embed.FS
