// Package web holds the embedded HTML templates and static assets.
package web

import "embed"

//go:embed templates/*.html
var TemplateFiles embed.FS

//go:embed static
var StaticFiles embed.FS
