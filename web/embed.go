// Package web holds the budget page templates and their CSS and JS.
package web

import "embed"

//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS is served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
