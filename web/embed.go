// Package web holds the server-rendered pages and their stylesheet.
package web

import "embed"

// TemplatesFS embeds the login and dashboard templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

//go:embed static/*
var StaticFS embed.FS
