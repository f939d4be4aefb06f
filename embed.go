package bookstore

import "embed"

// EmbeddedAssets contains static assets shipped with the binary:
// form.js and style.css
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
