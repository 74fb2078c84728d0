package web

import "embed"

// Content holds the embedded dashboard: index.html, app.js and styles.css.
//
//go:embed index.html app.js styles.css
var Content embed.FS
