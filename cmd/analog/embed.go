package main

import (
	"embed"
	"io/fs"

	"github.com/analog-home/analog/internal/server"
)

// The ui directory holds the built visitor UI; a placeholder page ships
// so the embed always has something to serve.
//
//go:embed all:ui
var uiDist embed.FS

func init() {
	sub, err := fs.Sub(uiDist, "ui")
	if err != nil {
		return
	}
	server.SetUI(sub)
}
