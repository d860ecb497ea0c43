package server

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/analog-home/analog/internal/api"
)

// uiFS holds the embedded visitor UI. Set via SetUI before creating the server.
var uiFS fs.FS

// SetUI sets the embedded filesystem for serving the visitor UI.
func SetUI(fsys fs.FS) {
	uiFS = fsys
}

// spaHandler serves static files from the embedded FS with SPA fallback.
// Any GET path not matching a real file returns index.html; other
// methods on unknown paths are a JSON 404.
func spaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			writeJSON(w, http.StatusNotFound, api.Error{Detail: "not found", Code: api.CodeNotFound})
			return
		}
		if uiFS == nil {
			writeJSON(w, http.StatusNotFound, api.Error{Detail: "UI not embedded", Code: api.CodeNotFound})
			return
		}

		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}

		// Try to open the requested file
		f, err := uiFS.Open(path)
		if err != nil {
			// SPA fallback for client-side routes such as /archives
			path = "index.html"
		} else {
			f.Close()
		}

		http.ServeFileFS(w, r, uiFS, path)
	}
}
