//go:build ui_embed

// Package ui serves the EQ editor page that drives the session API.
package ui

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// Build with: go build -tags ui_embed .
// Requires the editor build output in ui/dist.

//go:embed all:dist
var distFS embed.FS

// Handler serves the embedded editor. Paths without an extension fall back
// to index.html so client-side routes resolve.
func Handler() (http.Handler, error) {
	fsys, err := fs.Sub(distFS, "dist")
	if err != nil {
		return nil, err
	}
	files := http.FileServer(http.FS(fsys))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := path.Clean(r.URL.Path)
		if isFile(fsys, strings.TrimPrefix(p, "/")) {
			files.ServeHTTP(w, r)
			return
		}
		if !strings.Contains(path.Base(p), ".") {
			r.URL.Path = "/"
		}
		files.ServeHTTP(w, r)
	}), nil
}

func isFile(fsys fs.FS, name string) bool {
	st, err := fs.Stat(fsys, name)
	return err == nil && !st.IsDir()
}
