//go:build !ui_embed

// Package ui serves the EQ editor page that drives the session API.
package ui

import "net/http"

// Handler sends visitors to the API docs when no editor build is embedded.
func Handler() (http.Handler, error) {
	return http.RedirectHandler("/docs", http.StatusFound), nil
}
