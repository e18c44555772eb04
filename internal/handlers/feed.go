package handlers

import (
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"
)

// GetFeed serves the current syndication document. The file is replaced
// atomically by the feed generator, so whatever is on disk is always a
// complete snapshot.
func (h *Handlers) GetFeed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/rss+xml")
	http.ServeFile(w, r, h.feedPath)
}

// ServeMedia serves objects stored by the local storage adapter.
func (h *Handlers) ServeMedia(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	filename := filepath.Base(vars["filename"])

	http.ServeFile(w, r, filepath.Join(h.mediaDir, filename))
}
