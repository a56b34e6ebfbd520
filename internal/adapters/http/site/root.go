// Package site serves the embedded RSVP page.
package site

import (
	"errors"
	"net/http"
	"path"

	"github.com/gorilla/mux"
)

const indexFile = "/index.html"

// ErrServe is returned when the embedded index page is missing.
var ErrServe = errors.New("site serve failed")

// Register attaches the site as the catch-all route. Register API routes first.
func Register(r *mux.Router) {
	if r == nil {
		panic("router is nil")
	}
	r.PathPrefix("/").Handler(NewRootHandler()).Methods(http.MethodGet, http.MethodHead)
}

// RootHandler serves embedded files and falls back to the index page for
// unknown paths so client-side links keep working.
type RootHandler struct {
	fsys  http.FileSystem
	files http.Handler
}

// NewRootHandler creates a new root handler.
func NewRootHandler() *RootHandler {
	fsys := FS()
	return &RootHandler{fsys: fsys, files: http.FileServer(fsys)}
}

func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)
	if name != "/" && h.exists(name) {
		h.files.ServeHTTP(w, r)
		return
	}
	f, err := h.fsys.Open(indexFile)
	if err != nil {
		http.Error(w, ErrServe.Error(), http.StatusInternalServerError)
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		http.Error(w, ErrServe.Error(), http.StatusInternalServerError)
		return
	}
	http.ServeContent(w, r, "index.html", st.ModTime(), f)
}

func (h *RootHandler) exists(name string) bool {
	f, err := h.fsys.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()
	st, err := f.Stat()
	return err == nil && !st.IsDir()
}
