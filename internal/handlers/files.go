package handlers

import (
	"errors"
	"net/http"
	"path/filepath"

	"visionvault/internal/filesystem"
	"visionvault/internal/logging"
	"visionvault/internal/mediatypes"
	"visionvault/internal/streaming"
	"visionvault/internal/tagstore"
)

// FolderTree returns the folder hierarchy used by the navigation pane.
func (h *Handlers) FolderTree(w http.ResponseWriter, _ *http.Request) {
	tree := h.lib.Scanner().BuildTree()

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, tree)
}

// ListFiles returns the folders and files of one directory with their
// breadcrumbs. Listing never writes to the stores.
func (h *Handlers) ListFiles(w http.ResponseWriter, r *http.Request) {
	listing, err := h.lib.Scanner().GetDirectory(pathVar(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	logging.Debug("Listed /%s: %d items", listing.Path, len(listing.Items))
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, listing)
}

// ServeFile returns the raw bytes of a file. Hidden files, the stores
// among them, are reported as missing.
func (h *Handlers) ServeFile(w http.ResponseWriter, r *http.Request) {
	abs, err := h.lib.FilePath(pathVar(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	f, err := filesystem.OpenWithRetry(abs, filesystem.DefaultRetryConfig())
	if err != nil {
		writeError(w, r, tagstore.WrapPath("open", abs, err))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, r, tagstore.WrapPath("stat", abs, err))
		return
	}

	w.Header().Set("Content-Type", mediatypes.GetMimeType(abs))
	w.Header().Set("Cache-Control", "private, max-age=60")
	written, err := streaming.ServeContent(w, r, filepath.Base(abs), info.ModTime(), f, streaming.DefaultConfig())
	if err != nil && !errors.Is(err, streaming.ErrClientGone) {
		logging.Warn("Download of %s stopped after %d bytes: %v", abs, written, err)
	}
}
