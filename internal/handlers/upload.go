package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"visionvault/internal/logging"
)

// uploadFormOverhead covers the multipart framing around the file.
const uploadFormOverhead = 1 << 20

// Upload stores an image posted as the multipart field "file" in the
// directory named by the path.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxBytes+uploadFormOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, fmt.Sprintf("upload exceeds %d bytes", h.uploadMaxBytes), http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(w, fmt.Sprintf("invalid upload: %v", err), http.StatusBadRequest)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logging.Warn("Failed to remove multipart temp files: %v", err)
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, "missing form field \"file\"", http.StatusBadRequest)
		return
	}
	defer file.Close()

	rec, err := h.lib.SaveUpload(pathVar(r), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSONStatus(w, http.StatusCreated, rec)
}
