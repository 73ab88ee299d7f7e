package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"visionvault/internal/library"
	"visionvault/internal/logging"
)

// maxUpdateBodyBytes bounds the JSON body of an update request.
const maxUpdateBodyBytes = 64 << 10

// updateFileRequest is the body of POST /api/update-file. Omitted fields
// are left unchanged; "untagged" as tags resets the file to untagged.
type updateFileRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=255,excludesall=/\\"`
	Tags        *string `json:"tags" validate:"omitempty,max=2048"`
	Description *string `json:"description" validate:"omitempty,max=8192"`
}

// UpdateFile renames and/or retags one file.
func (h *Handlers) UpdateFile(w http.ResponseWriter, r *http.Request) {
	var req updateFileRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSONError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := h.lib.UpdateFile(pathVar(r), library.Update{
		Name:        req.Name,
		Tags:        req.Tags,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, rec)
}

// DeleteFile removes a file and its records.
func (h *Handlers) DeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := h.lib.DeleteFile(pathVar(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// UpdateTags runs the captioning pass for one directory and returns its
// summary. Captioning failures are part of the summary, not errors.
func (h *Handlers) UpdateTags(w http.ResponseWriter, r *http.Request) {
	summary, err := h.lib.UpdateUntagged(r.Context(), pathVar(r))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logging.Info("Captioning pass for /%s stopped early: %v", pathVar(r), err)
			writeJSONStatus(w, http.StatusServiceUnavailable, summary)
			return
		}
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, summary)
}
