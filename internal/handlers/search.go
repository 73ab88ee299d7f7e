package handlers

import (
	"net/http"

	"visionvault/internal/tagstore"
)

// SearchResponse is the reply of GET /api/search.
type SearchResponse struct {
	Query string            `json:"query"`
	Items []tagstore.Record `json:"items"`
	Total int               `json:"total"`
}

// Search matches the query against every record's path, tags and
// description, ignoring case.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	items, err := h.lib.Search(query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []tagstore.Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, SearchResponse{Query: query, Items: items, Total: len(items)})
}
