package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Register adds every route to r. Middleware that needs the matched route,
// such as request metrics, should be added to r with Use.
func (h *Handlers) Register(r *mux.Router) {
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/folder-tree", h.FolderTree).Methods(http.MethodGet)
	api.HandleFunc("/files", h.ListFiles).Methods(http.MethodGet)
	api.HandleFunc("/files/{path:.*}", h.ListFiles).Methods(http.MethodGet)
	api.HandleFunc("/update-tags", h.UpdateTags).Methods(http.MethodPost)
	api.HandleFunc("/update-tags/{path:.*}", h.UpdateTags).Methods(http.MethodPost)
	api.HandleFunc("/update-file/{path:.*}", h.UpdateFile).Methods(http.MethodPost)
	api.HandleFunc("/delete-file/{path:.*}", h.DeleteFile).Methods(http.MethodDelete)
	api.HandleFunc("/upload", h.Upload).Methods(http.MethodPost)
	api.HandleFunc("/upload/{path:.*}", h.Upload).Methods(http.MethodPost)
	api.HandleFunc("/search", h.Search).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet)
	api.HandleFunc("/reindex", h.TriggerReindex).Methods(http.MethodPost)

	r.HandleFunc("/files/{path:.*}", h.ServeFile).Methods(http.MethodGet, http.MethodHead)
}

// NewRouter returns a router with every route registered. Paths are not
// cleaned by the router so that ".." segments reach the library and are
// rejected there instead of being redirected.
func (h *Handlers) NewRouter() *mux.Router {
	r := mux.NewRouter().SkipClean(true)
	h.Register(r)
	return r
}
