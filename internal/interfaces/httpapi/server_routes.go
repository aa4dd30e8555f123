package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	mux.HandleFunc("GET /metrics", handler.Metrics)
}

func registerSnapshotRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /api/snapshot", handler.GetSnapshot)
	// Path used by the existing dashboard UI.
	mux.HandleFunc("GET /api/scrape", handler.GetSnapshot)
	mux.HandleFunc("GET /api/snapshot/status", handler.GetSnapshotStatus)
}

func registerInternalRoutes(mux *http.ServeMux, handler *Handler, internalToken string) {
	mux.Handle("POST /internal/snapshot/refresh", RequireInternalToken(internalToken, http.HandlerFunc(handler.RefreshSnapshot)))
}
