package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"dramastream/handlers"
)

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Register mounts API endpoints onto the provided router.
func Register(r *mux.Router, catalogHandler *handlers.CatalogHandler) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)

	api.HandleFunc("/popular", catalogHandler.Popular).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/search", catalogHandler.Search).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/detail/{category}/{id}", catalogHandler.Detail).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/collections", catalogHandler.Collections).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/categories", catalogHandler.Categories).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/cache/clear", catalogHandler.ClearCache).Methods(http.MethodPost, http.MethodOptions)

	versionHandler := handlers.NewVersionHandler()
	api.HandleFunc("/version", versionHandler.GetVersion).Methods(http.MethodGet, http.MethodOptions)
}
