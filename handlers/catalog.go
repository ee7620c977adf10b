package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"dramastream/models"
	"dramastream/services/aggregator"
)

type catalogService interface {
	Categories() []string
	GetPopular(ctx context.Context, category string, page, limit int) []models.CategorizedItem
	Search(ctx context.Context, query, category string, limit int) []models.CategorizedItem
	GetByID(ctx context.Context, category, id string) (*models.ContentDetail, bool)
	Collections(ctx context.Context, category string) []models.CollectionView
	ClearCaches()
}

var _ catalogService = (*aggregator.Service)(nil)

type CatalogHandler struct {
	Service catalogService
}

func NewCatalogHandler(s catalogService) *CatalogHandler {
	return &CatalogHandler{Service: s}
}

// ListingResponse wraps items with a total so clients can paginate.
type ListingResponse struct {
	Items []models.CategorizedItem `json:"items"`
	Total int                      `json:"total"`
	Page  int                      `json:"page,omitempty"`
}

// Popular handles GET /api/popular?category=drama&page=1&limit=20.
// Source failures surface as an empty listing, never a 5xx; clients treat
// "no items" and "all sources down" identically.
func (h *CatalogHandler) Popular(w http.ResponseWriter, r *http.Request) {
	category := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("category")))
	if category == "" {
		category = "drama"
	}
	page := intParam(r, "page", 1)
	limit := intParam(r, "limit", 0)

	items := h.Service.GetPopular(r.Context(), category, page, limit)
	writeJSON(w, ListingResponse{Items: items, Total: len(items), Page: page})
}

// Search handles GET /api/search?q=query&category=drama&limit=20.
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Error(w, "q parameter is required", http.StatusBadRequest)
		return
	}
	category := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("category")))
	limit := intParam(r, "limit", 0)

	items := h.Service.Search(r.Context(), query, category, limit)
	writeJSON(w, ListingResponse{Items: items, Total: len(items)})
}

// Detail handles GET /api/detail/{category}/{id}.
func (h *CatalogHandler) Detail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	category := strings.ToLower(vars["category"])
	id := vars["id"]

	detail, ok := h.Service.GetByID(r.Context(), category, id)
	if !ok {
		http.Error(w, "content not found", http.StatusNotFound)
		return
	}
	writeJSON(w, detail)
}

// Collections handles GET /api/collections?category=drama.
func (h *CatalogHandler) Collections(w http.ResponseWriter, r *http.Request) {
	category := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("category")))
	views := h.Service.Collections(r.Context(), category)
	writeJSON(w, views)
}

// Categories handles GET /api/categories.
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Service.Categories())
}

// ClearCache handles POST /api/cache/clear.
func (h *CatalogHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.Service.ClearCaches()
	writeJSON(w, map[string]string{"status": "cleared"})
}

func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[handlers] encode response: %v", err)
	}
}
