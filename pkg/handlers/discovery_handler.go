package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/gameshelf-io/gameshelf-engine/pkg/models"
	"github.com/gameshelf-io/gameshelf-engine/pkg/services"
)

// DiscoveryHandler handles unified search HTTP requests.
type DiscoveryHandler struct {
	discoveryService services.DiscoveryService
	logger           *zap.Logger
}

// NewDiscoveryHandler creates a new discovery handler.
func NewDiscoveryHandler(discoveryService services.DiscoveryService, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		discoveryService: discoveryService,
		logger:           logger,
	}
}

// RegisterRoutes registers the discovery handler's routes on the given mux.
func (h *DiscoveryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/discovery", h.Search)
}

// Search handles GET /api/discovery?q=...&genre=...&platform=...&developer=...
func (h *DiscoveryHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	filters := models.GameFilters{
		Genre:     r.URL.Query().Get("genre"),
		Platform:  r.URL.Query().Get("platform"),
		Developer: r.URL.Query().Get("developer"),
	}

	result, err := h.discoveryService.SearchAndSync(r.Context(), query, filters)
	if err != nil {
		h.logger.Error("Unified search failed",
			zap.String("query", query),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "search_failed", "Search failed"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
