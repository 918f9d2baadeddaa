package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gameshelf-io/gameshelf-engine/pkg/apperrors"
	"github.com/gameshelf-io/gameshelf-engine/pkg/auth"
	"github.com/gameshelf-io/gameshelf-engine/pkg/models"
	"github.com/gameshelf-io/gameshelf-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// GameListResponse for GET /api/games
type GameListResponse struct {
	Games []*models.CatalogGame `json:"games"`
	Total int                   `json:"total"`
}

// ImportGameRequest for POST /api/games/import
type ImportGameRequest struct {
	MetadataID int64 `json:"metadata_id"`
	StoreID    int64 `json:"store_id,omitempty"`
}

// ============================================================================
// Handler
// ============================================================================

// GamesHandler handles catalog HTTP requests.
type GamesHandler struct {
	catalogService services.CatalogService
	logger         *zap.Logger
}

// NewGamesHandler creates a new games handler.
func NewGamesHandler(catalogService services.CatalogService, logger *zap.Logger) *GamesHandler {
	return &GamesHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// RegisterRoutes registers the games handler's routes on the given mux.
// Mutating routes require an admin bearer token.
func (h *GamesHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/games", h.List)
	mux.HandleFunc("GET /api/games/search", h.Search)
	mux.HandleFunc("GET /api/games/{id}", h.Get)
	mux.HandleFunc("POST /api/games/import", authMiddleware.RequireAdmin(h.Import))
	mux.HandleFunc("DELETE /api/games/{id}", authMiddleware.RequireAdmin(h.Delete))
}

// List handles GET /api/games?genre=...&platform=...&developer=...&limit=...&offset=...
func (h *GamesHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := models.GameFilters{
		Genre:     r.URL.Query().Get("genre"),
		Platform:  r.URL.Query().Get("platform"),
		Developer: r.URL.Query().Get("developer"),
	}
	limit := intQueryParam(r, "limit")
	offset := intQueryParam(r, "offset")

	games, err := h.catalogService.List(r.Context(), filters, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list games", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "list_games_failed", "Failed to list games"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := GameListResponse{Games: games, Total: len(games)}
	if games == nil {
		response.Games = []*models.CatalogGame{}
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Search handles GET /api/games/search?q=...
// Unlike discovery, this ranks the local catalog only and never imports.
func (h *GamesHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := intQueryParam(r, "limit")

	games, err := h.catalogService.Search(r.Context(), query, limit)
	if err != nil {
		h.logger.Error("Catalog search failed",
			zap.String("query", query),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "search_failed", "Search failed"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := GameListResponse{Games: games, Total: len(games)}
	if games == nil {
		response.Games = []*models.CatalogGame{}
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/games/{id}
func (h *GamesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseGameID(w, r, h.logger)
	if !ok {
		return
	}

	game, err := h.catalogService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "game_not_found", "Game not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to get game",
			zap.String("id", id.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "get_game_failed", "Failed to get game"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: game}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Import handles POST /api/games/import
func (h *GamesHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.MetadataID <= 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "metadata_id is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	game, err := h.catalogService.ImportByExternalID(r.Context(), req.MetadataID, req.StoreID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "metadata_not_found", "No game found for metadata_id"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to import game",
			zap.Int64("metadata_id", req.MetadataID),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "import_failed", "Failed to import game"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: game}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/games/{id}
func (h *GamesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseGameID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.catalogService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "game_not_found", "Game not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to delete game",
			zap.String("id", id.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "delete_game_failed", "Failed to delete game"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Game deleted"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ============================================================================
// Helper Functions
// ============================================================================

// parseGameID extracts and validates the {id} path parameter.
// Writes a 400 response and returns false on invalid input.
func parseGameID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	raw := r.PathValue("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_game_id", "Game ID must be a valid UUID"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}

// intQueryParam parses an integer query parameter, returning 0 for absent or
// malformed values so services apply their defaults.
func intQueryParam(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}
