package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ArtificalManny/sharesync/internal/middleware"
	"github.com/ArtificalManny/sharesync/internal/services"
	"github.com/ArtificalManny/sharesync/pkg/errors"
	"github.com/ArtificalManny/sharesync/pkg/response"
)

// PointsHandler exposes the leaderboard and per-user point totals.
type PointsHandler struct {
	service      *services.PointsService
	defaultLimit int
}

// NewPointsHandler constructs a points handler. defaultLimit bounds leaderboard
// responses when the caller does not ask for a specific size.
func NewPointsHandler(service *services.PointsService, defaultLimit int) *PointsHandler {
	return &PointsHandler{service: service, defaultLimit: defaultLimit}
}

// Leaderboard returns the top users by total points.
func (h *PointsHandler) Leaderboard(c *gin.Context) {
	limit := parseIntQuery(c, "limit", h.defaultLimit)

	entries, err := h.service.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, entries)
}

// Me returns the caller's authoritative point total summed from the ledger.
func (h *PointsHandler) Me(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	total, err := h.service.TotalFor(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user_id": userID, "total": total})
}
