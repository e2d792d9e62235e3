package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ArtificalManny/sharesync/internal/middleware"
	"github.com/ArtificalManny/sharesync/internal/realtime"
	"github.com/ArtificalManny/sharesync/internal/services"
	"github.com/ArtificalManny/sharesync/pkg/errors"
	"github.com/ArtificalManny/sharesync/pkg/response"
)

// ProjectEventHandler is the entry point for application services that just
// committed a write and need it fanned out to project members. Callers must
// only invoke it after their own commit succeeded.
type ProjectEventHandler struct {
	fanout *services.FanoutService
}

// NewProjectEventHandler constructs a project event handler.
func NewProjectEventHandler(fanout *services.FanoutService) *ProjectEventHandler {
	return &ProjectEventHandler{fanout: fanout}
}

type projectEventRequest struct {
	Event      string         `json:"event" validate:"required"`
	Payload    map[string]any `json:"payload"`
	Recipients []string       `json:"recipients" validate:"required,min=1"`
	Action     string         `json:"action"`
}

// Notify persists notifications and point events for the action, then
// broadcasts it to the project room and each recipient's personal room.
func (h *ProjectEventHandler) Notify(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	projectID := strings.TrimSpace(c.Param("id"))
	if projectID == "" {
		response.Error(c, errors.NewBadRequest("project id is required"))
		return
	}

	var payload projectEventRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	event, err := realtime.EventForKind(realtime.Kind(payload.Event), payload.Payload)
	if err != nil {
		response.Error(c, errors.NewBadRequest("unknown event kind"))
		return
	}

	created, err := h.fanout.NotifyProjectEvent(c.Request.Context(), services.NotifyProjectEventInput{
		ProjectID:    projectID,
		Event:        event,
		ActorID:      userID,
		RecipientIDs: payload.Recipients,
		Action:       payload.Action,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"notifications": created})
}
