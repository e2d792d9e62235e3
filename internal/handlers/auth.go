package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/ArtificalManny/sharesync/internal/auth"
	"github.com/ArtificalManny/sharesync/pkg/response"
)

// AuthHandler mints access tokens for development and testing. Real
// authentication lives in the platform's identity service; this subsystem
// only needs a signed user id to hang connections off.
type AuthHandler struct {
	jwt *iauth.JWTService
}

// NewAuthHandler constructs an auth handler.
func NewAuthHandler(jwt *iauth.JWTService) *AuthHandler {
	return &AuthHandler{jwt: jwt}
}

type tokenRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// Token issues a signed access token for the supplied user id.
func (h *AuthHandler) Token(c *gin.Context) {
	var payload tokenRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	token, err := h.jwt.GenerateAccessToken(payload.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"access_token": token})
}
