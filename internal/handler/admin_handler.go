package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bimbelku/tryout-backend/internal/response"
	"github.com/bimbelku/tryout-backend/internal/service"
)

// AdminHandler handles operator actions on attempts and sessions.
type AdminHandler struct {
	attemptService *service.AttemptService
	authService    *service.AuthService
	log            zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(attemptService *service.AttemptService, authService *service.AuthService, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		attemptService: attemptService,
		authService:    authService,
		log:            log.With().Str("component", "admin_handler").Logger(),
	}
}

// RevokeAttempt godoc
// POST /api/v1/admin/attempts/:attempt_id/revoke
// Kill switch: the attempt stops accepting every operation immediately.
func (h *AdminHandler) RevokeAttempt(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.attemptService.Revoke(c.Request.Context(), attemptID); err != nil {
		failDomain(c, err)
		return
	}

	h.log.Warn().Str("attempt_id", attemptID.String()).Msg("Attempt revoked by admin")
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// ResetUserSession godoc
// POST /api/v1/admin/users/:user_id/reset-session
// Clears a user's single-device session so they can log in again.
func (h *AdminHandler) ResetUserSession(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.authService.ResetUserSession(c.Request.Context(), userID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reset": true})
}
