package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bimbelku/tryout-backend/internal/middleware"
	"github.com/bimbelku/tryout-backend/internal/response"
	"github.com/bimbelku/tryout-backend/internal/service"
)

// TryoutHandler handles the tryout catalog endpoints.
type TryoutHandler struct {
	tryoutService *service.TryoutService
}

// NewTryoutHandler creates a new TryoutHandler.
func NewTryoutHandler(tryoutService *service.TryoutService) *TryoutHandler {
	return &TryoutHandler{tryoutService: tryoutService}
}

// ListTryouts godoc
// GET /api/v1/tryouts
// Returns the tryouts currently open for attempts, with the caller's attempt
// state overlaid.
func (h *TryoutHandler) ListTryouts(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	catalog, err := h.tryoutService.ListAvailable(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if catalog == nil {
		catalog = []service.CatalogEntry{}
	}

	response.Success(c, http.StatusOK, gin.H{"tryouts": catalog})
}

// GetTryout godoc
// GET /api/v1/tryouts/:tryout_id
// Returns one tryout with its section list (no questions).
func (h *TryoutHandler) GetTryout(c *gin.Context) {
	tryoutID, err := uuid.Parse(c.Param("tryout_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	tryout, err := h.tryoutService.GetAvailable(c.Request.Context(), tryoutID)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"tryout": tryout})
}
