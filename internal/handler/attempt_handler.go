package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bimbelku/tryout-backend/internal/middleware"
	"github.com/bimbelku/tryout-backend/internal/model"
	"github.com/bimbelku/tryout-backend/internal/response"
	"github.com/bimbelku/tryout-backend/internal/service"
	"github.com/bimbelku/tryout-backend/internal/validator"
)

// AttemptHandler handles the exam-taking endpoints: starting attempts and
// sections, saving answers, submitting, and reviewing.
type AttemptHandler struct {
	attemptService *service.AttemptService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService}
}

// StartAttempt godoc
// POST /api/v1/tryouts/:tryout_id/attempts
// Opens (or resumes) the caller's attempt. Idempotent per (user, tryout).
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	tryoutID, err := uuid.Parse(c.Param("tryout_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.StartAttempt(c.Request.Context(), claims.UserID, tryoutID)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// GetAttemptView godoc
// GET /api/v1/tryouts/:tryout_id/attempt
// Returns the attempt display state: per-section progress plus the open
// section's questions. Covers page reloads.
func (h *AttemptHandler) GetAttemptView(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	tryoutID, err := uuid.Parse(c.Param("tryout_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	view, err := h.attemptService.GetAttemptView(c.Request.Context(), claims.UserID, tryoutID)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// StartSection godoc
// POST /api/v1/attempts/:attempt_id/sections/:section_id/start
// Opens a section attempt. Idempotent; sections must be taken in order.
func (h *AttemptHandler) StartSection(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, sectionID, ok := attemptSectionParams(c)
	if !ok {
		return
	}

	sa, err := h.attemptService.StartSection(c.Request.Context(), claims.UserID, attemptID, sectionID)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"section_attempt": sa})
}

// SaveAnswer godoc
// PUT /api/v1/attempts/:attempt_id/answers
// Upserts the answer for one question of the open section.
func (h *AttemptHandler) SaveAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ans, err := h.attemptService.SaveAnswer(c.Request.Context(), claims.UserID, attemptID, &req)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"answer": ans})
}

// ToggleDoubtful godoc
// POST /api/v1/attempts/:attempt_id/answers/doubtful
// Flips the flag-for-review marker without touching the recorded answer.
func (h *AttemptHandler) ToggleDoubtful(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ToggleDoubtfulRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ans, err := h.attemptService.ToggleDoubtful(c.Request.Context(), claims.UserID, attemptID, req.QuestionID)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"answer": ans})
}

// SubmitSection godoc
// POST /api/v1/attempts/:attempt_id/sections/:section_id/submit
// Finishes a section; opens the next one or finalizes the whole attempt.
func (h *AttemptHandler) SubmitSection(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, sectionID, ok := attemptSectionParams(c)
	if !ok {
		return
	}

	result, err := h.attemptService.SubmitSection(c.Request.Context(), claims.UserID, attemptID, sectionID)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetReview godoc
// GET /api/v1/attempts/:attempt_id/sections/:section_id/review
// Returns the answer review for a finished section, including correct
// answers and discussions.
func (h *AttemptHandler) GetReview(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, sectionID, ok := attemptSectionParams(c)
	if !ok {
		return
	}

	review, err := h.attemptService.GetReview(c.Request.Context(), claims.UserID, attemptID, sectionID)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, review)
}

func attemptSectionParams(c *gin.Context) (attemptID, sectionID uuid.UUID, ok bool) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, uuid.Nil, false
	}
	sectionID, err = uuid.Parse(c.Param("section_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, uuid.Nil, false
	}
	return attemptID, sectionID, true
}
