package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bimbelku/tryout-backend/internal/response"
	"github.com/bimbelku/tryout-backend/internal/service"
)

// failDomain translates a service-layer error into the API error envelope.
// Sentinels map to 403/404, state machine rejections to 409 with a code the
// frontend can branch on, anything else is a 500.
func failDomain(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTryoutNotFound),
		errors.Is(err, service.ErrAttemptNotFound),
		errors.Is(err, service.ErrSectionNotFound),
		errors.Is(err, service.ErrQuestionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)

	case errors.Is(err, service.ErrAttemptRevoked):
		response.Fail(c, http.StatusForbidden, response.ErrAttemptRevoked)

	case errors.Is(err, service.ErrNotEligible):
		response.Fail(c, http.StatusForbidden, response.ErrNotEligible)

	default:
		if se, ok := service.AsStateError(err); ok {
			response.Fail(c, http.StatusConflict, stateCode(se.Reason))
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

func stateCode(reason service.StateReason) response.ErrCode {
	switch reason {
	case service.ReasonTryoutNotAvailable:
		return response.ErrTryoutNotAvailable
	case service.ReasonNoSections:
		return response.ErrTryoutEmpty
	case service.ReasonAttemptFinished:
		return response.ErrAttemptFinished
	case service.ReasonPreviousUnfinished:
		return response.ErrPreviousSectionUnfinished
	case service.ReasonNoActiveSection:
		return response.ErrNoActiveSection
	case service.ReasonDeadlinePassed:
		return response.ErrDeadlinePassed
	case service.ReasonSectionNotActive:
		return response.ErrSectionNotActive
	case service.ReasonSectionNotFinished:
		return response.ErrSectionNotFinished
	default:
		return response.ErrConflict
	}
}
