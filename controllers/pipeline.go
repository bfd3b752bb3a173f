package controllers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/oakhaven/storefront/apperrors"
	"github.com/oakhaven/storefront/middleware"
	"github.com/oakhaven/storefront/utils"
)

// outcomeOf classifies a pipeline error for metrics and logs.
func outcomeOf(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrInvalidInput):
		return middleware.OutcomeInvalid
	case errors.Is(err, apperrors.ErrSpam):
		return middleware.OutcomeSpam
	case errors.Is(err, apperrors.ErrInappropriate):
		return middleware.OutcomeInappropriate
	case errors.Is(err, apperrors.ErrChallengeFailed):
		return middleware.OutcomeChallenge
	case errors.Is(err, apperrors.ErrFileRejected):
		return middleware.OutcomeFileRejected
	case errors.Is(err, apperrors.ErrRateLimited):
		return middleware.OutcomeRateLimited
	case errors.Is(err, apperrors.ErrNotFound):
		return middleware.OutcomeNotFound
	case errors.Is(err, apperrors.ErrConflict):
		return middleware.OutcomeConflict
	default:
		return middleware.OutcomeError
	}
}

// reject records a failed submission and writes its error response.
func reject(ctx *gin.Context, form string, err error) {
	outcome := outcomeOf(err)
	middleware.RecordSubmission(form, outcome)
	if outcome != middleware.OutcomeError {
		utils.Logger.Info("submission rejected",
			zap.String("form", form),
			zap.String("ip", ctx.ClientIP()),
			zap.String("reason", outcome))
	}
	utils.AbortWithError(ctx, err)
}

// accept records a successful submission.
func accept(form string) {
	middleware.RecordSubmission(form, middleware.OutcomeAccepted)
}

// bindJSONObject decodes the request body into a generic field map.
func bindJSONObject(ctx *gin.Context) (map[string]any, error) {
	var raw map[string]any
	if err := ctx.ShouldBindJSON(&raw); err != nil || raw == nil {
		return nil, apperrors.InvalidInput("invalid request payload")
	}
	return raw, nil
}

// stringField returns raw[key] as a string, or "" when absent or not a string.
func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}
