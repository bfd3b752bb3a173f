package utils

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/oakhaven/storefront/apperrors"
	"github.com/oakhaven/storefront/config"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Success   bool                   `json:"success"`
	Code      int                    `json:"code"`
	Message   string                 `json:"message,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Errors    []apperrors.FieldError `json:"errors,omitempty"`
	ResetTime *time.Time             `json:"resetTime,omitempty"`
	Detail    string                 `json:"detail,omitempty"`
	Data      interface{}            `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, resp JSONResponse) {
	ctx.JSON(status, resp)
}

// Success returns a standard success response.
func Success(ctx *gin.Context, message string, data interface{}) {
	Respond(ctx, http.StatusOK, JSONResponse{Success: true, Message: message, Data: data})
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, JSONResponse{Code: code, Error: message})
}

// AbortWithError converts any pipeline error into its response and stops the handler chain.
// Unclassified errors become a generic 500; their detail is only exposed outside production.
func AbortWithError(ctx *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Internal(err)
	}

	resp := JSONResponse{
		Code:   appErr.Code,
		Error:  appErr.Message,
		Errors: appErr.Fields,
	}
	if !appErr.ResetTime.IsZero() {
		reset := appErr.ResetTime
		resp.ResetTime = &reset
	}

	if appErr.Status >= http.StatusInternalServerError {
		Logger.Error("request failed",
			zap.String("path", ctx.FullPath()),
			zap.String("ip", ctx.ClientIP()),
			zap.Error(err),
		)
		if !config.Get().IsProduction() && appErr.Err != nil {
			resp.Detail = appErr.Err.Error()
		}
	}

	ctx.AbortWithStatusJSON(appErr.Status, resp)
}
