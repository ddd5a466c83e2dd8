// Package errors centralizes the mapping from internal failures to the
// HTTP surface.
package errors

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/lexyhq/lexy/internal/project"
	"github.com/lexyhq/lexy/internal/repository"
	"github.com/lexyhq/lexy/internal/transcription"
)

// APIError pairs a user-facing message with an HTTP status.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
	Detail     string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// New builds an APIError.
func New(status int, message string) *APIError {
	return &APIError{StatusCode: status, Message: message}
}

// Err writes err to the gin response with the right status code.
func Err(c *gin.Context, err error) {
	status, body := classify(err)
	c.JSON(status, body)
}

func classify(err error) (int, gin.H) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		body := gin.H{"error": apiErr.Message}
		if apiErr.Detail != "" {
			body["details"] = apiErr.Detail
		}
		return apiErr.StatusCode, body
	}

	if errors.Is(err, repository.ErrNotFound) {
		return http.StatusNotFound, gin.H{"error": "project not found"}
	}
	if errors.Is(err, project.ErrAlreadyProcessing) || errors.Is(err, project.ErrAlreadyCompleted) {
		return http.StatusConflict, gin.H{"error": err.Error()}
	}

	var te *transcription.Error
	if errors.As(err, &te) {
		body := gin.H{"error": te.Message}
		if te.Details != "" {
			body["details"] = te.Details
		}
		switch te.Kind {
		case transcription.FailureInvalidRequest:
			return http.StatusBadRequest, body
		case transcription.FailureModelUnavailable:
			return http.StatusBadGateway, body
		case transcription.FailureModelRefusal, transcription.FailureMalformedOutput:
			return http.StatusUnprocessableEntity, body
		case transcription.FailureUpstream:
			return http.StatusInternalServerError, body
		}
	}

	return http.StatusInternalServerError, gin.H{"error": err.Error()}
}

// RecoveryMiddleware turns panics into 500 responses instead of killing
// the process.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("handler panicked")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}

// ErrorHandlerMiddleware renders errors attached to the gin context.
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		Err(c, c.Errors.Last().Err)
	}
}
