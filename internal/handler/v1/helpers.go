package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pablosanchi/consultation-backend/internal/domain"
	"github.com/pablosanchi/consultation-backend/internal/domain/submission"
	"github.com/pablosanchi/consultation-backend/internal/service"
)

// Envelope is the success response shape: {status, message, data?}.
type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type ErrorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{Status: status, Message: message, Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Message: message})
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "validation failed",
			Errors:  validErr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrEmailTaken):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "validation failed",
			Errors:  map[string]string{"email": err.Error()},
		})

	case errors.Is(err, service.ErrForbidden):
		// Deliberately generic: the caller must not learn anything about
		// the submission from a denial.
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "access denied"})

	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "invalid credentials"})

	case errors.Is(err, submission.ErrSubmissionNotFound),
		errors.Is(err, submission.ErrPrescriptionNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrDoctorNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: err.Error()})

	case errors.Is(err, service.ErrStorageFailure):
		c.JSON(http.StatusBadGateway, ErrorResponse{Message: "storage operation failed"})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request: " + err.Error()})
		return false
	}
	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid " + param + ": must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}
