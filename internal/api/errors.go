package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/acl-rts-tracker/internal/domain"
	"github.com/acl-rts-tracker/internal/middleware"
)

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	*domain.APIError
	Fields []*domain.ValidationError `json:"fields,omitempty"`
}

// statusFor maps an engine error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case domain.IsUndefinedMetric(err):
		return http.StatusBadRequest, domain.ErrCodeUndefinedMetric
	case domain.IsValidationError(err):
		return http.StatusBadRequest, domain.ErrCodeValidation
	case errors.Is(err, domain.ErrNoAssessment):
		return http.StatusNotFound, domain.ErrCodeNoAssessment
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, domain.ErrCodeNotFound
	case errors.Is(err, domain.ErrDuplicatePatient), errors.Is(err, domain.ErrDuplicateRecord):
		return http.StatusConflict, domain.ErrCodeConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, domain.ErrCodeInternalServer
	default:
		return http.StatusInternalServerError, domain.ErrCodeInternalServer
	}
}

func (s *Server) respondError(c *gin.Context, err error) {
	status, code := statusFor(err)
	requestID := middleware.GetCorrelationID(c)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.WithFields(logrus.Fields{
			"correlation_id": requestID,
			"route":          c.FullPath(),
			"error":          err,
		}).Error("Request failed")
		message = "internal server error"
	}

	body := errorResponse{APIError: domain.NewAPIError(code, message, "", requestID)}
	if code == domain.ErrCodeValidation {
		body.Fields = domain.ValidationErrors(err)
		body.Message = "assessment input is invalid"
		if len(body.Fields) == 1 {
			body.Message = body.Fields[0].Error()
		}
	}
	c.AbortWithStatusJSON(status, body)
}

func (s *Server) respondBadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		APIError: domain.NewAPIError(domain.ErrCodeInvalidInput, "malformed request body", err.Error(),
			middleware.GetCorrelationID(c)),
	})
}
