package handlers

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/middleware"
)

// respondError maps domain errors to their status and hides everything else behind a 500.
// The error is attached to the context so RequestLogger reports its kind.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	if apierrors.RespondWithDomainError(c, err) {
		return
	}
	slog.ErrorContext(c.Request.Context(), "request failed",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"error", err,
	)
	apierrors.InternalError(c, "")
}

// callerID returns the authenticated user or writes a 401.
func callerID(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.RespondWithDomainError(c, apierrors.ErrUnauthenticated)
		return uuid.Nil, false
	}
	return userID, true
}

// pathID parses a UUID path parameter or writes a 400.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		apierrors.BadRequest(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// FieldError describes one failed binding rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// bindJSON decodes the body into req or writes a 400. Validation failures list
// the offending fields.
func bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, FieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
		apierrors.BadRequestWithDetails(c, "Invalid request body", details)
		return false
	}
	apierrors.BadRequest(c, "Invalid request body")
	return false
}
