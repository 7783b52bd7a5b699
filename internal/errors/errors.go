package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes
const (
	// Authentication errors
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	ErrCodeInvalidOrExpiredToken = "INVALID_OR_EXPIRED_TOKEN"

	// Authorization errors
	ErrCodeForbidden             = "FORBIDDEN"
	ErrCodeAdminRequired         = "ADMIN_REQUIRED"
	ErrCodeNotTeamLeader         = "NOT_TEAM_LEADER"
	ErrCodeNotTeamMember         = "NOT_TEAM_MEMBER"
	ErrCodeNotTaskParticipant    = "NOT_TASK_PARTICIPANT"
	ErrCodeNotCommentAuthor      = "NOT_COMMENT_AUTHOR"
	ErrCodeAdminProtected        = "ADMIN_PROTECTED"
	ErrCodeSelfDeletionForbidden = "SELF_DELETION_FORBIDDEN"
	ErrCodeUserInactive          = "USER_INACTIVE"

	// Validation errors
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeInvalidLeader      = "INVALID_LEADER"
	ErrCodeNotEligible        = "NOT_ELIGIBLE"
	ErrCodeCannotRemoveLeader = "CANNOT_REMOVE_LEADER"
	ErrCodeAssigneeNotInTeam  = "ASSIGNEE_NOT_IN_TEAM"
	ErrCodeEmptyContent       = "EMPTY_CONTENT"
	ErrCodeContentTooLong     = "CONTENT_TOO_LONG"
	ErrCodeInvalidRole        = "INVALID_ROLE"
	ErrCodeInvalidStatus      = "INVALID_STATUS"
	ErrCodeInvalidPriority    = "INVALID_PRIORITY"

	// Resource errors
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeUserNotFound    = "USER_NOT_FOUND"
	ErrCodeTeamNotFound    = "TEAM_NOT_FOUND"
	ErrCodeTaskNotFound    = "TASK_NOT_FOUND"
	ErrCodeCommentNotFound = "COMMENT_NOT_FOUND"
	ErrCodeMemberNotFound  = "MEMBER_NOT_FOUND"

	// Conflict errors
	ErrCodeConflict              = "CONFLICT"
	ErrCodeDuplicateEmail        = "DUPLICATE_EMAIL"
	ErrCodeLeaderAlreadyAssigned = "LEADER_ALREADY_ASSIGNED"
	ErrCodeAlreadyMember         = "ALREADY_MEMBER"
	ErrCodeLeaderOfTeam          = "LEADER_OF_TEAM"

	// Service errors
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// APIError represents a standardized API error response
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError
func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// NewAPIErrorWithDetails creates a new APIError with details
func NewAPIErrorWithDetails(code, message string, details interface{}) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// RespondWithError sends an error response
func RespondWithError(c *gin.Context, statusCode int, err *APIError) {
	c.JSON(statusCode, err)
}

// Helper functions for common error responses

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "Invalid request"
	}
	RespondWithError(c, http.StatusBadRequest, NewAPIError(ErrCodeInvalidInput, message))
}

// BadRequestWithDetails sends a 400 response with details
func BadRequestWithDetails(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, NewAPIErrorWithDetails(ErrCodeInvalidInput, message, details))
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	RespondWithError(c, http.StatusInternalServerError, NewAPIError(ErrCodeInternalError, message))
}
