package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind classifies a domain failure independently of transport.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindValidation
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind to its response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// DomainError is a failure with a stable reason code that callers may act on.
// Values are compared by identity, so package-level sentinels work with errors.Is.
type DomainError struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// New creates a DomainError.
func New(kind Kind, code, message string) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message}
}

// KindOf returns the kind of the first DomainError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries a DomainError of the given kind.
func IsKind(err error, kind Kind) bool {
	var de *DomainError
	return stderrors.As(err, &de) && de.Kind == kind
}

// RespondWithDomainError writes err as an APIError. It reports false when err is
// not a DomainError so the caller can log and fall back to a 500.
func RespondWithDomainError(c *gin.Context, err error) bool {
	var de *DomainError
	if !stderrors.As(err, &de) {
		return false
	}
	RespondWithError(c, de.Kind.HTTPStatus(), NewAPIError(de.Code, de.Message))
	return true
}

// Taxonomy shared by more than one layer.
var (
	ErrUnauthenticated       = New(KindUnauthenticated, ErrCodeUnauthorized, "Authentication required")
	ErrInvalidOrExpiredToken = New(KindUnauthenticated, ErrCodeInvalidOrExpiredToken, "Session token is invalid or expired")
	ErrForbidden             = New(KindForbidden, ErrCodeForbidden, "Access denied")
)
