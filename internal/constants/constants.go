package constants

import "time"

// Context and session keys
const (
	ContextKeyUserID    = "user_id"
	ContextKeyUserRole  = "user_role"
	ContextKeyToken     = "auth_token"
	ContextKeyRequestID = "request_id"

	SessionCookieName = "team_task_session"
	SessionTokenKey   = "token"

	HeaderRequestID = "X-Request-ID"
)

// Validation bounds
const (
	MinPasswordLength   = 8
	MaxUsernameLength   = 50
	MaxTeamNameLength   = 100
	MaxTaskTitleLength  = 200
	MaxCommentLength    = 1000
	MaxAIGeneratedTasks = 20
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

const (
	DefaultTokenExpiry = 30 * time.Minute
	TokenIssuer        = "team-task-api"
)
