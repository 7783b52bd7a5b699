package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/authz"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/observability/audit"
	"github.com/yukikurage/team-task-api/internal/observability/metrics"
	"github.com/yukikurage/team-task-api/internal/repository"
	"gorm.io/gorm"
)

// Guard consults authz.Decide and records every denial.
type Guard struct {
	audit *audit.Logger
}

// NewGuard creates a Guard. A nil logger writes to slog.Default.
func NewGuard(auditLogger *audit.Logger) *Guard {
	if auditLogger == nil {
		auditLogger = audit.NewLogger(nil)
	}
	return &Guard{audit: auditLogger}
}

// Authorize returns nil when caller may perform action on target.
func (g *Guard) Authorize(ctx context.Context, caller authz.Caller, action authz.Action, target authz.Target) error {
	d := authz.Decide(caller, action, target)
	if d.Allowed {
		metrics.ObserveAuthzDecision(string(action), true, "")
		return nil
	}
	metrics.ObserveAuthzDecision(string(action), false, d.Reason.Code)
	g.audit.LogDenied(ctx, caller.UserID.String(), string(action), d.Reason.Code)
	return d.Reason
}

// Record writes an audit line for a committed mutation.
func (g *Guard) Record(ctx context.Context, caller authz.Caller, action authz.Action, resource string, resourceID uuid.UUID) {
	metrics.ObserveMutation(resource, string(action))
	g.audit.LogAction(ctx, caller.UserID.String(), string(action), resource, resourceID.String(), "success", "")
}

// loadCaller reads the caller's current role and active flag. A caller whose
// row is gone is treated as unauthenticated.
func loadCaller(ctx context.Context, users repository.UserRepository, callerID uuid.UUID) (authz.Caller, error) {
	user, err := users.FindByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authz.Caller{}, apierrors.ErrUnauthenticated
		}
		return authz.Caller{}, fmt.Errorf("failed to load caller: %w", err)
	}
	return authz.CallerFrom(user), nil
}

// notFound maps gorm.ErrRecordNotFound to sentinel and wraps everything else.
func notFound(err error, sentinel error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return fmt.Errorf("failed to find %s: %w", what, err)
}

// isMember reports whether userID has a membership row in teamID.
func isMember(ctx context.Context, teams repository.TeamRepository, teamID, userID uuid.UUID) (bool, error) {
	if _, err := teams.FindMember(ctx, teamID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to verify membership: %w", err)
	}
	return true, nil
}
