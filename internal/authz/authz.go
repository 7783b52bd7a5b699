// Package authz decides whether a caller may perform an action on a target.
//
// Decide is pure: callers load the caller's role and the target's ownership
// facts from storage inside the same transaction as the mutation and pass
// them in. Nothing here is cached.
package authz

import (
	"github.com/google/uuid"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
)

type Action string

const (
	ActionListUsers      Action = "user.list"
	ActionViewUser       Action = "user.view"
	ActionActivateUser   Action = "user.activate"
	ActionDeactivateUser Action = "user.deactivate"
	ActionSetRole        Action = "user.set_role"
	ActionDeleteUser     Action = "user.delete"

	ActionListTeams      Action = "team.list"
	ActionListMyTeams    Action = "team.list_mine"
	ActionListCandidates Action = "team.list_candidates"
	ActionCreateTeam     Action = "team.create"
	ActionUpdateTeam     Action = "team.update"
	ActionDeleteTeam     Action = "team.delete"
	ActionViewTeam       Action = "team.view"
	ActionAddMember      Action = "team.add_member"
	ActionRemoveMember   Action = "team.remove_member"

	ActionCreateTask       Action = "task.create"
	ActionViewTask         Action = "task.view"
	ActionUpdateTaskStatus Action = "task.update_status"
	ActionUpdateTaskFields Action = "task.update_fields"
	ActionDeleteTask       Action = "task.delete"
	ActionDraftTasks       Action = "task.draft"

	ActionAddComment    Action = "comment.add"
	ActionEditComment   Action = "comment.edit"
	ActionDeleteComment Action = "comment.delete"
)

// Denial reasons.
var (
	ErrUserInactive          = apierrors.New(apierrors.KindForbidden, apierrors.ErrCodeUserInactive, "User not activated by admin")
	ErrAdminRequired         = apierrors.New(apierrors.KindForbidden, apierrors.ErrCodeAdminRequired, "Admin role required")
	ErrNotTeamLeader         = apierrors.New(apierrors.KindForbidden, apierrors.ErrCodeNotTeamLeader, "Only the team leader can perform this action")
	ErrNotTeamMember         = apierrors.New(apierrors.KindForbidden, apierrors.ErrCodeNotTeamMember, "You are not a member of this team")
	ErrNotTaskParticipant    = apierrors.New(apierrors.KindForbidden, apierrors.ErrCodeNotTaskParticipant, "Only the assignee or the team leader can update this task")
	ErrNotCommentAuthor      = apierrors.New(apierrors.KindForbidden, apierrors.ErrCodeNotCommentAuthor, "Only the author can modify this comment")
	ErrAdminProtected        = apierrors.New(apierrors.KindForbidden, apierrors.ErrCodeAdminProtected, "Admin accounts cannot be modified")
	ErrSelfDeletionForbidden = apierrors.New(apierrors.KindForbidden, apierrors.ErrCodeSelfDeletionForbidden, "You cannot delete your own account")
	ErrUnknownAction         = apierrors.New(apierrors.KindForbidden, apierrors.ErrCodeForbidden, "Access denied")
)

// Caller is the authenticated user as currently stored.
type Caller struct {
	UserID uuid.UUID
	Role   models.Role
	Active bool
}

// CallerFrom builds a Caller from a freshly loaded user.
func CallerFrom(u *models.User) Caller {
	return Caller{UserID: u.ID, Role: u.Role, Active: u.IsActive}
}

func (c Caller) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

// Target holds the ownership facts an action is judged against. Only the
// fields relevant to the action need to be set.
type Target struct {
	UserID   uuid.UUID
	UserRole models.Role

	TeamLeaderID *uuid.UUID
	// CallerIsMember reports whether the caller has a membership row in the team.
	CallerIsMember bool

	TaskAssigneeID  *uuid.UUID
	CommentAuthorID *uuid.UUID
}

func (t Target) ledBy(id uuid.UUID) bool {
	return t.TeamLeaderID != nil && *t.TeamLeaderID == id
}

func (t Target) assignedTo(id uuid.UUID) bool {
	return t.TaskAssigneeID != nil && *t.TaskAssigneeID == id
}

func (t Target) authoredBy(id uuid.UUID) bool {
	return t.CommentAuthorID != nil && *t.CommentAuthorID == id
}

// Decision is Allow or Deny with a reason.
type Decision struct {
	Allowed bool
	Reason  *apierrors.DomainError
}

var Allow = Decision{Allowed: true}

func Deny(reason *apierrors.DomainError) Decision {
	return Decision{Reason: reason}
}

// Err returns nil for Allow and the denial reason otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return d.Reason
}

type rule func(c Caller, t Target) Decision

var rules = map[Action]rule{
	ActionListUsers:      adminOnly,
	ActionViewUser:       anyone,
	ActionActivateUser:   adminOnly,
	ActionDeactivateUser: all(adminOnly, notAdminTarget),
	ActionSetRole:        all(adminOnly, notAdminTarget),
	ActionDeleteUser:     all(adminOnly, notSelf, notAdminTarget),

	ActionListTeams:      adminOnly,
	ActionListMyTeams:    anyone,
	ActionListCandidates: adminOrRole(models.RoleTeamLeader),
	ActionCreateTeam:     adminOnly,
	ActionUpdateTeam:     adminOnly,
	ActionDeleteTeam:     adminOnly,
	ActionViewTeam:       teamReader,
	ActionAddMember:      leaderOnly,
	ActionRemoveMember:   leaderOnly,

	ActionCreateTask:       leaderOnly,
	ActionViewTask:         teamReader,
	ActionUpdateTaskStatus: assigneeLeaderOrAdmin,
	ActionUpdateTaskFields: leaderOrAdmin,
	ActionDeleteTask:       leaderOrAdmin,
	ActionDraftTasks:       leaderOnly,

	ActionAddComment:    teamParticipant,
	ActionEditComment:   authorOrAdmin,
	ActionDeleteComment: authorOrAdmin,
}

// Decide evaluates action for caller against target. Inactive callers are
// denied everything.
func Decide(caller Caller, action Action, target Target) Decision {
	if !caller.Active {
		return Deny(ErrUserInactive)
	}
	r, ok := rules[action]
	if !ok {
		return Deny(ErrUnknownAction)
	}
	return r(caller, target)
}

// Authorize is Decide returning an error.
func Authorize(caller Caller, action Action, target Target) error {
	return Decide(caller, action, target).Err()
}

func all(rs ...rule) rule {
	return func(c Caller, t Target) Decision {
		for _, r := range rs {
			if d := r(c, t); !d.Allowed {
				return d
			}
		}
		return Allow
	}
}

func anyone(Caller, Target) Decision {
	return Allow
}

func adminOnly(c Caller, _ Target) Decision {
	if c.IsAdmin() {
		return Allow
	}
	return Deny(ErrAdminRequired)
}

func adminOrRole(role models.Role) rule {
	return func(c Caller, _ Target) Decision {
		if c.IsAdmin() || c.Role == role {
			return Allow
		}
		return Deny(apierrors.ErrForbidden)
	}
}

func notSelf(c Caller, t Target) Decision {
	if c.UserID == t.UserID {
		return Deny(ErrSelfDeletionForbidden)
	}
	return Allow
}

func notAdminTarget(_ Caller, t Target) Decision {
	if t.UserRole == models.RoleAdmin {
		return Deny(ErrAdminProtected)
	}
	return Allow
}

func leaderOnly(c Caller, t Target) Decision {
	if t.ledBy(c.UserID) {
		return Allow
	}
	return Deny(ErrNotTeamLeader)
}

func leaderOrAdmin(c Caller, t Target) Decision {
	if c.IsAdmin() || t.ledBy(c.UserID) {
		return Allow
	}
	return Deny(ErrNotTeamLeader)
}

func teamReader(c Caller, t Target) Decision {
	if c.IsAdmin() || t.ledBy(c.UserID) || t.CallerIsMember {
		return Allow
	}
	return Deny(ErrNotTeamMember)
}

func teamParticipant(c Caller, t Target) Decision {
	if t.ledBy(c.UserID) || t.CallerIsMember {
		return Allow
	}
	return Deny(ErrNotTeamMember)
}

func assigneeLeaderOrAdmin(c Caller, t Target) Decision {
	if c.IsAdmin() || t.ledBy(c.UserID) || t.assignedTo(c.UserID) {
		return Allow
	}
	return Deny(ErrNotTaskParticipant)
}

func authorOrAdmin(c Caller, t Target) Decision {
	if c.IsAdmin() || t.authoredBy(c.UserID) {
		return Allow
	}
	return Deny(ErrNotCommentAuthor)
}
