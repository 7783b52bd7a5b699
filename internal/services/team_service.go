package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/authz"
	"github.com/yukikurage/team-task-api/internal/constants"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTeamNotFound          = apierrors.New(apierrors.KindNotFound, apierrors.ErrCodeTeamNotFound, "Team not found")
	ErrMemberNotFound        = apierrors.New(apierrors.KindNotFound, apierrors.ErrCodeMemberNotFound, "User is not a member of this team")
	ErrInvalidTeamName       = apierrors.New(apierrors.KindValidation, apierrors.ErrCodeInvalidInput, "Team name must be 1 to 100 characters")
	ErrInvalidLeader         = apierrors.New(apierrors.KindValidation, apierrors.ErrCodeInvalidLeader, "Leader must be an active user with the TEAM_LEADER role")
	ErrLeaderAlreadyAssigned = apierrors.New(apierrors.KindConflict, apierrors.ErrCodeLeaderAlreadyAssigned, "This leader already leads another team")
	ErrAlreadyMember         = apierrors.New(apierrors.KindConflict, apierrors.ErrCodeAlreadyMember, "User is already a member of this team")
	ErrNotEligible           = apierrors.New(apierrors.KindValidation, apierrors.ErrCodeNotEligible, "Only active users with the MEMBER role can be added")
	ErrCannotRemoveLeader    = apierrors.New(apierrors.KindValidation, apierrors.ErrCodeCannotRemoveLeader, "Cannot remove the team leader")
)

var teamDetail = []string{"Leader", "Members.User"}

// TeamService provides business logic for team operations.
type TeamService struct {
	store repository.Store
	guard *Guard
}

// NewTeamService creates a new TeamService.
func NewTeamService(store repository.Store, guard *Guard) *TeamService {
	return &TeamService{
		store: store,
		guard: guard,
	}
}

// CreateTeamInput represents parameters to create a new team.
type CreateTeamInput struct {
	Name        string
	Description string
	LeaderID    uuid.UUID
}

// UpdateTeamInput holds the fields to change. Nil means unchanged.
type UpdateTeamInput struct {
	Name        *string
	Description *string
	LeaderID    *uuid.UUID
}

func validateTeamName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > constants.MaxTeamNameLength {
		return "", ErrInvalidTeamName
	}
	return name, nil
}

// checkLeader locks the prospective leader and verifies they may lead teamID.
// A zero teamID means a new team.
func checkLeader(ctx context.Context, tx repository.Store, leaderID, teamID uuid.UUID) error {
	leader, err := tx.Users().FindByIDForUpdate(ctx, leaderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidLeader
		}
		return fmt.Errorf("failed to find leader: %w", err)
	}
	if leader.Role != models.RoleTeamLeader || !leader.IsActive {
		return ErrInvalidLeader
	}

	led, err := tx.Teams().FindByLeaderID(ctx, leaderID)
	if err == nil && led.ID != teamID {
		return ErrLeaderAlreadyAssigned
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check leader assignment: %w", err)
	}
	return nil
}

// ensureMember adds userID to teamID unless already present.
func ensureMember(ctx context.Context, tx repository.Store, teamID, userID uuid.UUID) error {
	member, err := isMember(ctx, tx.Teams(), teamID, userID)
	if err != nil || member {
		return err
	}
	if err := tx.Teams().AddMember(ctx, &models.TeamMember{
		TeamID:   teamID,
		UserID:   userID,
		JoinedAt: time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

// CreateTeam creates a team whose only member is its leader.
func (s *TeamService) CreateTeam(ctx context.Context, callerID uuid.UUID, input CreateTeamInput) (*models.Team, error) {
	var (
		team   *models.Team
		caller authz.Caller
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		caller, err = loadCaller(ctx, tx.Users(), callerID)
		if err != nil {
			return err
		}
		if err := s.guard.Authorize(ctx, caller, authz.ActionCreateTeam, authz.Target{}); err != nil {
			return err
		}

		name, err := validateTeamName(input.Name)
		if err != nil {
			return err
		}
		if err := checkLeader(ctx, tx, input.LeaderID, uuid.Nil); err != nil {
			return err
		}

		created := &models.Team{
			Name:        name,
			Description: strings.TrimSpace(input.Description),
			LeaderID:    &input.LeaderID,
		}
		if err := tx.Teams().Create(ctx, created); err != nil {
			return fmt.Errorf("failed to create team: %w", err)
		}
		if err := ensureMember(ctx, tx, created.ID, input.LeaderID); err != nil {
			return err
		}

		team, err = tx.Teams().FindByID(ctx, created.ID, teamDetail...)
		if err != nil {
			return fmt.Errorf("failed to reload team: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.guard.Record(ctx, caller, authz.ActionCreateTeam, "team", team.ID)
	return team, nil
}

// UpdateTeam changes name, description or leader. A new leader is subject to
// the same checks as on creation; the previous leader leaves the team.
func (s *TeamService) UpdateTeam(ctx context.Context, callerID, teamID uuid.UUID, input UpdateTeamInput) (*models.Team, error) {
	var (
		team   *models.Team
		caller authz.Caller
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		caller, err = loadCaller(ctx, tx.Users(), callerID)
		if err != nil {
			return err
		}

		current, err := tx.Teams().FindByIDForUpdate(ctx, teamID)
		if err != nil {
			return notFound(err, ErrTeamNotFound, "team")
		}
		if err := s.guard.Authorize(ctx, caller, authz.ActionUpdateTeam, authz.Target{TeamLeaderID: current.LeaderID}); err != nil {
			return err
		}

		if input.Name != nil {
			name, err := validateTeamName(*input.Name)
			if err != nil {
				return err
			}
			current.Name = name
		}
		if input.Description != nil {
			current.Description = strings.TrimSpace(*input.Description)
		}

		if input.LeaderID != nil && !current.IsLedBy(*input.LeaderID) {
			newLeader := *input.LeaderID
			if err := checkLeader(ctx, tx, newLeader, current.ID); err != nil {
				return err
			}
			if current.LeaderID != nil {
				previous := *current.LeaderID
				if err := tx.Teams().RemoveMember(ctx, current.ID, previous); err != nil {
					return fmt.Errorf("failed to remove previous leader: %w", err)
				}
				if err := tx.Tasks().UnassignMember(ctx, current.ID, previous); err != nil {
					return fmt.Errorf("failed to unassign previous leader: %w", err)
				}
			}
			current.LeaderID = &newLeader
			if err := ensureMember(ctx, tx, current.ID, newLeader); err != nil {
				return err
			}
		}

		if err := tx.Teams().Update(ctx, current); err != nil {
			return fmt.Errorf("failed to update team: %w", err)
		}

		team, err = tx.Teams().FindByID(ctx, current.ID, teamDetail...)
		if err != nil {
			return fmt.Errorf("failed to reload team: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.guard.Record(ctx, caller, authz.ActionUpdateTeam, "team", team.ID)
	return team, nil
}

// DeleteTeam removes a team, its tasks and their comments.
func (s *TeamService) DeleteTeam(ctx context.Context, callerID, teamID uuid.UUID) error {
	var caller authz.Caller
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		caller, err = loadCaller(ctx, tx.Users(), callerID)
		if err != nil {
			return err
		}

		team, err := tx.Teams().FindByIDForUpdate(ctx, teamID)
		if err != nil {
			return notFound(err, ErrTeamNotFound, "team")
		}
		if err := s.guard.Authorize(ctx, caller, authz.ActionDeleteTeam, authz.Target{TeamLeaderID: team.LeaderID}); err != nil {
			return err
		}

		if err := tx.Teams().Delete(ctx, team.ID); err != nil {
			return fmt.Errorf("failed to delete team: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.guard.Record(ctx, caller, authz.ActionDeleteTeam, "team", teamID)
	return nil
}

// AddMember adds a MEMBER-role user to the team. Only the team's leader may do this.
func (s *TeamService) AddMember(ctx context.Context, callerID, teamID, userID uuid.UUID) ([]models.TeamMember, error) {
	var (
		members []models.TeamMember
		caller  authz.Caller
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		caller, err = loadCaller(ctx, tx.Users(), callerID)
		if err != nil {
			return err
		}

		team, err := tx.Teams().FindByIDForUpdate(ctx, teamID)
		if err != nil {
			return notFound(err, ErrTeamNotFound, "team")
		}
		if err := s.guard.Authorize(ctx, caller, authz.ActionAddMember, authz.Target{TeamLeaderID: team.LeaderID}); err != nil {
			return err
		}

		user, err := tx.Users().FindByIDForUpdate(ctx, userID)
		if err != nil {
			return notFound(err, ErrUserNotFound, "user")
		}

		member, err := isMember(ctx, tx.Teams(), team.ID, user.ID)
		if err != nil {
			return err
		}
		if member {
			return ErrAlreadyMember
		}
		if user.Role != models.RoleMember || !user.IsActive {
			return ErrNotEligible
		}

		if err := tx.Teams().AddMember(ctx, &models.TeamMember{
			TeamID:   team.ID,
			UserID:   user.ID,
			JoinedAt: time.Now(),
		}); err != nil {
			return fmt.Errorf("failed to add member: %w", err)
		}

		members, err = tx.Teams().ListMembers(ctx, team.ID)
		if err != nil {
			return fmt.Errorf("failed to list members: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.guard.Record(ctx, caller, authz.ActionAddMember, "team", teamID)
	return members, nil
}

// RemoveMember removes a member from the team and unassigns their tasks in it.
func (s *TeamService) RemoveMember(ctx context.Context, callerID, teamID, userID uuid.UUID) error {
	var caller authz.Caller
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		caller, err = loadCaller(ctx, tx.Users(), callerID)
		if err != nil {
			return err
		}

		team, err := tx.Teams().FindByIDForUpdate(ctx, teamID)
		if err != nil {
			return notFound(err, ErrTeamNotFound, "team")
		}
		if err := s.guard.Authorize(ctx, caller, authz.ActionRemoveMember, authz.Target{TeamLeaderID: team.LeaderID}); err != nil {
			return err
		}

		if team.IsLedBy(userID) {
			return ErrCannotRemoveLeader
		}

		member, err := isMember(ctx, tx.Teams(), team.ID, userID)
		if err != nil {
			return err
		}
		if !member {
			return ErrMemberNotFound
		}

		if err := tx.Teams().RemoveMember(ctx, team.ID, userID); err != nil {
			return fmt.Errorf("failed to remove member: %w", err)
		}
		if err := tx.Tasks().UnassignMember(ctx, team.ID, userID); err != nil {
			return fmt.Errorf("failed to unassign tasks: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.guard.Record(ctx, caller, authz.ActionRemoveMember, "team", teamID)
	return nil
}

// GetTeam returns a team with its leader and members.
func (s *TeamService) GetTeam(ctx context.Context, callerID, teamID uuid.UUID) (*models.Team, error) {
	caller, err := loadCaller(ctx, s.store.Users(), callerID)
	if err != nil {
		return nil, err
	}

	team, err := s.store.Teams().FindByID(ctx, teamID, teamDetail...)
	if err != nil {
		return nil, notFound(err, ErrTeamNotFound, "team")
	}

	member := false
	for _, m := range team.Members {
		if m.UserID == caller.UserID {
			member = true
			break
		}
	}

	target := authz.Target{TeamLeaderID: team.LeaderID, CallerIsMember: member}
	if err := s.guard.Authorize(ctx, caller, authz.ActionViewTeam, target); err != nil {
		return nil, err
	}
	return team, nil
}

// ListTeams returns every team for an Admin.
func (s *TeamService) ListTeams(ctx context.Context, callerID uuid.UUID, page, pageSize int) ([]models.Team, int64, error) {
	caller, err := loadCaller(ctx, s.store.Users(), callerID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.guard.Authorize(ctx, caller, authz.ActionListTeams, authz.Target{}); err != nil {
		return nil, 0, err
	}

	teams, total, err := s.store.Teams().List(ctx, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, total, nil
}

// MyTeams returns the teams the caller leads or belongs to.
func (s *TeamService) MyTeams(ctx context.Context, callerID uuid.UUID) ([]models.Team, error) {
	caller, err := loadCaller(ctx, s.store.Users(), callerID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, caller, authz.ActionListMyTeams, authz.Target{}); err != nil {
		return nil, err
	}

	teams, err := s.store.Teams().ListForUser(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// AvailableMembers lists active MEMBER-role users that can be added to teams.
func (s *TeamService) AvailableMembers(ctx context.Context, callerID uuid.UUID) ([]models.User, error) {
	caller, err := loadCaller(ctx, s.store.Users(), callerID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, caller, authz.ActionListCandidates, authz.Target{}); err != nil {
		return nil, err
	}

	role := models.RoleMember
	active := true
	users, _, err := s.store.Users().List(ctx, repository.UserFilter{Role: &role, IsActive: &active})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
