package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/authz"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/testutil"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// racingStore hides existing emails from FindByEmail, as when a concurrent
// signup commits between the lookup and the insert.
type racingStore struct {
	repository.Store
}

func (r racingStore) Users() repository.UserRepository {
	return racingUsers{r.Store.Users()}
}

func (r racingStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return r.Store.Transaction(ctx, func(tx repository.Store) error {
		return fn(racingStore{tx})
	})
}

type racingUsers struct {
	repository.UserRepository
}

func (racingUsers) FindByEmail(context.Context, string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *ServiceTestSuite) TestRegister_CreatesInactiveMember() {
	user, err := s.identity.Register(s.ctx, RegisterInput{
		Username: "  newbie ",
		Email:    "Newbie@Example.com",
		Password: "longenough",
	})
	s.Require().NoError(err)

	s.Equal("newbie", user.Username)
	s.Equal("newbie@example.com", user.Email)
	s.Equal(models.RoleMember, user.Role)
	s.False(user.IsActive)
	s.NotEqual("longenough", user.PasswordHash)
}

func (s *ServiceTestSuite) TestRegister_DuplicateEmail() {
	_, err := s.identity.Register(s.ctx, RegisterInput{Username: "dup", Email: "MEMBER@example.com", Password: "longenough"})
	s.ErrorIs(err, ErrDuplicateEmail)
	s.True(apierrors.IsKind(err, apierrors.KindConflict))
}

func (s *ServiceTestSuite) TestRegister_DuplicateEmailFromUniqueIndex() {
	guard := NewGuard(nil)
	identity := NewIdentityService(racingStore{s.store}, NewBcryptHasher(bcrypt.MinCost),
		NewTokenService("test-secret", time.Minute), nil, guard)

	_, err := identity.Register(s.ctx, RegisterInput{Username: "dup", Email: "member@example.com", Password: "longenough"})
	s.ErrorIs(err, ErrDuplicateEmail)
	s.True(apierrors.IsKind(err, apierrors.KindConflict))
}

func (s *ServiceTestSuite) TestRegister_Validation() {
	cases := []struct {
		input RegisterInput
		want  error
	}{
		{RegisterInput{Username: " ", Email: "a@example.com", Password: "longenough"}, ErrUsernameRequired},
		{RegisterInput{Username: "a", Email: "not-an-email", Password: "longenough"}, ErrInvalidEmail},
		{RegisterInput{Username: "a", Email: "a@example.com", Password: "short"}, ErrPasswordTooShort},
	}
	for _, tc := range cases {
		_, err := s.identity.Register(s.ctx, tc.input)
		s.ErrorIs(err, tc.want)
	}
}

func (s *ServiceTestSuite) TestAuthenticate() {
	_, err := s.identity.Register(s.ctx, RegisterInput{Username: "pending", Email: "pending@example.com", Password: "longenough"})
	s.Require().NoError(err)

	_, err = s.identity.Authenticate(s.ctx, "pending@example.com", "wrongpassword")
	s.ErrorIs(err, ErrInvalidCredentials)

	_, err = s.identity.Authenticate(s.ctx, "nobody@example.com", "longenough")
	s.ErrorIs(err, ErrInvalidCredentials)

	_, err = s.identity.Authenticate(s.ctx, "pending@example.com", "longenough")
	s.ErrorIs(err, authz.ErrUserInactive)

	result, err := s.identity.Authenticate(s.ctx, "member@example.com", testutil.Password)
	s.Require().NoError(err)
	s.NotEmpty(result.Token)
	s.Equal(s.member.ID, result.User.ID)

	claims, err := s.identity.VerifyToken(s.ctx, result.Token)
	s.Require().NoError(err)
	id, err := claims.UserID()
	s.Require().NoError(err)
	s.Equal(s.member.ID, id)
	s.Equal(models.RoleMember, claims.Role)
}

func (s *ServiceTestSuite) TestLogout_RevokesToken() {
	result, err := s.identity.Authenticate(s.ctx, "member@example.com", testutil.Password)
	s.Require().NoError(err)
	claims, err := s.identity.VerifyToken(s.ctx, result.Token)
	s.Require().NoError(err)

	s.Require().NoError(s.identity.Logout(s.ctx, claims))

	_, err = s.identity.VerifyToken(s.ctx, result.Token)
	s.ErrorIs(err, apierrors.ErrInvalidOrExpiredToken)
}

func (s *ServiceTestSuite) TestActivate() {
	pending, err := s.identity.Register(s.ctx, RegisterInput{Username: "pending", Email: "pending@example.com", Password: "longenough"})
	s.Require().NoError(err)

	_, err = s.identity.Activate(s.ctx, s.leader.ID, pending.ID)
	s.ErrorIs(err, authz.ErrAdminRequired)

	user, err := s.identity.Activate(s.ctx, s.admin.ID, pending.ID)
	s.Require().NoError(err)
	s.True(user.IsActive)

	// Re-activation is a no-op.
	user, err = s.identity.Activate(s.ctx, s.admin.ID, pending.ID)
	s.Require().NoError(err)
	s.True(user.IsActive)

	_, err = s.identity.Activate(s.ctx, s.admin.ID, uuid.New())
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *ServiceTestSuite) TestDeactivate_BlocksFurtherActions() {
	team := s.team()

	_, err := s.identity.Deactivate(s.ctx, s.admin.ID, s.leader.ID)
	s.Require().NoError(err)
	s.False(s.reloadUser(s.leader).IsActive)

	_, err = s.teams.AddMember(s.ctx, s.leader.ID, team.ID, s.outsider.ID)
	s.ErrorIs(err, authz.ErrUserInactive)

	_, err = s.identity.Authenticate(s.ctx, "leader@example.com", testutil.Password)
	s.ErrorIs(err, authz.ErrUserInactive)

	peer := testutil.CreateUser(s.T(), s.db, "peer", models.RoleAdmin)
	_, err = s.identity.Deactivate(s.ctx, s.admin.ID, peer.ID)
	s.ErrorIs(err, authz.ErrAdminProtected)
}

func (s *ServiceTestSuite) TestSetRole() {
	_, err := s.identity.SetRole(s.ctx, s.admin.ID, s.member.ID, models.Role("OWNER"))
	s.ErrorIs(err, ErrInvalidRole)

	user, err := s.identity.SetRole(s.ctx, s.admin.ID, s.outsider.ID, models.RoleTeamLeader)
	s.Require().NoError(err)
	s.Equal(models.RoleTeamLeader, user.Role)
	s.Equal(models.RoleTeamLeader, s.reloadUser(s.outsider).Role)

	_, err = s.identity.SetRole(s.ctx, s.leader.ID, s.member.ID, models.RoleTeamLeader)
	s.ErrorIs(err, authz.ErrAdminRequired)

	peer := testutil.CreateUser(s.T(), s.db, "peer", models.RoleAdmin)
	_, err = s.identity.SetRole(s.ctx, s.admin.ID, peer.ID, models.RoleMember)
	s.ErrorIs(err, authz.ErrAdminProtected)
	_, err = s.identity.SetRole(s.ctx, s.admin.ID, s.admin.ID, models.RoleMember)
	s.ErrorIs(err, authz.ErrAdminProtected)
}

func (s *ServiceTestSuite) TestSetRole_LeaderOfTeamKeepsRole() {
	s.team()

	_, err := s.identity.SetRole(s.ctx, s.admin.ID, s.leader.ID, models.RoleMember)
	s.ErrorIs(err, ErrLeaderOfTeam)
	s.Equal(models.RoleTeamLeader, s.reloadUser(s.leader).Role)
}

func (s *ServiceTestSuite) TestDeleteUser() {
	err := s.identity.DeleteUser(s.ctx, s.admin.ID, s.admin.ID)
	s.ErrorIs(err, authz.ErrSelfDeletionForbidden)

	peer := testutil.CreateUser(s.T(), s.db, "peer", models.RoleAdmin)
	err = s.identity.DeleteUser(s.ctx, s.admin.ID, peer.ID)
	s.ErrorIs(err, authz.ErrAdminProtected)

	err = s.identity.DeleteUser(s.ctx, s.leader.ID, s.member.ID)
	s.ErrorIs(err, authz.ErrAdminRequired)
}

func (s *ServiceTestSuite) TestDeleteUser_ClearsReferences() {
	team := s.team()
	task := testutil.CreateTask(s.T(), s.db, team, "Write docs", s.member, s.member)
	comment := testutil.CreateComment(s.T(), s.db, task, s.member, "on it")

	s.Require().NoError(s.identity.DeleteUser(s.ctx, s.admin.ID, s.member.ID))

	var count int64
	s.Require().NoError(s.db.Model(&models.User{}).Where("id = ?", s.member.ID).Count(&count).Error)
	s.Zero(count)

	var reloadedTask models.Task
	s.Require().NoError(s.db.Where("id = ?", task.ID).First(&reloadedTask).Error)
	s.Nil(reloadedTask.AssigneeID)
	s.Nil(reloadedTask.CreatorID)

	var reloadedComment models.Comment
	s.Require().NoError(s.db.Where("id = ?", comment.ID).First(&reloadedComment).Error)
	s.Nil(reloadedComment.AuthorID)
	s.Equal("on it", reloadedComment.Content)

	s.Require().NoError(s.db.Model(&models.TeamMember{}).Where("user_id = ?", s.member.ID).Count(&count).Error)
	s.Zero(count)
}

func (s *ServiceTestSuite) TestDeleteUser_LeaderLeavesTeamLeaderless() {
	team := s.team()

	s.Require().NoError(s.identity.DeleteUser(s.ctx, s.admin.ID, s.leader.ID))

	var reloaded models.Team
	s.Require().NoError(s.db.Where("id = ?", team.ID).First(&reloaded).Error)
	s.Nil(reloaded.LeaderID)
}

func (s *ServiceTestSuite) TestAdminIsPreconditionForAdminActions() {
	team := s.team()

	for _, caller := range []*models.User{s.leader, s.member} {
		_, err := s.teams.CreateTeam(s.ctx, caller.ID, CreateTeamInput{Name: "X", LeaderID: s.leader.ID})
		s.ErrorIs(err, authz.ErrAdminRequired)

		s.ErrorIs(s.teams.DeleteTeam(s.ctx, caller.ID, team.ID), authz.ErrAdminRequired)

		_, err = s.identity.SetRole(s.ctx, caller.ID, s.outsider.ID, models.RoleTeamLeader)
		s.ErrorIs(err, authz.ErrAdminRequired)

		s.ErrorIs(s.identity.DeleteUser(s.ctx, caller.ID, s.outsider.ID), authz.ErrAdminRequired)

		_, err = s.identity.Activate(s.ctx, caller.ID, s.outsider.ID)
		s.ErrorIs(err, authz.ErrAdminRequired)
	}
}

func (s *ServiceTestSuite) TestListUsers() {
	users, total, err := s.identity.ListUsers(s.ctx, s.admin.ID, ListUsersInput{Page: 1, PageSize: 2})
	s.Require().NoError(err)
	s.Len(users, 2)
	s.Equal(int64(4), total)

	role := models.RoleTeamLeader
	users, total, err = s.identity.ListUsers(s.ctx, s.admin.ID, ListUsersInput{Role: &role})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal(s.leader.ID, users[0].ID)

	_, _, err = s.identity.ListUsers(s.ctx, s.member.ID, ListUsersInput{})
	s.ErrorIs(err, authz.ErrAdminRequired)
}

func (s *ServiceTestSuite) TestSeedAdminAndPromote() {
	user, created, err := s.identity.SeedAdmin(s.ctx, "Root@Example.com", "adminpassword")
	s.Require().NoError(err)
	s.True(created)
	s.Equal(models.RoleAdmin, user.Role)
	s.True(user.IsActive)

	again, created, err := s.identity.SeedAdmin(s.ctx, "root@example.com", "adminpassword")
	s.Require().NoError(err)
	s.False(created)
	s.Equal(user.ID, again.ID)

	promoted, err := s.identity.Promote(s.ctx, "outsider@example.com")
	s.Require().NoError(err)
	s.Equal(models.RoleAdmin, promoted.Role)

	_, err = s.identity.Promote(s.ctx, "ghost@example.com")
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *ServiceTestSuite) TestCallerDeletedMidSession() {
	s.Require().NoError(s.identity.DeleteUser(s.ctx, s.admin.ID, s.outsider.ID))

	_, err := s.teams.MyTeams(s.ctx, s.outsider.ID)
	s.ErrorIs(err, apierrors.ErrUnauthenticated)
}
