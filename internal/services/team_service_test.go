package services

import (
	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/authz"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/testutil"
)

func memberIDs(members []models.TeamMember) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids
}

func (s *ServiceTestSuite) TestCreateTeam() {
	_, err := s.teams.CreateTeam(s.ctx, s.admin.ID, CreateTeamInput{Name: "Core", LeaderID: s.member.ID})
	s.ErrorIs(err, ErrInvalidLeader)

	_, err = s.teams.CreateTeam(s.ctx, s.admin.ID, CreateTeamInput{Name: "   ", LeaderID: s.leader.ID})
	s.ErrorIs(err, ErrInvalidTeamName)

	team, err := s.teams.CreateTeam(s.ctx, s.admin.ID, CreateTeamInput{Name: " Core ", Description: "platform", LeaderID: s.leader.ID})
	s.Require().NoError(err)
	s.Equal("Core", team.Name)
	s.Require().NotNil(team.Leader)
	s.Equal(s.leader.ID, team.Leader.ID)
	s.ElementsMatch([]uuid.UUID{s.leader.ID}, memberIDs(team.Members))

	_, err = s.teams.CreateTeam(s.ctx, s.admin.ID, CreateTeamInput{Name: "Other", LeaderID: s.leader.ID})
	s.ErrorIs(err, ErrLeaderAlreadyAssigned)
}

func (s *ServiceTestSuite) TestCreateTeam_InactiveLeaderRejected() {
	s.Require().NoError(s.db.Model(s.leader).Update("is_active", false).Error)

	_, err := s.teams.CreateTeam(s.ctx, s.admin.ID, CreateTeamInput{Name: "Core", LeaderID: s.leader.ID})
	s.ErrorIs(err, ErrInvalidLeader)
}

func (s *ServiceTestSuite) TestAddMember() {
	team := testutil.CreateTeam(s.T(), s.db, "Core", s.leader)

	members, err := s.teams.AddMember(s.ctx, s.leader.ID, team.ID, s.member.ID)
	s.Require().NoError(err)
	s.ElementsMatch([]uuid.UUID{s.leader.ID, s.member.ID}, memberIDs(members))

	_, err = s.teams.AddMember(s.ctx, s.leader.ID, team.ID, s.member.ID)
	s.ErrorIs(err, ErrAlreadyMember)

	other := testutil.CreateUser(s.T(), s.db, "other-leader", models.RoleTeamLeader)
	_, err = s.teams.AddMember(s.ctx, s.leader.ID, team.ID, other.ID)
	s.ErrorIs(err, ErrNotEligible)

	_, err = s.teams.AddMember(s.ctx, s.leader.ID, team.ID, uuid.New())
	s.ErrorIs(err, ErrUserNotFound)

	_, err = s.teams.AddMember(s.ctx, s.admin.ID, team.ID, s.outsider.ID)
	s.ErrorIs(err, authz.ErrNotTeamLeader)

	_, err = s.teams.AddMember(s.ctx, s.leader.ID, uuid.New(), s.outsider.ID)
	s.ErrorIs(err, ErrTeamNotFound)
}

func (s *ServiceTestSuite) TestAddMember_InactiveUserNotEligible() {
	team := testutil.CreateTeam(s.T(), s.db, "Core", s.leader)
	s.Require().NoError(s.db.Model(s.outsider).Update("is_active", false).Error)

	_, err := s.teams.AddMember(s.ctx, s.leader.ID, team.ID, s.outsider.ID)
	s.ErrorIs(err, ErrNotEligible)
}

func (s *ServiceTestSuite) TestRemoveMember() {
	team := s.team()
	assigned := testutil.CreateTask(s.T(), s.db, team, "Assigned", s.leader, s.member)

	s.ErrorIs(s.teams.RemoveMember(s.ctx, s.leader.ID, team.ID, s.leader.ID), ErrCannotRemoveLeader)
	s.ErrorIs(s.teams.RemoveMember(s.ctx, s.leader.ID, team.ID, s.outsider.ID), ErrMemberNotFound)
	s.ErrorIs(s.teams.RemoveMember(s.ctx, s.member.ID, team.ID, s.member.ID), authz.ErrNotTeamLeader)

	s.Require().NoError(s.teams.RemoveMember(s.ctx, s.leader.ID, team.ID, s.member.ID))

	var task models.Task
	s.Require().NoError(s.db.Where("id = ?", assigned.ID).First(&task).Error)
	s.Nil(task.AssigneeID)

	_, err := s.teams.GetTeam(s.ctx, s.member.ID, team.ID)
	s.ErrorIs(err, authz.ErrNotTeamMember)
}

func (s *ServiceTestSuite) TestUpdateTeam_ChangesLeader() {
	team := s.team()
	task := testutil.CreateTask(s.T(), s.db, team, "Plan", s.leader, s.leader)
	successor := testutil.CreateUser(s.T(), s.db, "successor", models.RoleTeamLeader)

	name := "Renamed"
	updated, err := s.teams.UpdateTeam(s.ctx, s.admin.ID, team.ID, UpdateTeamInput{Name: &name, LeaderID: &successor.ID})
	s.Require().NoError(err)
	s.Equal("Renamed", updated.Name)
	s.Require().NotNil(updated.LeaderID)
	s.Equal(successor.ID, *updated.LeaderID)
	s.ElementsMatch([]uuid.UUID{s.member.ID, successor.ID}, memberIDs(updated.Members))

	var reloaded models.Task
	s.Require().NoError(s.db.Where("id = ?", task.ID).First(&reloaded).Error)
	s.Nil(reloaded.AssigneeID)

	_, err = s.teams.UpdateTeam(s.ctx, s.leader.ID, team.ID, UpdateTeamInput{Name: &name})
	s.ErrorIs(err, authz.ErrAdminRequired)
}

func (s *ServiceTestSuite) TestDeleteTeam_Cascades() {
	team := s.team()
	task := testutil.CreateTask(s.T(), s.db, team, "Plan", s.leader, s.member)
	testutil.CreateComment(s.T(), s.db, task, s.member, "noted")

	s.Require().NoError(s.teams.DeleteTeam(s.ctx, s.admin.ID, team.ID))

	var count int64
	s.Require().NoError(s.db.Model(&models.Task{}).Where("team_id = ?", team.ID).Count(&count).Error)
	s.Zero(count)
	s.Require().NoError(s.db.Model(&models.Comment{}).Where("task_id = ?", task.ID).Count(&count).Error)
	s.Zero(count)
	s.Require().NoError(s.db.Model(&models.TeamMember{}).Where("team_id = ?", team.ID).Count(&count).Error)
	s.Zero(count)

	_, err := s.teams.GetTeam(s.ctx, s.admin.ID, team.ID)
	s.ErrorIs(err, ErrTeamNotFound)

	// The leader is free to lead a new team.
	_, err = s.teams.CreateTeam(s.ctx, s.admin.ID, CreateTeamInput{Name: "Next", LeaderID: s.leader.ID})
	s.NoError(err)
}

func (s *ServiceTestSuite) TestGetTeam() {
	team := s.team()

	for _, caller := range []*models.User{s.admin, s.leader, s.member} {
		got, err := s.teams.GetTeam(s.ctx, caller.ID, team.ID)
		s.Require().NoError(err)
		s.Len(got.Members, 2)
	}

	_, err := s.teams.GetTeam(s.ctx, s.outsider.ID, team.ID)
	s.ErrorIs(err, authz.ErrNotTeamMember)
}

func (s *ServiceTestSuite) TestListTeamsAndMyTeams() {
	team := s.team()
	testutil.CreateTeam(s.T(), s.db, "Other", testutil.CreateUser(s.T(), s.db, "lead2", models.RoleTeamLeader))

	all, total, err := s.teams.ListTeams(s.ctx, s.admin.ID, 1, 20)
	s.Require().NoError(err)
	s.Len(all, 2)
	s.Equal(int64(2), total)

	_, _, err = s.teams.ListTeams(s.ctx, s.leader.ID, 1, 20)
	s.ErrorIs(err, authz.ErrAdminRequired)

	for _, caller := range []*models.User{s.leader, s.member} {
		mine, err := s.teams.MyTeams(s.ctx, caller.ID)
		s.Require().NoError(err)
		s.Require().Len(mine, 1)
		s.Equal(team.ID, mine[0].ID)
	}

	mine, err := s.teams.MyTeams(s.ctx, s.outsider.ID)
	s.Require().NoError(err)
	s.Empty(mine)
}

func (s *ServiceTestSuite) TestAvailableMembers() {
	users, err := s.teams.AvailableMembers(s.ctx, s.leader.ID)
	s.Require().NoError(err)

	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	s.ElementsMatch([]uuid.UUID{s.member.ID, s.outsider.ID}, ids)

	_, err = s.teams.AvailableMembers(s.ctx, s.member.ID)
	s.ErrorIs(err, apierrors.ErrForbidden)
}
