package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/authz"
	"github.com/yukikurage/team-task-api/internal/constants"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/testutil"
)

func (s *ServiceTestSuite) TestCreateTask() {
	team := s.team()
	due := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)

	task, err := s.tasks.CreateTask(s.ctx, s.leader.ID, team.ID, CreateTaskInput{
		Title:      " Ship it ",
		DueDate:    &due,
		AssigneeID: &s.member.ID,
	})
	s.Require().NoError(err)
	s.Equal("Ship it", task.Title)
	s.Equal(models.TaskPriorityMedium, task.Priority)
	s.Equal(models.TaskStatusTodo, task.Status)
	s.Require().NotNil(task.CreatorID)
	s.Equal(s.leader.ID, *task.CreatorID)
	s.Require().NotNil(task.Assignee)
	s.Equal(s.member.ID, task.Assignee.ID)
	s.Require().NotNil(task.DueDate)
	s.True(due.Equal(*task.DueDate))
}

func (s *ServiceTestSuite) TestCreateTask_Rejections() {
	team := s.team()

	_, err := s.tasks.CreateTask(s.ctx, s.member.ID, team.ID, CreateTaskInput{Title: "Mine"})
	s.ErrorIs(err, authz.ErrNotTeamLeader)

	_, err = s.tasks.CreateTask(s.ctx, s.admin.ID, team.ID, CreateTaskInput{Title: "Admin"})
	s.ErrorIs(err, authz.ErrNotTeamLeader)

	_, err = s.tasks.CreateTask(s.ctx, s.leader.ID, team.ID, CreateTaskInput{Title: "Bad", AssigneeID: &s.outsider.ID})
	s.ErrorIs(err, ErrAssigneeNotInTeam)

	_, err = s.tasks.CreateTask(s.ctx, s.leader.ID, team.ID, CreateTaskInput{Title: "  "})
	s.ErrorIs(err, ErrTitleRequired)

	_, err = s.tasks.CreateTask(s.ctx, s.leader.ID, team.ID, CreateTaskInput{Title: strings.Repeat("x", constants.MaxTaskTitleLength+1)})
	s.ErrorIs(err, ErrTitleTooLong)

	_, err = s.tasks.CreateTask(s.ctx, s.leader.ID, team.ID, CreateTaskInput{Title: "Odd", Priority: "CRITICAL"})
	s.ErrorIs(err, ErrInvalidPriority)

	_, err = s.tasks.CreateTask(s.ctx, s.leader.ID, uuid.New(), CreateTaskInput{Title: "Nowhere"})
	s.ErrorIs(err, ErrTeamNotFound)
}

func (s *ServiceTestSuite) TestUpdateTask_AssigneeMovesStatus() {
	team := s.team()
	task := testutil.CreateTask(s.T(), s.db, team, "Build", s.leader, s.member)

	for _, status := range []models.TaskStatus{
		models.TaskStatusInProgress, models.TaskStatusOnHold, models.TaskStatusCompleted, models.TaskStatusTodo,
	} {
		updated, err := s.tasks.UpdateTask(s.ctx, s.member.ID, task.ID, UpdateTaskInput{Status: testutil.Ptr(status)})
		s.Require().NoError(err)
		s.Equal(status, updated.Status)
	}

	_, err := s.tasks.UpdateTask(s.ctx, s.member.ID, task.ID, UpdateTaskInput{Status: testutil.Ptr(models.TaskStatus("DONE"))})
	s.ErrorIs(err, ErrInvalidStatus)
}

func (s *ServiceTestSuite) TestUpdateTask_AssigneeCannotEditFields() {
	team := s.team()
	task := testutil.CreateTask(s.T(), s.db, team, "Build", s.leader, s.member)

	_, err := s.tasks.UpdateTask(s.ctx, s.member.ID, task.ID, UpdateTaskInput{
		Title:  testutil.Ptr("Renamed"),
		Status: testutil.Ptr(models.TaskStatusCompleted),
	})
	s.ErrorIs(err, authz.ErrNotTeamLeader)

	var reloaded models.Task
	s.Require().NoError(s.db.Where("id = ?", task.ID).First(&reloaded).Error)
	s.Equal("Build", reloaded.Title)
	s.Equal(models.TaskStatusTodo, reloaded.Status)
}

func (s *ServiceTestSuite) TestUpdateTask_AssigneeResendsUnchangedFields() {
	team := s.team()
	task := testutil.CreateTask(s.T(), s.db, team, "Build", s.leader, s.member)

	updated, err := s.tasks.UpdateTask(s.ctx, s.member.ID, task.ID, UpdateTaskInput{
		Title:        testutil.Ptr(" Build "),
		Description:  testutil.Ptr(""),
		Priority:     testutil.Ptr(models.TaskPriorityMedium),
		AssigneeID:   testutil.IDPtr(s.member.ID),
		ClearDueDate: true,
		Status:       testutil.Ptr(models.TaskStatusInProgress),
	})
	s.Require().NoError(err)
	s.Equal(models.TaskStatusInProgress, updated.Status)
	s.Equal("Build", updated.Title)

	_, err = s.tasks.UpdateTask(s.ctx, s.member.ID, task.ID, UpdateTaskInput{
		Priority: testutil.Ptr(models.TaskPriorityHigh),
		Status:   testutil.Ptr(models.TaskStatusCompleted),
	})
	s.ErrorIs(err, authz.ErrNotTeamLeader)
}

func (s *ServiceTestSuite) TestUpdateTask_NonAssigneeMemberDenied() {
	team := s.team()
	task := testutil.CreateTask(s.T(), s.db, team, "Build", s.leader, nil)

	_, err := s.tasks.UpdateTask(s.ctx, s.member.ID, task.ID, UpdateTaskInput{Status: testutil.Ptr(models.TaskStatusInProgress)})
	s.ErrorIs(err, authz.ErrNotTaskParticipant)
}

func (s *ServiceTestSuite) TestUpdateTask_LeaderAndAdminEditFields() {
	team := s.team()
	task := testutil.CreateTask(s.T(), s.db, team, "Build", s.leader, nil)

	updated, err := s.tasks.UpdateTask(s.ctx, s.leader.ID, task.ID, UpdateTaskInput{
		Priority:   testutil.Ptr(models.TaskPriorityUrgent),
		AssigneeID: &s.member.ID,
	})
	s.Require().NoError(err)
	s.Equal(models.TaskPriorityUrgent, updated.Priority)
	s.Require().NotNil(updated.AssigneeID)
	s.Equal(s.member.ID, *updated.AssigneeID)

	_, err = s.tasks.UpdateTask(s.ctx, s.leader.ID, task.ID, UpdateTaskInput{AssigneeID: &s.outsider.ID})
	s.ErrorIs(err, ErrAssigneeNotInTeam)

	updated, err = s.tasks.UpdateTask(s.ctx, s.admin.ID, task.ID, UpdateTaskInput{
		Title:         testutil.Ptr("Build v2"),
		ClearAssignee: true,
	})
	s.Require().NoError(err)
	s.Equal("Build v2", updated.Title)
	s.Nil(updated.AssigneeID)

	_, err = s.tasks.UpdateTask(s.ctx, s.admin.ID, task.ID, UpdateTaskInput{})
	s.ErrorIs(err, ErrNoTaskChanges)

	_, err = s.tasks.UpdateTask(s.ctx, s.outsider.ID, task.ID, UpdateTaskInput{Title: testutil.Ptr("Mine")})
	s.ErrorIs(err, authz.ErrNotTeamLeader)
}

func (s *ServiceTestSuite) TestDeleteTask() {
	team := s.team()
	task := testutil.CreateTask(s.T(), s.db, team, "Build", s.leader, s.member)
	testutil.CreateComment(s.T(), s.db, task, s.member, "started")

	s.ErrorIs(s.tasks.DeleteTask(s.ctx, s.member.ID, task.ID), authz.ErrNotTeamLeader)
	s.Require().NoError(s.tasks.DeleteTask(s.ctx, s.leader.ID, task.ID))

	_, err := s.tasks.GetTask(s.ctx, s.leader.ID, task.ID)
	s.ErrorIs(err, ErrTaskNotFound)

	var count int64
	s.Require().NoError(s.db.Model(&models.Comment{}).Where("task_id = ?", task.ID).Count(&count).Error)
	s.Zero(count)

	s.ErrorIs(s.tasks.DeleteTask(s.ctx, s.leader.ID, task.ID), ErrTaskNotFound)
}

func (s *ServiceTestSuite) TestGetTask_CommentsOldestFirst() {
	team := s.team()
	task := testutil.CreateTask(s.T(), s.db, team, "Build", s.leader, s.member)

	base := time.Now().Add(-time.Hour)
	for i, content := range []string{"first", "second", "third"} {
		c := testutil.CreateComment(s.T(), s.db, task, s.member, content)
		s.Require().NoError(s.db.Model(c).UpdateColumn("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}

	got, err := s.tasks.GetTask(s.ctx, s.member.ID, task.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Comments, 3)
	s.Equal("first", got.Comments[0].Content)
	s.Equal("third", got.Comments[2].Content)
	s.Require().NotNil(got.Comments[0].Author)
	s.Equal(s.member.ID, got.Comments[0].Author.ID)

	_, err = s.tasks.GetTask(s.ctx, s.outsider.ID, task.ID)
	s.ErrorIs(err, authz.ErrNotTeamMember)
}

func (s *ServiceTestSuite) TestListTeamTasks() {
	team := s.team()
	testutil.CreateTask(s.T(), s.db, team, "Mine", s.leader, s.member)
	testutil.CreateTask(s.T(), s.db, team, "Unassigned", s.leader, nil)
	done := testutil.CreateTask(s.T(), s.db, team, "Done", s.leader, nil)
	s.Require().NoError(s.db.Model(done).UpdateColumn("status", models.TaskStatusCompleted).Error)

	tasks, total, err := s.tasks.ListTeamTasks(s.ctx, s.member.ID, team.ID, ListTasksInput{})
	s.Require().NoError(err)
	s.Len(tasks, 3)
	s.Equal(int64(3), total)

	tasks, total, err = s.tasks.ListTeamTasks(s.ctx, s.member.ID, team.ID, ListTasksInput{AssignedToMe: true})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal("Mine", tasks[0].Title)

	tasks, _, err = s.tasks.ListTeamTasks(s.ctx, s.admin.ID, team.ID, ListTasksInput{Status: testutil.Ptr(models.TaskStatusCompleted)})
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.Equal(done.ID, tasks[0].ID)

	_, _, err = s.tasks.ListTeamTasks(s.ctx, s.member.ID, team.ID, ListTasksInput{Priority: testutil.Ptr(models.TaskPriority("NOW"))})
	s.ErrorIs(err, ErrInvalidPriority)

	_, _, err = s.tasks.ListTeamTasks(s.ctx, s.outsider.ID, team.ID, ListTasksInput{})
	s.ErrorIs(err, authz.ErrNotTeamMember)
}

func (s *ServiceTestSuite) TestDraftTasks() {
	team := s.team()
	s.drafter.tasks = []GeneratedTask{
		{Title: "Write plan", Priority: models.TaskPriorityHigh},
		{Title: "   "},
		{Title: "Review plan", Priority: models.TaskPriorityLow},
	}

	drafts, err := s.tasks.DraftTasks(s.ctx, s.leader.ID, team.ID, "plan the release")
	s.Require().NoError(err)
	s.Require().Len(drafts, 2)
	s.Equal("Write plan", drafts[0].Title)
	s.Equal("Review plan", drafts[1].Title)

	var count int64
	s.Require().NoError(s.db.Model(&models.Task{}).Count(&count).Error)
	s.Zero(count)

	_, err = s.tasks.DraftTasks(s.ctx, s.leader.ID, team.ID, "  ")
	s.ErrorIs(err, ErrDraftTextRequired)

	_, err = s.tasks.DraftTasks(s.ctx, s.member.ID, team.ID, "plan")
	s.ErrorIs(err, authz.ErrNotTeamLeader)
	s.Equal(1, s.drafter.calls)
}

func (s *ServiceTestSuite) TestDraftTasks_CapsResults() {
	team := s.team()
	s.drafter.tasks = make([]GeneratedTask, constants.MaxAIGeneratedTasks+5)
	for i := range s.drafter.tasks {
		s.drafter.tasks[i] = GeneratedTask{Title: "Step", Priority: models.TaskPriorityMedium}
	}

	drafts, err := s.tasks.DraftTasks(s.ctx, s.leader.ID, team.ID, "many steps")
	s.Require().NoError(err)
	s.Len(drafts, constants.MaxAIGeneratedTasks)
}

func (s *ServiceTestSuite) TestDraftTasks_DrafterErrors() {
	team := s.team()
	s.drafter.err = errors.New("upstream timeout")

	_, err := s.tasks.DraftTasks(s.ctx, s.leader.ID, team.ID, "plan")
	s.ErrorIs(err, s.drafter.err)

	unconfigured := NewTaskService(s.store, s.tasks.guard, nil)
	_, err = unconfigured.DraftTasks(s.ctx, s.leader.ID, team.ID, "plan")
	s.ErrorIs(err, ErrAIServiceNotConfigured)
	s.True(apierrors.IsKind(err, apierrors.KindUnavailable))
}
