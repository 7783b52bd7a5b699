package services

import (
	"strings"

	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/authz"
	"github.com/yukikurage/team-task-api/internal/constants"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/testutil"
)

func (s *ServiceTestSuite) TestAddComment() {
	team := s.team()
	task := testutil.CreateTask(s.T(), s.db, team, "Build", s.leader, s.member)

	comment, err := s.comments.AddComment(s.ctx, s.member.ID, task.ID, "  started  ")
	s.Require().NoError(err)
	s.Equal("started", comment.Content)
	s.Require().NotNil(comment.Author)
	s.Equal(s.member.ID, comment.Author.ID)

	_, err = s.comments.AddComment(s.ctx, s.leader.ID, task.ID, "thanks")
	s.NoError(err)

	_, err = s.comments.AddComment(s.ctx, s.outsider.ID, task.ID, "hello")
	s.ErrorIs(err, authz.ErrNotTeamMember)

	_, err = s.comments.AddComment(s.ctx, s.member.ID, uuid.New(), "lost")
	s.ErrorIs(err, ErrTaskNotFound)

	comments, err := s.comments.ListComments(s.ctx, s.member.ID, task.ID)
	s.Require().NoError(err)
	s.Len(comments, 2)
}

func (s *ServiceTestSuite) TestAddComment_ContentLength() {
	team := s.team()
	task := testutil.CreateTask(s.T(), s.db, team, "Build", s.leader, s.member)

	_, err := s.comments.AddComment(s.ctx, s.member.ID, task.ID, " \n\t ")
	s.ErrorIs(err, ErrEmptyContent)

	_, err = s.comments.AddComment(s.ctx, s.member.ID, task.ID, strings.Repeat("a", constants.MaxCommentLength+1))
	s.ErrorIs(err, ErrContentTooLong)

	// Length is counted in characters, not bytes.
	comment, err := s.comments.AddComment(s.ctx, s.member.ID, task.ID, strings.Repeat("é", constants.MaxCommentLength))
	s.Require().NoError(err)
	s.Len([]rune(comment.Content), constants.MaxCommentLength)
}

func (s *ServiceTestSuite) TestEditComment() {
	team := s.team()
	task := testutil.CreateTask(s.T(), s.db, team, "Build", s.leader, s.member)
	comment := testutil.CreateComment(s.T(), s.db, task, s.member, "draft")

	_, err := s.comments.EditComment(s.ctx, s.leader.ID, comment.ID, "hijack")
	s.ErrorIs(err, authz.ErrNotCommentAuthor)

	edited, err := s.comments.EditComment(s.ctx, s.member.ID, comment.ID, "final")
	s.Require().NoError(err)
	s.Equal("final", edited.Content)

	edited, err = s.comments.EditComment(s.ctx, s.admin.ID, comment.ID, "moderated")
	s.Require().NoError(err)
	s.Equal("moderated", edited.Content)

	_, err = s.comments.EditComment(s.ctx, s.member.ID, comment.ID, "")
	s.ErrorIs(err, ErrEmptyContent)

	_, err = s.comments.EditComment(s.ctx, s.member.ID, uuid.New(), "x")
	s.ErrorIs(err, ErrCommentNotFound)
}

func (s *ServiceTestSuite) TestDeleteComment() {
	team := s.team()
	task := testutil.CreateTask(s.T(), s.db, team, "Build", s.leader, s.member)
	mine := testutil.CreateComment(s.T(), s.db, task, s.member, "mine")
	leaders := testutil.CreateComment(s.T(), s.db, task, s.leader, "leader's")

	s.ErrorIs(s.comments.DeleteComment(s.ctx, s.member.ID, leaders.ID), authz.ErrNotCommentAuthor)
	s.Require().NoError(s.comments.DeleteComment(s.ctx, s.member.ID, mine.ID))
	s.Require().NoError(s.comments.DeleteComment(s.ctx, s.admin.ID, leaders.ID))

	var count int64
	s.Require().NoError(s.db.Model(&models.Comment{}).Where("task_id = ?", task.ID).Count(&count).Error)
	s.Zero(count)

	s.ErrorIs(s.comments.DeleteComment(s.ctx, s.admin.ID, mine.ID), ErrCommentNotFound)
}

func (s *ServiceTestSuite) TestComment_OrphanedAuthorOnlyAdmin() {
	team := s.team()
	task := testutil.CreateTask(s.T(), s.db, team, "Build", s.leader, nil)
	comment := testutil.CreateComment(s.T(), s.db, task, nil, "left behind")

	_, err := s.comments.EditComment(s.ctx, s.leader.ID, comment.ID, "mine now")
	s.ErrorIs(err, authz.ErrNotCommentAuthor)
	s.NoError(s.comments.DeleteComment(s.ctx, s.admin.ID, comment.ID))
}
