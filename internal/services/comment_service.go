package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/authz"
	"github.com/yukikurage/team-task-api/internal/constants"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/repository"
)

var (
	ErrCommentNotFound = apierrors.New(apierrors.KindNotFound, apierrors.ErrCodeCommentNotFound, "Comment not found")
	ErrEmptyContent    = apierrors.New(apierrors.KindValidation, apierrors.ErrCodeEmptyContent, "Comment cannot be empty")
	ErrContentTooLong  = apierrors.New(apierrors.KindValidation, apierrors.ErrCodeContentTooLong, "Comment must be at most 1000 characters")
)

// CommentService manages comments on tasks.
type CommentService struct {
	store repository.Store
	guard *Guard
}

func NewCommentService(store repository.Store, guard *Guard) *CommentService {
	return &CommentService{store: store, guard: guard}
}

// validateContent trims content and checks its length in characters.
func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > constants.MaxCommentLength {
		return "", ErrContentTooLong
	}
	return content, nil
}

// taskScope loads the task and the ownership facts of its team.
func taskScope(ctx context.Context, tx repository.Store, taskID, callerID uuid.UUID) (authz.Target, error) {
	task, err := tx.Tasks().FindByID(ctx, taskID)
	if err != nil {
		return authz.Target{}, notFound(err, ErrTaskNotFound, "task")
	}
	team, err := tx.Teams().FindByID(ctx, task.TeamID)
	if err != nil {
		return authz.Target{}, notFound(err, ErrTeamNotFound, "team")
	}
	return taskTarget(ctx, tx, team, task, callerID)
}

// AddComment posts a comment on a task as the caller.
func (s *CommentService) AddComment(ctx context.Context, callerID, taskID uuid.UUID, content string) (*models.Comment, error) {
	var (
		comment *models.Comment
		caller  authz.Caller
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		caller, err = loadCaller(ctx, tx.Users(), callerID)
		if err != nil {
			return err
		}

		target, err := taskScope(ctx, tx, taskID, caller.UserID)
		if err != nil {
			return err
		}
		if err := s.guard.Authorize(ctx, caller, authz.ActionAddComment, target); err != nil {
			return err
		}

		text, err := validateContent(content)
		if err != nil {
			return err
		}

		created := &models.Comment{
			TaskID:   taskID,
			AuthorID: &caller.UserID,
			Content:  text,
		}
		if err := tx.Comments().Create(ctx, created); err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}

		comment, err = tx.Comments().FindByID(ctx, created.ID)
		if err != nil {
			return fmt.Errorf("failed to reload comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.guard.Record(ctx, caller, authz.ActionAddComment, "comment", comment.ID)
	return comment, nil
}

// ListComments returns a task's comments, oldest first.
func (s *CommentService) ListComments(ctx context.Context, callerID, taskID uuid.UUID) ([]models.Comment, error) {
	caller, err := loadCaller(ctx, s.store.Users(), callerID)
	if err != nil {
		return nil, err
	}

	target, err := taskScope(ctx, s.store, taskID, caller.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, caller, authz.ActionViewTask, target); err != nil {
		return nil, err
	}

	comments, err := s.store.Comments().ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// EditComment replaces the content of a comment. Only its author or an Admin may do this.
func (s *CommentService) EditComment(ctx context.Context, callerID, commentID uuid.UUID, content string) (*models.Comment, error) {
	var (
		comment *models.Comment
		caller  authz.Caller
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		caller, err = loadCaller(ctx, tx.Users(), callerID)
		if err != nil {
			return err
		}

		current, err := tx.Comments().FindByIDForUpdate(ctx, commentID)
		if err != nil {
			return notFound(err, ErrCommentNotFound, "comment")
		}
		if err := s.guard.Authorize(ctx, caller, authz.ActionEditComment, authz.Target{CommentAuthorID: current.AuthorID}); err != nil {
			return err
		}

		text, err := validateContent(content)
		if err != nil {
			return err
		}
		current.Content = text
		if err := tx.Comments().Update(ctx, current); err != nil {
			return fmt.Errorf("failed to update comment: %w", err)
		}

		comment, err = tx.Comments().FindByID(ctx, current.ID)
		if err != nil {
			return fmt.Errorf("failed to reload comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.guard.Record(ctx, caller, authz.ActionEditComment, "comment", comment.ID)
	return comment, nil
}

// DeleteComment removes a comment. Only its author or an Admin may do this.
func (s *CommentService) DeleteComment(ctx context.Context, callerID, commentID uuid.UUID) error {
	var caller authz.Caller
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		caller, err = loadCaller(ctx, tx.Users(), callerID)
		if err != nil {
			return err
		}

		comment, err := tx.Comments().FindByIDForUpdate(ctx, commentID)
		if err != nil {
			return notFound(err, ErrCommentNotFound, "comment")
		}
		if err := s.guard.Authorize(ctx, caller, authz.ActionDeleteComment, authz.Target{CommentAuthorID: comment.AuthorID}); err != nil {
			return err
		}

		if err := tx.Comments().Delete(ctx, comment.ID); err != nil {
			return fmt.Errorf("failed to delete comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.guard.Record(ctx, caller, authz.ActionDeleteComment, "comment", commentID)
	return nil
}
