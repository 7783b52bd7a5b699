package services

import (
	"context"
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
)

var (
	ErrTaskNotFound           = apierrors.New(apierrors.KindNotFound, apierrors.ErrCodeTaskNotFound, "Task not found")
	ErrTitleRequired          = apierrors.New(apierrors.KindValidation, apierrors.ErrCodeInvalidInput, "Title is required")
	ErrTitleTooLong           = apierrors.New(apierrors.KindValidation, apierrors.ErrCodeInvalidInput, "Title is too long")
	ErrInvalidPriority        = apierrors.New(apierrors.KindValidation, apierrors.ErrCodeInvalidPriority, "Priority must be LOW, MEDIUM, HIGH or URGENT")
	ErrInvalidStatus          = apierrors.New(apierrors.KindValidation, apierrors.ErrCodeInvalidStatus, "Status must be TODO, IN_PROGRESS, COMPLETED or ON_HOLD")
	ErrAssigneeNotInTeam      = apierrors.New(apierrors.KindValidation, apierrors.ErrCodeAssigneeNotInTeam, "Assignee must be a member of the team")
	ErrNoTaskChanges          = apierrors.New(apierrors.KindValidation, apierrors.ErrCodeInvalidInput, "No fields to update")
	ErrDraftTextRequired      = apierrors.New(apierrors.KindValidation, apierrors.ErrCodeInvalidInput, "Text is required")
	ErrAIServiceNotConfigured = apierrors.New(apierrors.KindUnavailable, apierrors.ErrCodeServiceUnavailable, "AI service is not configured")
)

var taskDetail = []string{"Assignee", "Creator", "Comments", "Comments.Author"}

// TaskService handles task business logic
type TaskService struct {
	store   repository.Store
	guard   *Guard
	drafter TaskDrafter
}

// NewTaskService creates a new TaskService. drafter may be nil.
func NewTaskService(store repository.Store, guard *Guard, drafter TaskDrafter) *TaskService {
	return &TaskService{
		store:   store,
		guard:   guard,
		drafter: drafter,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	Priority    models.TaskPriority
	DueDate     *time.Time
	AssigneeID  *uuid.UUID
}

// UpdateTaskInput represents input for updating a task. Nil fields are unchanged.
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	Priority      *models.TaskPriority
	Status        *models.TaskStatus
	DueDate       *time.Time
	ClearDueDate  bool
	AssigneeID    *uuid.UUID
	ClearAssignee bool
}

func (in UpdateTaskInput) empty() bool {
	return in.Title == nil && in.Description == nil && in.Priority == nil && in.Status == nil &&
		in.DueDate == nil && !in.ClearDueDate && in.AssigneeID == nil && !in.ClearAssignee
}

// changesFields reports whether anything other than status differs from task.
// Fields resent with their stored value do not count.
func (in UpdateTaskInput) changesFields(task *models.Task) bool {
	switch {
	case in.Title != nil && strings.TrimSpace(*in.Title) != task.Title:
		return true
	case in.Description != nil && *in.Description != task.Description:
		return true
	case in.Priority != nil && *in.Priority != task.Priority:
		return true
	case in.ClearDueDate:
		if task.DueDate != nil {
			return true
		}
	case in.DueDate != nil && (task.DueDate == nil || !in.DueDate.Equal(*task.DueDate)):
		return true
	}
	switch {
	case in.ClearAssignee:
		return task.AssigneeID != nil
	case in.AssigneeID != nil:
		return task.AssigneeID == nil || *in.AssigneeID != *task.AssigneeID
	}
	return false
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Status        *models.TaskStatus
	Priority      *models.TaskPriority
	AssignedToMe  bool
	SortByDueDate bool
	Page          int
	PageSize      int
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > constants.MaxTaskTitleLength {
		return "", ErrTitleTooLong
	}
	return title, nil
}

// taskTarget loads the ownership facts for a task's team.
func taskTarget(ctx context.Context, tx repository.Store, team *models.Team, task *models.Task, callerID uuid.UUID) (authz.Target, error) {
	member, err := isMember(ctx, tx.Teams(), team.ID, callerID)
	if err != nil {
		return authz.Target{}, err
	}
	target := authz.Target{TeamLeaderID: team.LeaderID, CallerIsMember: member}
	if task != nil {
		target.TaskAssigneeID = task.AssigneeID
	}
	return target, nil
}

func ensureAssignable(ctx context.Context, tx repository.Store, teamID, assigneeID uuid.UUID) error {
	member, err := isMember(ctx, tx.Teams(), teamID, assigneeID)
	if err != nil {
		return err
	}
	if !member {
		return ErrAssigneeNotInTeam
	}
	return nil
}

// CreateTask creates a TODO task in the team. Only the team's leader may do this.
func (s *TaskService) CreateTask(ctx context.Context, callerID, teamID uuid.UUID, input CreateTaskInput) (*models.Task, error) {
	var (
		task   *models.Task
		caller authz.Caller
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
		target, err := taskTarget(ctx, tx, team, nil, caller.UserID)
		if err != nil {
			return err
		}
		if err := s.guard.Authorize(ctx, caller, authz.ActionCreateTask, target); err != nil {
			return err
		}

		title, err := validateTitle(input.Title)
		if err != nil {
			return err
		}
		priority := input.Priority
		if priority == "" {
			priority = models.TaskPriorityMedium
		}
		if !priority.Valid() {
			return ErrInvalidPriority
		}
		if input.AssigneeID != nil {
			if err := ensureAssignable(ctx, tx, team.ID, *input.AssigneeID); err != nil {
				return err
			}
		}

		created := &models.Task{
			TeamID:      team.ID,
			Title:       title,
			Description: input.Description,
			Priority:    priority,
			Status:      models.TaskStatusTodo,
			AssigneeID:  input.AssigneeID,
			CreatorID:   &caller.UserID,
			DueDate:     input.DueDate,
		}
		if err := tx.Tasks().Create(ctx, created); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}

		task, err = tx.Tasks().FindByID(ctx, created.ID, "Assignee", "Creator")
		if err != nil {
			return fmt.Errorf("failed to reload task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.guard.Record(ctx, caller, authz.ActionCreateTask, "task", task.ID)
	return task, nil
}

// UpdateTask applies input to a task. A status-only change is allowed to the
// assignee; changing any other field needs the team leader or an Admin.
func (s *TaskService) UpdateTask(ctx context.Context, callerID, taskID uuid.UUID, input UpdateTaskInput) (*models.Task, error) {
	if input.empty() {
		return nil, ErrNoTaskChanges
	}

	var (
		task   *models.Task
		caller authz.Caller
		action = authz.ActionUpdateTaskStatus
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		caller, err = loadCaller(ctx, tx.Users(), callerID)
		if err != nil {
			return err
		}

		// Team before task, matching the lock order of membership changes.
		unlocked, err := tx.Tasks().FindByID(ctx, taskID)
		if err != nil {
			return notFound(err, ErrTaskNotFound, "task")
		}
		team, err := tx.Teams().FindByIDForUpdate(ctx, unlocked.TeamID)
		if err != nil {
			return notFound(err, ErrTeamNotFound, "team")
		}
		current, err := tx.Tasks().FindByIDForUpdate(ctx, taskID)
		if err != nil {
			return notFound(err, ErrTaskNotFound, "task")
		}
		if input.changesFields(current) {
			action = authz.ActionUpdateTaskFields
		}

		target, err := taskTarget(ctx, tx, team, current, caller.UserID)
		if err != nil {
			return err
		}
		if err := s.guard.Authorize(ctx, caller, action, target); err != nil {
			return err
		}

		if err := applyTaskUpdate(ctx, tx, current, input); err != nil {
			return err
		}
		if err := tx.Tasks().Update(ctx, current); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}

		task, err = tx.Tasks().FindByID(ctx, current.ID, "Assignee", "Creator")
		if err != nil {
			return fmt.Errorf("failed to reload task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.guard.Record(ctx, caller, action, "task", task.ID)
	return task, nil
}

func applyTaskUpdate(ctx context.Context, tx repository.Store, task *models.Task, input UpdateTaskInput) error {
	if input.Title != nil {
		title, err := validateTitle(*input.Title)
		if err != nil {
			return err
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return ErrInvalidPriority
		}
		task.Priority = *input.Priority
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return ErrInvalidStatus
		}
		task.Status = *input.Status
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.ClearAssignee {
		task.AssigneeID = nil
	} else if input.AssigneeID != nil {
		if err := ensureAssignable(ctx, tx, task.TeamID, *input.AssigneeID); err != nil {
			return err
		}
		assignee := *input.AssigneeID
		task.AssigneeID = &assignee
	}
	return nil
}

// DeleteTask removes a task and its comments.
func (s *TaskService) DeleteTask(ctx context.Context, callerID, taskID uuid.UUID) error {
	var caller authz.Caller
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		caller, err = loadCaller(ctx, tx.Users(), callerID)
		if err != nil {
			return err
		}

		task, err := tx.Tasks().FindByIDForUpdate(ctx, taskID)
		if err != nil {
			return notFound(err, ErrTaskNotFound, "task")
		}
		team, err := tx.Teams().FindByID(ctx, task.TeamID)
		if err != nil {
			return notFound(err, ErrTeamNotFound, "team")
		}

		target, err := taskTarget(ctx, tx, team, task, caller.UserID)
		if err != nil {
			return err
		}
		if err := s.guard.Authorize(ctx, caller, authz.ActionDeleteTask, target); err != nil {
			return err
		}

		if err := tx.Tasks().Delete(ctx, task.ID); err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.guard.Record(ctx, caller, authz.ActionDeleteTask, "task", taskID)
	return nil
}

// GetTask returns a task with its comments, oldest first.
func (s *TaskService) GetTask(ctx context.Context, callerID, taskID uuid.UUID) (*models.Task, error) {
	caller, err := loadCaller(ctx, s.store.Users(), callerID)
	if err != nil {
		return nil, err
	}

	task, err := s.store.Tasks().FindByID(ctx, taskID, taskDetail...)
	if err != nil {
		return nil, notFound(err, ErrTaskNotFound, "task")
	}
	team, err := s.store.Teams().FindByID(ctx, task.TeamID)
	if err != nil {
		return nil, notFound(err, ErrTeamNotFound, "team")
	}

	target, err := taskTarget(ctx, s.store, team, task, caller.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, caller, authz.ActionViewTask, target); err != nil {
		return nil, err
	}
	return task, nil
}

// ListTeamTasks returns a page of a team's tasks, newest first unless sorted by due date.
func (s *TaskService) ListTeamTasks(ctx context.Context, callerID, teamID uuid.UUID, input ListTasksInput) ([]models.Task, int64, error) {
	caller, err := loadCaller(ctx, s.store.Users(), callerID)
	if err != nil {
		return nil, 0, err
	}

	team, err := s.store.Teams().FindByID(ctx, teamID)
	if err != nil {
		return nil, 0, notFound(err, ErrTeamNotFound, "team")
	}
	target, err := taskTarget(ctx, s.store, team, nil, caller.UserID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.guard.Authorize(ctx, caller, authz.ActionViewTeam, target); err != nil {
		return nil, 0, err
	}

	if input.Status != nil && !input.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return nil, 0, ErrInvalidPriority
	}

	filter := repository.TaskFilter{
		TeamID:        team.ID,
		Status:        input.Status,
		Priority:      input.Priority,
		SortByDueDate: input.SortByDueDate,
		Page:          input.Page,
		PageSize:      input.PageSize,
	}
	if input.AssignedToMe {
		filter.AssigneeID = &caller.UserID
	}

	tasks, total, err := s.store.Tasks().List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// DraftTasks asks the AI drafter for task suggestions. Nothing is persisted;
// the leader creates the drafts they accept.
func (s *TaskService) DraftTasks(ctx context.Context, callerID, teamID uuid.UUID, text string) ([]GeneratedTask, error) {
	caller, err := loadCaller(ctx, s.store.Users(), callerID)
	if err != nil {
		return nil, err
	}

	team, err := s.store.Teams().FindByID(ctx, teamID)
	if err != nil {
		return nil, notFound(err, ErrTeamNotFound, "team")
	}
	target, err := taskTarget(ctx, s.store, team, nil, caller.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, caller, authz.ActionDraftTasks, target); err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, ErrDraftTextRequired
	}
	if s.drafter == nil {
		return nil, ErrAIServiceNotConfigured
	}

	drafts, err := s.drafter.GenerateTasksFromText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	valid := make([]GeneratedTask, 0, len(drafts))
	for _, d := range drafts {
		if _, err := validateTitle(d.Title); err != nil {
			continue
		}
		valid = append(valid, d)
		if len(valid) == constants.MaxAIGeneratedTasks {
			break
		}
	}
	return valid, nil
}
