package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/services"
	"github.com/yukikurage/team-task-api/internal/utils"
)

// CommentDTO represents a comment in API responses
type CommentDTO struct {
	ID        uuid.UUID       `json:"id"`
	TaskID    uuid.UUID       `json:"task_id"`
	AuthorID  *uuid.UUID      `json:"author_id"`
	Author    *UserSummaryDTO `json:"author,omitempty"`
	Content   string          `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          uuid.UUID           `json:"id"`
	TeamID      uuid.UUID           `json:"team_id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    models.TaskPriority `json:"priority"`
	Status      models.TaskStatus   `json:"status"`
	DueDate     *time.Time          `json:"due_date"`
	AssigneeID  *uuid.UUID          `json:"assignee_id"`
	CreatorID   *uuid.UUID          `json:"creator_id"`
	Assignee    *UserSummaryDTO     `json:"assignee,omitempty"`
	Creator     *UserSummaryDTO     `json:"creator,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// TaskDetailDTO is a task with its comments, oldest first
type TaskDetailDTO struct {
	TaskDTO
	Comments []CommentDTO `json:"comments"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO                `json:"tasks"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// DraftTaskDTO is an AI suggestion the leader may turn into a task
type DraftTaskDTO struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"due_date"`
}

// Conversion functions

func ToCommentDTO(comment models.Comment) CommentDTO {
	return CommentDTO{
		ID:        comment.ID,
		TaskID:    comment.TaskID,
		AuthorID:  comment.AuthorID,
		Author:    ToUserSummaryDTO(comment.Author),
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
	}
}

func ToCommentDTOs(comments []models.Comment) []CommentDTO {
	items := make([]CommentDTO, len(comments))
	for i, comment := range comments {
		items[i] = ToCommentDTO(comment)
	}
	return items
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	return TaskDTO{
		ID:          task.ID,
		TeamID:      task.TeamID,
		Title:       task.Title,
		Description: task.Description,
		Priority:    task.Priority,
		Status:      task.Status,
		DueDate:     task.DueDate,
		AssigneeID:  task.AssigneeID,
		CreatorID:   task.CreatorID,
		Assignee:    ToUserSummaryDTO(task.Assignee),
		Creator:     ToUserSummaryDTO(task.Creator),
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

// ToTaskDetailDTO converts a task with preloaded comments
func ToTaskDetailDTO(task models.Task) TaskDetailDTO {
	return TaskDetailDTO{
		TaskDTO:  ToTaskDTO(task),
		Comments: ToCommentDTOs(task.Comments),
	}
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, params utils.PaginationParams, total int64) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}
	return TaskListResponse{
		Tasks:      items,
		Pagination: utils.NewPaginationResponse(params, total),
	}
}

func ToDraftTaskDTOs(drafts []services.GeneratedTask) []DraftTaskDTO {
	items := make([]DraftTaskDTO, len(drafts))
	for i, d := range drafts {
		items[i] = DraftTaskDTO{
			Title:       d.Title,
			Description: d.Description,
			Priority:    d.Priority,
			DueDate:     d.DueDate,
		}
	}
	return items
}
