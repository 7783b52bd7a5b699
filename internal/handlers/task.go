package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/dto"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/services"
	"github.com/yukikurage/team-task-api/internal/utils"
)

type TaskHandler struct {
	tasks *services.TaskService
}

func NewTaskHandler(tasks *services.TaskService) *TaskHandler {
	return &TaskHandler{
		tasks: tasks,
	}
}

// ListTeamTasks returns a team's tasks.
// Filters: status, priority, assigned_to_me; sort=due_date orders by deadline.
func (h *TaskHandler) ListTeamTasks(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	input := services.ListTasksInput{
		SortByDueDate: c.Query("sort") == "due_date",
		Page:          params.Page,
		PageSize:      params.Limit,
	}
	if v := c.Query("status"); v != "" {
		status := models.TaskStatus(v)
		input.Status = &status
	}
	if v := c.Query("priority"); v != "" {
		priority := models.TaskPriority(v)
		input.Priority = &priority
	}
	if v := c.Query("assigned_to_me"); v != "" {
		mine, err := strconv.ParseBool(v)
		if err != nil {
			apierrors.BadRequest(c, "Invalid assigned_to_me")
			return
		}
		input.AssignedToMe = mine
	}

	tasks, total, err := h.tasks.ListTeamTasks(c.Request.Context(), userID, teamID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params, total))
}

// CreateTask creates a new task in the team
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	type CreateTaskRequest struct {
		Title       string              `json:"title" binding:"required"`
		Description string              `json:"description"`
		Priority    models.TaskPriority `json:"priority"`
		DueDate     *time.Time          `json:"due_date"`
		AssigneeID  *uuid.UUID          `json:"assignee_id"`
	}

	var req CreateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.tasks.CreateTask(c.Request.Context(), userID, teamID, services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// DraftTasks returns AI-generated task suggestions from free text.
// Nothing is saved; the leader creates the drafts they keep.
func (h *TaskHandler) DraftTasks(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	type DraftTasksRequest struct {
		Text string `json:"text" binding:"required"`
	}

	var req DraftTasksRequest
	if !bindJSON(c, &req) {
		return
	}

	drafts, err := h.tasks.DraftTasks(c.Request.Context(), userID, teamID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": dto.ToDraftTaskDTOs(drafts),
		"count": len(drafts),
	})
}

// GetTask returns a task with its comments
func (h *TaskHandler) GetTask(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(c.Request.Context(), userID, taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDetailDTO(*task))
}

// UpdateTask updates an existing task. Assignees may only send status.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	type UpdateTaskRequest struct {
		Title         *string              `json:"title"`
		Description   *string              `json:"description"`
		Priority      *models.TaskPriority `json:"priority"`
		Status        *models.TaskStatus   `json:"status"`
		DueDate       *time.Time           `json:"due_date"`
		ClearDueDate  bool                 `json:"clear_due_date"`
		AssigneeID    *uuid.UUID           `json:"assignee_id"`
		ClearAssignee bool                 `json:"clear_assignee"`
	}

	var req UpdateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.tasks.UpdateTask(c.Request.Context(), userID, taskID, services.UpdateTaskInput{
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		Status:        req.Status,
		DueDate:       req.DueDate,
		ClearDueDate:  req.ClearDueDate,
		AssigneeID:    req.AssigneeID,
		ClearAssignee: req.ClearAssignee,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask deletes a task and its comments
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.tasks.DeleteTask(c.Request.Context(), userID, taskID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
