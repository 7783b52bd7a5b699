package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/dto"
	apierrors "github.com/yukikurage/team-task-api/internal/errors"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/services"
	"github.com/yukikurage/team-task-api/internal/utils"
)

type UserHandler struct {
	identity *services.IdentityService
}

func NewUserHandler(identity *services.IdentityService) *UserHandler {
	return &UserHandler{identity: identity}
}

// ListUsers returns a page of users, optionally filtered by role and is_active
func (h *UserHandler) ListUsers(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	input := services.ListUsersInput{Page: params.Page, PageSize: params.Limit}

	if v := c.Query("role"); v != "" {
		role := models.Role(v)
		if !role.Valid() {
			respondError(c, services.ErrInvalidRole)
			return
		}
		input.Role = &role
	}
	if v := c.Query("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			apierrors.BadRequest(c, "Invalid is_active")
			return
		}
		input.IsActive = &active
	}

	users, total, err := h.identity.ListUsers(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserListResponse(users, params, total))
}

func (h *UserHandler) GetUser(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	targetID, ok := pathID(c, "id")
	if !ok {
		return
	}

	user, err := h.identity.GetUser(c.Request.Context(), userID, targetID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

func (h *UserHandler) ActivateUser(c *gin.Context) {
	h.toggle(c, h.identity.Activate)
}

func (h *UserHandler) DeactivateUser(c *gin.Context) {
	h.toggle(c, h.identity.Deactivate)
}

func (h *UserHandler) toggle(c *gin.Context, op func(ctx context.Context, callerID, userID uuid.UUID) (*models.User, error)) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	targetID, ok := pathID(c, "id")
	if !ok {
		return
	}

	user, err := op(c.Request.Context(), userID, targetID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// SetRole changes a user's role
func (h *UserHandler) SetRole(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	targetID, ok := pathID(c, "id")
	if !ok {
		return
	}

	type SetRoleRequest struct {
		Role models.Role `json:"role" binding:"required"`
	}

	var req SetRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.identity.SetRole(c.Request.Context(), userID, targetID, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	targetID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.identity.DeleteUser(c.Request.Context(), userID, targetID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
