package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/dto"
	"github.com/yukikurage/team-task-api/internal/services"
	"github.com/yukikurage/team-task-api/internal/utils"
)

type TeamHandler struct {
	teams *services.TeamService
}

func NewTeamHandler(teams *services.TeamService) *TeamHandler {
	return &TeamHandler{teams: teams}
}

// ListTeams returns every team (Admin only)
func (h *TeamHandler) ListTeams(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	teams, total, err := h.teams.ListTeams(c.Request.Context(), userID, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTeamListResponse(teams, params, total))
}

// MyTeams returns the teams the caller leads or belongs to
func (h *TeamHandler) MyTeams(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	teams, err := h.teams.MyTeams(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"teams": dto.ToTeamDTOs(teams)})
}

// AvailableMembers lists users eligible to join a team
func (h *TeamHandler) AvailableMembers(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	users, err := h.teams.AvailableMembers(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": dto.ToUserDTOs(users)})
}

func (h *TeamHandler) CreateTeam(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	type CreateTeamRequest struct {
		Name        string    `json:"name" binding:"required"`
		Description string    `json:"description"`
		LeaderID    uuid.UUID `json:"leader_id" binding:"required"`
	}

	var req CreateTeamRequest
	if !bindJSON(c, &req) {
		return
	}

	team, err := h.teams.CreateTeam(c.Request.Context(), userID, services.CreateTeamInput{
		Name:        req.Name,
		Description: req.Description,
		LeaderID:    req.LeaderID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTeamDetailDTO(*team))
}

// GetTeam returns a team with its leader and members
func (h *TeamHandler) GetTeam(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	team, err := h.teams.GetTeam(c.Request.Context(), userID, teamID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTeamDetailDTO(*team))
}

func (h *TeamHandler) UpdateTeam(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	type UpdateTeamRequest struct {
		Name        *string    `json:"name"`
		Description *string    `json:"description"`
		LeaderID    *uuid.UUID `json:"leader_id"`
	}

	var req UpdateTeamRequest
	if !bindJSON(c, &req) {
		return
	}

	team, err := h.teams.UpdateTeam(c.Request.Context(), userID, teamID, services.UpdateTeamInput{
		Name:        req.Name,
		Description: req.Description,
		LeaderID:    req.LeaderID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTeamDetailDTO(*team))
}

func (h *TeamHandler) DeleteTeam(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.teams.DeleteTeam(c.Request.Context(), userID, teamID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AddMember adds a MEMBER-role user and returns the updated member list
func (h *TeamHandler) AddMember(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	type AddMemberRequest struct {
		UserID uuid.UUID `json:"user_id" binding:"required"`
	}

	var req AddMemberRequest
	if !bindJSON(c, &req) {
		return
	}

	members, err := h.teams.AddMember(c.Request.Context(), userID, teamID, req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": dto.ToTeamMemberDTOs(members)})
}

func (h *TeamHandler) RemoveMember(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}
	memberID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	if err := h.teams.RemoveMember(c.Request.Context(), userID, teamID, memberID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
