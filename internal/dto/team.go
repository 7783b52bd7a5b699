package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/models"
	"github.com/yukikurage/team-task-api/internal/utils"
)

// TeamDTO represents a team in list responses
type TeamDTO struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	LeaderID    *uuid.UUID `json:"leader_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TeamMemberDTO represents a member in a team
type TeamMemberDTO struct {
	User     UserSummaryDTO `json:"user"`
	JoinedAt time.Time      `json:"joined_at"`
}

// TeamDetailDTO represents a team with its leader and members
type TeamDetailDTO struct {
	TeamDTO
	Leader  *UserSummaryDTO `json:"leader"`
	Members []TeamMemberDTO `json:"members"`
}

// TeamListResponse represents a paginated list of teams
type TeamListResponse struct {
	Teams      []TeamDTO                `json:"teams"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

func ToTeamDTO(team models.Team) TeamDTO {
	return TeamDTO{
		ID:          team.ID,
		Name:        team.Name,
		Description: team.Description,
		LeaderID:    team.LeaderID,
		CreatedAt:   team.CreatedAt,
		UpdatedAt:   team.UpdatedAt,
	}
}

func ToTeamDTOs(teams []models.Team) []TeamDTO {
	items := make([]TeamDTO, len(teams))
	for i, team := range teams {
		items[i] = ToTeamDTO(team)
	}
	return items
}

// ToTeamMemberDTOs converts membership rows with preloaded users
func ToTeamMemberDTOs(members []models.TeamMember) []TeamMemberDTO {
	items := make([]TeamMemberDTO, 0, len(members))
	for _, m := range members {
		user := UserSummaryDTO{ID: m.UserID}
		if summary := ToUserSummaryDTO(&m.User); summary != nil {
			user = *summary
		}
		items = append(items, TeamMemberDTO{User: user, JoinedAt: m.JoinedAt})
	}
	return items
}

// ToTeamDetailDTO converts a team with Leader and Members.User preloaded
func ToTeamDetailDTO(team models.Team) TeamDetailDTO {
	return TeamDetailDTO{
		TeamDTO: ToTeamDTO(team),
		Leader:  ToUserSummaryDTO(team.Leader),
		Members: ToTeamMemberDTOs(team.Members),
	}
}

func ToTeamListResponse(teams []models.Team, params utils.PaginationParams, total int64) TeamListResponse {
	return TeamListResponse{
		Teams:      ToTeamDTOs(teams),
		Pagination: utils.NewPaginationResponse(params, total),
	}
}
