package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTeamRepository is a GORM implementation of TeamRepository
type GormTeamRepository struct {
	db *gorm.DB
}

// NewTeamRepository creates a new TeamRepository
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &GormTeamRepository{db: db}
}

// Create creates a new team
func (r *GormTeamRepository) Create(ctx context.Context, team *models.Team) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(team).Error
}

// FindByID finds a team by ID with optional preloading
func (r *GormTeamRepository) FindByID(ctx context.Context, id uuid.UUID, preload ...string) (*models.Team, error) {
	var team models.Team
	query := r.db.WithContext(ctx)
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.Where("id = ?", id).First(&team).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

// FindByIDForUpdate finds a team by ID and locks the row
func (r *GormTeamRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	var team models.Team
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&team).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

// FindByLeaderID finds the team led by a user
func (r *GormTeamRepository) FindByLeaderID(ctx context.Context, leaderID uuid.UUID) (*models.Team, error) {
	var team models.Team
	if err := r.db.WithContext(ctx).Where("leader_id = ?", leaderID).First(&team).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

// List retrieves all teams with their leader
func (r *GormTeamRepository) List(ctx context.Context, page, pageSize int) ([]models.Team, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Team{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var teams []models.Team
	if err := paginate(query.Order("created_at DESC"), page, pageSize).Preload("Leader").Find(&teams).Error; err != nil {
		return nil, 0, err
	}
	return teams, total, nil
}

// ListForUser lists teams a user leads or belongs to
func (r *GormTeamRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Team, error) {
	memberOf := r.db.WithContext(ctx).Model(&models.TeamMember{}).Select("team_id").Where("user_id = ?", userID)

	var teams []models.Team
	err := r.db.WithContext(ctx).
		Where("leader_id = ? OR id IN (?)", userID, memberOf).
		Order("created_at DESC").
		Preload("Leader").
		Find(&teams).Error
	if err != nil {
		return nil, err
	}
	return teams, nil
}

// Update updates a team
func (r *GormTeamRepository) Update(ctx context.Context, team *models.Team) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(team).Error
}

// Delete soft deletes a team, its tasks and their comments, and removes memberships
func (r *GormTeamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taskIDs := tx.Model(&models.Task{}).Select("id").Where("team_id = ?", id)
		if err := tx.Where("task_id IN (?)", taskIDs).Delete(&models.Comment{}).Error; err != nil {
			return err
		}

		if err := tx.Where("team_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return err
		}

		if err := tx.Where("team_id = ?", id).Delete(&models.TeamMember{}).Error; err != nil {
			return err
		}

		return tx.Where("id = ?", id).Delete(&models.Team{}).Error
	})
}

// AddMember adds a member to a team
func (r *GormTeamRepository) AddMember(ctx context.Context, member *models.TeamMember) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(member).Error
}

// RemoveMember removes a member from a team
func (r *GormTeamRepository) RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&models.TeamMember{}).Error
}

// FindMember finds a specific team member
func (r *GormTeamRepository) FindMember(ctx context.Context, teamID, userID uuid.UUID) (*models.TeamMember, error) {
	var member models.TeamMember
	if err := r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembers lists all members of a team
func (r *GormTeamRepository) ListMembers(ctx context.Context, teamID uuid.UUID) ([]models.TeamMember, error) {
	var members []models.TeamMember
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("team_id = ?", teamID).
		Order("joined_at ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}
