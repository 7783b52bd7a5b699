package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/team-task-api/internal/models"
)

// Store groups the repositories and runs units of work atomically.
type Store interface {
	Users() UserRepository
	Teams() TeamRepository
	Tasks() TaskRepository
	Comments() CommentRepository

	// Transaction runs fn with a Store bound to a single database transaction.
	// fn must only use the Store it is given. Returning an error rolls back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// FindByIDForUpdate finds a user by ID and locks the row for the rest of the transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// List retrieves users with filtering and pagination
	List(ctx context.Context, filter UserFilter) ([]models.User, int64, error)

	// Update saves all fields of a user
	Update(ctx context.Context, user *models.User) error

	// Delete removes a user and clears every reference to it
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserFilter holds filtering options for listing users
type UserFilter struct {
	Role     *models.Role
	IsActive *bool
	Page     int
	PageSize int
}

// TeamRepository defines the interface for team data access
type TeamRepository interface {
	// Create creates a new team
	Create(ctx context.Context, team *models.Team) error

	// FindByID finds a team by ID with optional preloading
	FindByID(ctx context.Context, id uuid.UUID, preload ...string) (*models.Team, error)

	// FindByIDForUpdate finds a team by ID and locks the row
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Team, error)

	// FindByLeaderID finds the team led by a user
	FindByLeaderID(ctx context.Context, leaderID uuid.UUID) (*models.Team, error)

	// List retrieves all teams with pagination
	List(ctx context.Context, page, pageSize int) ([]models.Team, int64, error)

	// ListForUser lists teams a user leads or belongs to
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Team, error)

	// Update updates a team
	Update(ctx context.Context, team *models.Team) error

	// Delete deletes a team together with its tasks, their comments and its memberships
	Delete(ctx context.Context, id uuid.UUID) error

	// AddMember adds a member to a team
	AddMember(ctx context.Context, member *models.TeamMember) error

	// RemoveMember removes a member from a team
	RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error

	// FindMember finds a specific team member
	FindMember(ctx context.Context, teamID, userID uuid.UUID) (*models.TeamMember, error)

	// ListMembers lists all members of a team
	ListMembers(ctx context.Context, teamID uuid.UUID) ([]models.TeamMember, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(ctx context.Context, id uuid.UUID, preload ...string) (*models.Task, error)

	// FindByIDForUpdate finds a task by ID and locks the row
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Update updates a task
	Update(ctx context.Context, task *models.Task) error

	// Delete soft deletes a task and its comments
	Delete(ctx context.Context, id uuid.UUID) error

	// UnassignMember clears the assignee of every task in a team assigned to userID
	UnassignMember(ctx context.Context, teamID, userID uuid.UUID) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	TeamID        uuid.UUID
	Status        *models.TaskStatus
	Priority      *models.TaskPriority
	AssigneeID    *uuid.UUID
	DueDateFrom   *time.Time
	DueDateTo     *time.Time
	SortByDueDate bool
	Page          int
	PageSize      int
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	// Create creates a new comment
	Create(ctx context.Context, comment *models.Comment) error

	// FindByID finds a comment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*models.Comment, error)

	// FindByIDForUpdate finds a comment by ID and locks the row
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Comment, error)

	// ListByTask lists comments of a task, oldest first
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]models.Comment, error)

	// Update updates a comment
	Update(ctx context.Context, comment *models.Comment) error

	// Delete soft deletes a comment
	Delete(ctx context.Context, id uuid.UUID) error
}
