// Package testutil provides in-memory database fixtures for tests.
package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/team-task-api/internal/database"
	"github.com/yukikurage/team-task-api/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Password is the plaintext password of every fixture user.
const Password = "password123"

var passwordHash string

// NewDB opens a migrated in-memory sqlite database that is closed with the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts an active user with the given role.
func CreateUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()

	if passwordHash == "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
		require.NoError(t, err)
		passwordHash = string(hash)
	}

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTeam inserts a team led by leader with leader and members as members.
func CreateTeam(t *testing.T, db *gorm.DB, name string, leader *models.User, members ...*models.User) *models.Team {
	t.Helper()

	team := &models.Team{Name: name, Description: name + " team"}
	if leader != nil {
		team.LeaderID = &leader.ID
		members = append([]*models.User{leader}, members...)
	}
	require.NoError(t, db.Omit("Leader", "Members").Create(team).Error)

	for _, m := range members {
		require.NoError(t, db.Omit("User").Create(&models.TeamMember{
			TeamID:   team.ID,
			UserID:   m.ID,
			JoinedAt: time.Now(),
		}).Error)
	}
	return team
}

// CreateTask inserts a TODO task in team, optionally assigned.
func CreateTask(t *testing.T, db *gorm.DB, team *models.Team, title string, creator, assignee *models.User) *models.Task {
	t.Helper()

	task := &models.Task{
		TeamID:   team.ID,
		Title:    title,
		Priority: models.TaskPriorityMedium,
		Status:   models.TaskStatusTodo,
	}
	if creator != nil {
		task.CreatorID = &creator.ID
	}
	if assignee != nil {
		task.AssigneeID = &assignee.ID
	}
	require.NoError(t, db.Omit("Assignee", "Creator", "Comments").Create(task).Error)
	return task
}

// CreateComment inserts a comment on task by author.
func CreateComment(t *testing.T, db *gorm.DB, task *models.Task, author *models.User, content string) *models.Comment {
	t.Helper()

	comment := &models.Comment{TaskID: task.ID, Content: content}
	if author != nil {
		comment.AuthorID = &author.ID
	}
	require.NoError(t, db.Omit("Author").Create(comment).Error)
	return comment
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// IDPtr returns a pointer to a copy of id.
func IDPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
