package database

import (
	"fmt"
	"log/slog"

	"github.com/yukikurage/team-task-api/internal/models"
	"gorm.io/gorm"
)

type index struct {
	model   interface{}
	table   string
	name    string
	columns string
}

// indexes are the query-path indexes not declared on the models.
var indexes = []index{
	// Task listing filters and sorts
	{&models.Task{}, "tasks", "idx_tasks_team_status", "team_id, status"},
	{&models.Task{}, "tasks", "idx_tasks_due_date", "due_date"},
	{&models.Task{}, "tasks", "idx_tasks_created_at", "created_at"},

	// Membership lookups by user
	{&models.TeamMember{}, "team_members", "idx_team_members_user_id", "user_id"},

	// Comment timelines
	{&models.Comment{}, "comments", "idx_comments_task_created", "task_id, created_at"},
}

// AddIndexes adds performance-critical indexes to the database
func AddIndexes(db *gorm.DB) error {
	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.model, idx.name) {
			slog.Debug("index already exists, skipping", slog.String("index", idx.name))
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		slog.Info("created index", slog.String("index", idx.name), slog.String("table", idx.table))
	}

	return nil
}
