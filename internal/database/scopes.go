package database

import (
	"time"

	"gorm.io/gorm"

	"github.com/yukikurage/team-task-api/internal/utils"
)

// Paginate limits a query to one page
func Paginate(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(params.Offset).Limit(params.Limit)
	}
}

// DueWithin keeps tasks whose due date falls in [from, to). Nil bounds are open.
func DueWithin(from, to *time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if from != nil {
			db = db.Where("tasks.due_date >= ?", *from)
		}
		if to != nil {
			db = db.Where("tasks.due_date < ?", *to)
		}
		return db
	}
}

// DueDateOrder sorts tasks by due date with undated tasks last
func DueDateOrder(db *gorm.DB) *gorm.DB {
	return db.Order("CASE WHEN tasks.due_date IS NULL THEN 1 ELSE 0 END, tasks.due_date ASC")
}
