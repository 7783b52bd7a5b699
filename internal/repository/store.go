package repository

import (
	"context"

	"github.com/yukikurage/team-task-api/internal/database"
	"github.com/yukikurage/team-task-api/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is a GORM implementation of Store
type GormStore struct {
	db *gorm.DB
}

// NewStore creates a new Store
func NewStore(db *gorm.DB) Store {
	return &GormStore{db: db}
}

func (s *GormStore) Users() UserRepository       { return NewUserRepository(s.db) }
func (s *GormStore) Teams() TeamRepository       { return NewTeamRepository(s.db) }
func (s *GormStore) Tasks() TaskRepository       { return NewTaskRepository(s.db) }
func (s *GormStore) Comments() CommentRepository { return NewCommentRepository(s.db) }

// Transaction runs fn inside a database transaction
func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// forUpdate locks selected rows until the surrounding transaction ends.
// Dialects without row locks (sqlite) drop the clause.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func paginate(db *gorm.DB, page, pageSize int) *gorm.DB {
	if page > 0 && pageSize > 0 {
		return db.Scopes(database.Paginate(utils.NewPaginationParams(page, pageSize)))
	}
	return db
}
