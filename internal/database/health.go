package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthChecker reports whether the database answers within a timeout.
type HealthChecker struct {
	pinger  Pinger
	timeout time.Duration
}

func NewHealthChecker(pinger Pinger, timeout time.Duration) *HealthChecker {
	return &HealthChecker{pinger: pinger, timeout: timeout}
}

// NewHealthCheckerFromGorm builds a HealthChecker over db's connection pool.
func NewHealthCheckerFromGorm(db *gorm.DB, timeout time.Duration) (*HealthChecker, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	return NewHealthChecker(sqlDB, timeout), nil
}

func (h *HealthChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	if err := h.pinger.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

var _ Pinger = (*sql.DB)(nil)
