// Package domain defines the core types and interfaces for Sentinel.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
type Repository interface {
	// Activity record operations. Records are append-only; the pipeline
	// reads them windowed by UTC day bounds.
	SaveActivity(ctx context.Context, rec *ActivityRecord) error
	ListActivityByWindow(ctx context.Context, from, to time.Time) ([]*ActivityRecord, error)

	// Baseline operations. SaveBaseline upserts keyed by (district, date)
	// with full-document replace semantics.
	SaveBaseline(ctx context.Context, b *DistrictBaseline) error
	GetBaseline(ctx context.Context, district, date string) (*DistrictBaseline, error)
	ListBaselinesByDate(ctx context.Context, date string) ([]*DistrictBaseline, error)

	// Profile operations. UpsertProfile is keyed by operator ID and
	// replaces score/level/flags/metrics/lastUpdated as one atomic write.
	UpsertProfile(ctx context.Context, p *RiskProfile) error
	GetProfile(ctx context.Context, operatorID string) (*RiskProfile, error)
	ListProfiles(ctx context.Context, q ProfileQuery) (*ProfilePage, error)
	SummarizeProfiles(ctx context.Context, district string) (*RiskSummary, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
