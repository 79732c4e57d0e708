// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fieldsight/sentinel/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveActivity stores one activity record.
func (r *SQLRepository) SaveActivity(ctx context.Context, rec *domain.ActivityRecord) error {
	if rec.OperatorID == "" || rec.District == "" {
		return fmt.Errorf("%w: operatorID and district are required", ErrInvalidInput)
	}

	biometric := 0
	if rec.BiometricException {
		biometric = 1
	}

	query := `
		INSERT INTO activity_records (
			id, operator_id, station_id, district, enrolment_type,
			duration_sec, biometric_exception, error_code, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rec.ID, rec.OperatorID, rec.StationID, rec.District, rec.EnrolmentType,
		rec.DurationSec, biometric, rec.ErrorCode, rec.Timestamp,
	)
	return err
}

// ListActivityByWindow retrieves activity records within [from, to].
func (r *SQLRepository) ListActivityByWindow(ctx context.Context, from, to time.Time) ([]*domain.ActivityRecord, error) {
	query := `
		SELECT id, operator_id, station_id, district, enrolment_type,
		       duration_sec, biometric_exception, error_code, timestamp
		FROM activity_records
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.ActivityRecord
	for rows.Next() {
		var rec domain.ActivityRecord
		var biometric int
		var errorCode sql.NullString

		if err := rows.Scan(
			&rec.ID, &rec.OperatorID, &rec.StationID, &rec.District, &rec.EnrolmentType,
			&rec.DurationSec, &biometric, &errorCode, &rec.Timestamp,
		); err != nil {
			return nil, err
		}

		rec.BiometricException = biometric == 1
		rec.ErrorCode = errorCode.String
		rec.Timestamp = rec.Timestamp.UTC()
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// SaveBaseline upserts one baseline row keyed by (district, date),
// replacing every metric column.
func (r *SQLRepository) SaveBaseline(ctx context.Context, b *domain.DistrictBaseline) error {
	if b.District == "" || b.Date == "" {
		return fmt.Errorf("%w: district and date are required", ErrInvalidInput)
	}

	query := `
		INSERT INTO district_baselines (
			district, date, mean_duration_sec, stddev_duration_sec,
			biometric_exception_rate, duplicate_error_rate, activity_hour_stddev, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(district, date) DO UPDATE SET
			mean_duration_sec = excluded.mean_duration_sec,
			stddev_duration_sec = excluded.stddev_duration_sec,
			biometric_exception_rate = excluded.biometric_exception_rate,
			duplicate_error_rate = excluded.duplicate_error_rate,
			activity_hour_stddev = excluded.activity_hour_stddev,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		b.District, b.Date,
		b.Metrics.MeanDurationSec, b.Metrics.StdDevDurationSec,
		b.Metrics.BiometricExceptionRate, b.Metrics.DuplicateErrorRate,
		b.Metrics.ActivityHourStdDev,
		time.Now().UTC(),
	)
	return err
}

// GetBaseline retrieves the baseline for a district on a date.
func (r *SQLRepository) GetBaseline(ctx context.Context, district, date string) (*domain.DistrictBaseline, error) {
	query := `
		SELECT district, date, mean_duration_sec, stddev_duration_sec,
		       biometric_exception_rate, duplicate_error_rate, activity_hour_stddev
		FROM district_baselines
		WHERE district = ? AND date = ?
	`

	var b domain.DistrictBaseline
	err := r.db.QueryRowContext(ctx, r.rebind(query), district, date).Scan(
		&b.District, &b.Date,
		&b.Metrics.MeanDurationSec, &b.Metrics.StdDevDurationSec,
		&b.Metrics.BiometricExceptionRate, &b.Metrics.DuplicateErrorRate,
		&b.Metrics.ActivityHourStdDev,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &b, nil
}

// ListBaselinesByDate retrieves every district baseline for a date.
func (r *SQLRepository) ListBaselinesByDate(ctx context.Context, date string) ([]*domain.DistrictBaseline, error) {
	query := `
		SELECT district, date, mean_duration_sec, stddev_duration_sec,
		       biometric_exception_rate, duplicate_error_rate, activity_hour_stddev
		FROM district_baselines
		WHERE date = ?
		ORDER BY district
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var baselines []*domain.DistrictBaseline
	for rows.Next() {
		var b domain.DistrictBaseline
		if err := rows.Scan(
			&b.District, &b.Date,
			&b.Metrics.MeanDurationSec, &b.Metrics.StdDevDurationSec,
			&b.Metrics.BiometricExceptionRate, &b.Metrics.DuplicateErrorRate,
			&b.Metrics.ActivityHourStdDev,
		); err != nil {
			return nil, err
		}
		baselines = append(baselines, &b)
	}

	return baselines, rows.Err()
}

// UpsertProfile writes a risk profile keyed by operator ID. The write
// replaces score, level, flags, metrics snapshot and lastUpdated in one
// statement so readers never see a partial profile.
func (r *SQLRepository) UpsertProfile(ctx context.Context, p *domain.RiskProfile) error {
	if p.OperatorID == "" {
		return fmt.Errorf("%w: operatorID is required", ErrInvalidInput)
	}

	flags, _ := json.Marshal(p.Flags)
	metrics, _ := json.Marshal(p.Metrics)

	query := `
		INSERT INTO risk_profiles (
			operator_id, district, risk_score, risk_level, flags, metrics, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(operator_id) DO UPDATE SET
			district = excluded.district,
			risk_score = excluded.risk_score,
			risk_level = excluded.risk_level,
			flags = excluded.flags,
			metrics = excluded.metrics,
			last_updated = excluded.last_updated
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		p.OperatorID, p.District, p.RiskScore, string(p.RiskLevel),
		string(flags), string(metrics), p.LastUpdated,
	)
	return err
}

// GetProfile retrieves a risk profile by operator ID.
func (r *SQLRepository) GetProfile(ctx context.Context, operatorID string) (*domain.RiskProfile, error) {
	if operatorID == "" {
		return nil, fmt.Errorf("%w: operatorID is required", ErrInvalidInput)
	}

	query := `
		SELECT operator_id, district, risk_score, risk_level, flags, metrics, last_updated
		FROM risk_profiles
		WHERE operator_id = ?
	`

	p, err := r.scanProfile(r.db.QueryRowContext(ctx, r.rebind(query), operatorID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// profileSortColumns whitelists sortable fields for ListProfiles.
// riskLevel sorts by severity order, not alphabetically.
var profileSortColumns = map[string]string{
	"riskScore":   "risk_score",
	"riskLevel":   "CASE risk_level WHEN 'CRITICAL' THEN 3 WHEN 'MEDIUM' THEN 2 ELSE 1 END",
	"district":    "district",
	"operatorId":  "operator_id",
	"lastUpdated": "last_updated",
}

// ListProfiles retrieves a filtered, sorted page of risk profiles.
func (r *SQLRepository) ListProfiles(ctx context.Context, q domain.ProfileQuery) (*domain.ProfilePage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = 10
	}

	var conds []string
	var args []any

	if q.RiskLevel != "" {
		conds = append(conds, "risk_level = ?")
		args = append(args, string(q.RiskLevel))
	}
	if q.District != "" {
		conds = append(conds, "LOWER(district) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.District)+"%")
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM risk_profiles" + where
	if err := r.db.QueryRowContext(ctx, r.rebind(countQuery), args...).Scan(&total); err != nil {
		return nil, err
	}

	sortCol, ok := profileSortColumns[q.SortBy]
	if !ok {
		sortCol = "risk_score"
	}
	order := "ASC"
	if q.SortDesc {
		order = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT operator_id, district, risk_score, risk_level, flags, metrics, last_updated
		FROM risk_profiles%s
		ORDER BY %s %s, operator_id ASC
		LIMIT ? OFFSET ?
	`, where, sortCol, order)

	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*domain.RiskProfile
	for rows.Next() {
		p, err := r.scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	totalPages := (total + limit - 1) / limit
	return &domain.ProfilePage{
		Profiles:   profiles,
		TotalCount: total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// SummarizeProfiles counts profiles per risk level, optionally filtered by
// district substring.
func (r *SQLRepository) SummarizeProfiles(ctx context.Context, district string) (*domain.RiskSummary, error) {
	query := "SELECT risk_level, COUNT(*) FROM risk_profiles"
	var args []any
	if district != "" {
		query += " WHERE LOWER(district) LIKE ?"
		args = append(args, "%"+strings.ToLower(district)+"%")
	}
	query += " GROUP BY risk_level"

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summary domain.RiskSummary
	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, err
		}
		switch domain.RiskLevel(level) {
		case domain.RiskLow:
			summary.Low = count
		case domain.RiskMedium:
			summary.Medium = count
		case domain.RiskCritical:
			summary.Critical = count
		}
	}

	return &summary, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLRepository) scanProfile(row rowScanner) (*domain.RiskProfile, error) {
	var p domain.RiskProfile
	var level, flags, metrics string

	if err := row.Scan(
		&p.OperatorID, &p.District, &p.RiskScore, &level,
		&flags, &metrics, &p.LastUpdated,
	); err != nil {
		return nil, err
	}

	p.RiskLevel = domain.RiskLevel(level)
	p.LastUpdated = p.LastUpdated.UTC()
	if err := json.Unmarshal([]byte(flags), &p.Flags); err != nil {
		return nil, fmt.Errorf("failed to parse profile flags: %w", err)
	}
	if err := json.Unmarshal([]byte(metrics), &p.Metrics); err != nil {
		return nil, fmt.Errorf("failed to parse profile metrics: %w", err)
	}

	return &p, nil
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
