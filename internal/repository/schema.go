package repository

// Schema definitions for the Sentinel database.
// Compatible with both SQLite and PostgreSQL.

const schemaActivityRecords = `
CREATE TABLE IF NOT EXISTS activity_records (
    id TEXT PRIMARY KEY,
    operator_id TEXT NOT NULL,
    station_id TEXT NOT NULL,
    district TEXT NOT NULL,
    enrolment_type TEXT NOT NULL,
    duration_sec REAL NOT NULL,
    biometric_exception INTEGER NOT NULL DEFAULT 0,
    error_code TEXT,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activity_operator ON activity_records(operator_id);
CREATE INDEX IF NOT EXISTS idx_activity_district ON activity_records(district);
CREATE INDEX IF NOT EXISTS idx_activity_timestamp ON activity_records(timestamp);
`

// schemaDistrictBaselines holds one row per (district, date). The upsert in
// SaveBaseline replaces the whole row, so re-running a date fully
// overwrites the prior baseline.
const schemaDistrictBaselines = `
CREATE TABLE IF NOT EXISTS district_baselines (
    district TEXT NOT NULL,
    date TEXT NOT NULL,
    mean_duration_sec REAL NOT NULL,
    stddev_duration_sec REAL NOT NULL,
    biometric_exception_rate REAL NOT NULL,
    duplicate_error_rate REAL NOT NULL,
    activity_hour_stddev REAL NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (district, date)
);

CREATE INDEX IF NOT EXISTS idx_baselines_date ON district_baselines(date);
`

const schemaRiskProfiles = `
CREATE TABLE IF NOT EXISTS risk_profiles (
    operator_id TEXT PRIMARY KEY,
    district TEXT NOT NULL,
    risk_score INTEGER NOT NULL DEFAULT 0,
    risk_level TEXT NOT NULL DEFAULT 'LOW',
    flags TEXT NOT NULL DEFAULT '[]',
    metrics TEXT NOT NULL DEFAULT '{}',
    last_updated TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_profiles_district ON risk_profiles(district);
CREATE INDEX IF NOT EXISTS idx_profiles_level ON risk_profiles(risk_level);
CREATE INDEX IF NOT EXISTS idx_profiles_score ON risk_profiles(risk_score);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaActivityRecords,
		schemaDistrictBaselines,
		schemaRiskProfiles,
	}
}
