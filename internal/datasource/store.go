package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stockaggr/internal/database"
	apperrors "stockaggr/internal/errors"
)

// SourceConfig is one persisted data source configuration row.
type SourceConfig struct {
	Name             string    `json:"source_name"`
	Enabled          bool      `json:"enabled"`
	Priority         int       `json:"priority"`
	FailureThreshold int       `json:"failure_threshold"`
	CooldownSeconds  int       `json:"cooldown_seconds"`
	Credential       string    `json:"-"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Cooldown returns the cooldown as a duration
func (c *SourceConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// Store persists source configuration rows. The manager only reads;
// writes happen through the admin API, which forces a refresh after
// committing.
type Store interface {
	List(ctx context.Context) ([]SourceConfig, error)
	Get(ctx context.Context, name string) (*SourceConfig, error)
	Upsert(ctx context.Context, cfg *SourceConfig) error
	UpdatePriorities(ctx context.Context, priorities map[string]int) error
}

// PostgresStore implements Store on the shared connection pool.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a postgres-backed configuration store
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// List returns all source configuration rows
func (s *PostgresStore) List(ctx context.Context) ([]SourceConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_name, enabled, priority, failure_threshold, cooldown_seconds, credential, updated_at
		FROM data_source_configs
		ORDER BY priority, source_name`)
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrCodeDBQuery, "failed to list source configs")
	}
	defer rows.Close()

	var configs []SourceConfig
	for rows.Next() {
		var cfg SourceConfig
		var credential sql.NullString
		if err := rows.Scan(&cfg.Name, &cfg.Enabled, &cfg.Priority, &cfg.FailureThreshold,
			&cfg.CooldownSeconds, &credential, &cfg.UpdatedAt); err != nil {
			return nil, apperrors.WrapError(err, apperrors.ErrCodeDBQuery, "failed to scan source config")
		}
		cfg.Credential = credential.String
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrCodeDBQuery, "failed to iterate source configs")
	}
	return configs, nil
}

// Get returns one source configuration row
func (s *PostgresStore) Get(ctx context.Context, name string) (*SourceConfig, error) {
	var cfg SourceConfig
	var credential sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT source_name, enabled, priority, failure_threshold, cooldown_seconds, credential, updated_at
		FROM data_source_configs
		WHERE source_name = $1`, name).
		Scan(&cfg.Name, &cfg.Enabled, &cfg.Priority, &cfg.FailureThreshold,
			&cfg.CooldownSeconds, &credential, &cfg.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewAppError(apperrors.ErrCodeSourceNotFound,
			fmt.Sprintf("source not found: %s", name), nil)
	}
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrCodeDBQuery, "failed to get source config")
	}
	cfg.Credential = credential.String
	return &cfg, nil
}

// Upsert inserts or updates one source configuration row
func (s *PostgresStore) Upsert(ctx context.Context, cfg *SourceConfig) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO data_source_configs
			(source_name, enabled, priority, failure_threshold, cooldown_seconds, credential, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (source_name) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			priority = EXCLUDED.priority,
			failure_threshold = EXCLUDED.failure_threshold,
			cooldown_seconds = EXCLUDED.cooldown_seconds,
			credential = EXCLUDED.credential,
			updated_at = NOW()`,
		cfg.Name, cfg.Enabled, cfg.Priority, cfg.FailureThreshold, cfg.CooldownSeconds, cfg.Credential)
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeDBQuery, "failed to upsert source config")
	}
	return nil
}

// UpdatePriorities updates priorities for multiple sources in one transaction
func (s *PostgresStore) UpdatePriorities(ctx context.Context, priorities map[string]int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeDBQuery, "failed to begin transaction")
	}
	defer tx.Rollback()

	for name, priority := range priorities {
		res, err := tx.ExecContext(ctx, `
			UPDATE data_source_configs SET priority = $1, updated_at = NOW()
			WHERE source_name = $2`, priority, name)
		if err != nil {
			return apperrors.WrapError(err, apperrors.ErrCodeDBQuery, "failed to update priority")
		}
		affected, err := res.RowsAffected()
		if err == nil && affected == 0 {
			return apperrors.NewAppError(apperrors.ErrCodeSourceNotFound,
				fmt.Sprintf("source not found: %s", name), nil)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeDBQuery, "failed to commit priorities")
	}
	return nil
}

// DefaultSourceConfigs returns the conventional seed rows used when the
// store is empty on first start. Tushare ships disabled-by-credential:
// the row exists so operators only need to fill in the token.
func DefaultSourceConfigs() []SourceConfig {
	return []SourceConfig{
		{Name: SourceEastmoney, Enabled: true, Priority: 0, FailureThreshold: 3, CooldownSeconds: 300},
		{Name: SourceSina, Enabled: true, Priority: 1, FailureThreshold: 3, CooldownSeconds: 300},
		{Name: SourceTencent, Enabled: true, Priority: 2, FailureThreshold: 3, CooldownSeconds: 300},
		{Name: SourceTushare, Enabled: true, Priority: 3, FailureThreshold: 3, CooldownSeconds: 600},
	}
}
