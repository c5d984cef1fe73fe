package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/data-qa/internal/db"
	"github.com/sells-group/data-qa/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection
// for the hottest store operations.
var preparedStatements = map[string]string{
	"get_archival": `SELECT resource_id, is_broken, cache_filepath, cache_url, status, reason, updated, last_success, first_failure, failure_count FROM archivals WHERE resource_id = $1`,
	"get_qa":       `SELECT id, resource_id, openness_score, openness_score_reason, format, archival_timestamp, created, updated FROM qa WHERE resource_id = $1`,
	"save_qa":      `INSERT INTO qa (id, resource_id, openness_score, openness_score_reason, format, archival_timestamp, created, updated) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (resource_id) DO UPDATE SET openness_score = EXCLUDED.openness_score, openness_score_reason = EXCLUDED.openness_score_reason, format = EXCLUDED.format, archival_timestamp = EXCLUDED.archival_timestamp, updated = EXCLUDED.updated`,
	"get_resource": `SELECT r.id, r.dataset_id, r.url, r.format, COALESCE(d.license_open, false) FROM resources r LEFT JOIN datasets d ON d.id = r.dataset_id WHERE r.id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access (e.g., bulk catalog imports).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS datasets (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL DEFAULT '',
	license_open BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS resources (
	id         TEXT PRIMARY KEY,
	dataset_id TEXT NOT NULL REFERENCES datasets(id),
	url        TEXT NOT NULL,
	format     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS archivals (
	resource_id    TEXT PRIMARY KEY REFERENCES resources(id),
	is_broken      BOOLEAN,
	cache_filepath TEXT NOT NULL DEFAULT '',
	cache_url      TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT '',
	reason         TEXT NOT NULL DEFAULT '',
	updated        TIMESTAMPTZ,
	last_success   TIMESTAMPTZ,
	first_failure  TIMESTAMPTZ,
	failure_count  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS qa (
	id                    TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	resource_id           TEXT NOT NULL UNIQUE REFERENCES resources(id),
	openness_score        INTEGER NOT NULL,
	openness_score_reason TEXT NOT NULL DEFAULT '',
	format                TEXT NOT NULL DEFAULT '',
	archival_timestamp    TIMESTAMPTZ,
	created               TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated               TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_resources_dataset_id ON resources(dataset_id);
CREATE INDEX IF NOT EXISTS idx_qa_openness_score ON qa(openness_score);
CREATE INDEX IF NOT EXISTS idx_qa_format ON qa(format);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertDataset(ctx context.Context, ds *model.Dataset) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO datasets (id, name, license_open) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, license_open = EXCLUDED.license_open`,
		ds.ID, ds.Name, ds.LicenseOpen,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert dataset %s", ds.ID)
	}
	for i := range ds.Resources {
		res := ds.Resources[i]
		if res.DatasetID == "" {
			res.DatasetID = ds.ID
		}
		if err := s.UpsertResource(ctx, &res); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) GetDataset(ctx context.Context, id string) (*model.Dataset, error) {
	var ds model.Dataset
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, license_open FROM datasets WHERE id = $1`, id).
		Scan(&ds.ID, &ds.Name, &ds.LicenseOpen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get dataset %s", id)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, dataset_id, url, format FROM resources WHERE dataset_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list resources for dataset %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		var res model.Resource
		if err := rows.Scan(&res.ID, &res.DatasetID, &res.URL, &res.Format); err != nil {
			return nil, eris.Wrap(err, "postgres: scan resource")
		}
		res.LicenseOpen = ds.LicenseOpen
		ds.Resources = append(ds.Resources, res)
	}
	return &ds, eris.Wrap(rows.Err(), "postgres: iterate resources")
}

func (s *PostgresStore) UpsertResource(ctx context.Context, res *model.Resource) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO resources (id, dataset_id, url, format) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET dataset_id = EXCLUDED.dataset_id,
		   url = EXCLUDED.url, format = EXCLUDED.format`,
		res.ID, res.DatasetID, res.URL, res.Format,
	)
	return eris.Wrapf(err, "postgres: upsert resource %s", res.ID)
}

func (s *PostgresStore) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	var res model.Resource
	err := s.pool.QueryRow(ctx,
		`SELECT r.id, r.dataset_id, r.url, r.format, COALESCE(d.license_open, false)
		 FROM resources r LEFT JOIN datasets d ON d.id = r.dataset_id
		 WHERE r.id = $1`, id).
		Scan(&res.ID, &res.DatasetID, &res.URL, &res.Format, &res.LicenseOpen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get resource %s", id)
	}
	return &res, nil
}

func (s *PostgresStore) UpsertArchival(ctx context.Context, a *model.Archival) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO archivals (resource_id, is_broken, cache_filepath, cache_url, status,
		   reason, updated, last_success, first_failure, failure_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (resource_id) DO UPDATE SET is_broken = EXCLUDED.is_broken,
		   cache_filepath = EXCLUDED.cache_filepath, cache_url = EXCLUDED.cache_url,
		   status = EXCLUDED.status, reason = EXCLUDED.reason, updated = EXCLUDED.updated,
		   last_success = EXCLUDED.last_success, first_failure = EXCLUDED.first_failure,
		   failure_count = EXCLUDED.failure_count`,
		a.ResourceID, a.IsBroken, a.CacheFilepath, a.CacheURL, string(a.Status),
		a.Reason, a.Updated, a.LastSuccess, a.FirstFailure, a.FailureCount,
	)
	return eris.Wrapf(err, "postgres: upsert archival %s", a.ResourceID)
}

func (s *PostgresStore) GetArchival(ctx context.Context, resourceID string) (*model.Archival, error) {
	var (
		a      model.Archival
		status string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT resource_id, is_broken, cache_filepath, cache_url, status, reason,
		   updated, last_success, first_failure, failure_count
		 FROM archivals WHERE resource_id = $1`, resourceID).
		Scan(&a.ResourceID, &a.IsBroken, &a.CacheFilepath, &a.CacheURL, &status,
			&a.Reason, &a.Updated, &a.LastSuccess, &a.FirstFailure, &a.FailureCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get archival %s", resourceID)
	}
	a.Status = model.ArchivalStatus(status)
	return &a, nil
}

func (s *PostgresStore) SaveQA(ctx context.Context, resourceID string, result *model.ScoreResult) (*model.QARecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO qa (id, resource_id, openness_score, openness_score_reason, format,
		   archival_timestamp, created, updated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (resource_id) DO UPDATE SET openness_score = EXCLUDED.openness_score,
		   openness_score_reason = EXCLUDED.openness_score_reason, format = EXCLUDED.format,
		   archival_timestamp = EXCLUDED.archival_timestamp, updated = EXCLUDED.updated`,
		id, resourceID, result.OpennessScore, result.OpennessScoreReason, result.Format,
		result.ArchivalTimestamp, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: save qa for resource %s", resourceID)
	}
	return s.GetQA(ctx, resourceID)
}

func (s *PostgresStore) GetQA(ctx context.Context, resourceID string) (*model.QARecord, error) {
	var record model.QARecord
	err := s.pool.QueryRow(ctx,
		`SELECT id, resource_id, openness_score, openness_score_reason, format,
		   archival_timestamp, created, updated
		 FROM qa WHERE resource_id = $1`, resourceID).
		Scan(&record.ID, &record.ResourceID, &record.OpennessScore,
			&record.OpennessScoreReason, &record.Format, &record.ArchivalTimestamp,
			&record.Created, &record.Updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get qa for resource %s", resourceID)
	}
	return &record, nil
}

func (s *PostgresStore) ListQA(ctx context.Context, filter QAFilter) ([]model.QARecord, error) {
	query := `SELECT id, resource_id, openness_score, openness_score_reason, format,
	   archival_timestamp, created, updated FROM qa WHERE 1=1`
	var args []any

	if filter.Score != nil {
		args = append(args, *filter.Score)
		query += fmt.Sprintf(` AND openness_score = $%d`, len(args))
	}
	if filter.Format != "" {
		args = append(args, filter.Format)
		query += fmt.Sprintf(` AND format = $%d`, len(args))
	}
	query += ` ORDER BY updated DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list qa")
	}
	defer rows.Close()

	var records []model.QARecord
	for rows.Next() {
		var record model.QARecord
		if err := rows.Scan(&record.ID, &record.ResourceID, &record.OpennessScore,
			&record.OpennessScoreReason, &record.Format, &record.ArchivalTimestamp,
			&record.Created, &record.Updated); err != nil {
			return nil, eris.Wrap(err, "postgres: scan qa")
		}
		records = append(records, record)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list qa iterate")
}
