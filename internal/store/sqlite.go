package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/data-qa/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS datasets (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL DEFAULT '',
	license_open INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS resources (
	id         TEXT PRIMARY KEY,
	dataset_id TEXT NOT NULL REFERENCES datasets(id),
	url        TEXT NOT NULL,
	format     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS archivals (
	resource_id    TEXT PRIMARY KEY REFERENCES resources(id),
	is_broken      INTEGER,
	cache_filepath TEXT NOT NULL DEFAULT '',
	cache_url      TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT '',
	reason         TEXT NOT NULL DEFAULT '',
	updated        DATETIME,
	last_success   DATETIME,
	first_failure  DATETIME,
	failure_count  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS qa (
	id                    TEXT PRIMARY KEY,
	resource_id           TEXT NOT NULL UNIQUE REFERENCES resources(id),
	openness_score        INTEGER NOT NULL,
	openness_score_reason TEXT NOT NULL DEFAULT '',
	format                TEXT NOT NULL DEFAULT '',
	archival_timestamp    DATETIME,
	created               DATETIME NOT NULL DEFAULT (datetime('now')),
	updated               DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_resources_dataset_id ON resources(dataset_id);
CREATE INDEX IF NOT EXISTS idx_qa_openness_score ON qa(openness_score);
CREATE INDEX IF NOT EXISTS idx_qa_format ON qa(format);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertDataset(ctx context.Context, ds *model.Dataset) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO datasets (id, name, license_open) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, license_open = excluded.license_open`,
		ds.ID, ds.Name, ds.LicenseOpen,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert dataset %s", ds.ID)
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

func (s *SQLiteStore) GetDataset(ctx context.Context, id string) (*model.Dataset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, license_open FROM datasets WHERE id = ?`, id)

	var ds model.Dataset
	err := row.Scan(&ds.ID, &ds.Name, &ds.LicenseOpen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get dataset %s", id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, dataset_id, url, format FROM resources WHERE dataset_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list resources for dataset %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		var res model.Resource
		if err := rows.Scan(&res.ID, &res.DatasetID, &res.URL, &res.Format); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan resource")
		}
		res.LicenseOpen = ds.LicenseOpen
		ds.Resources = append(ds.Resources, res)
	}
	return &ds, eris.Wrap(rows.Err(), "sqlite: iterate resources")
}

func (s *SQLiteStore) UpsertResource(ctx context.Context, res *model.Resource) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO resources (id, dataset_id, url, format) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET dataset_id = excluded.dataset_id,
		   url = excluded.url, format = excluded.format`,
		res.ID, res.DatasetID, res.URL, res.Format,
	)
	return eris.Wrapf(err, "sqlite: upsert resource %s", res.ID)
}

func (s *SQLiteStore) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT r.id, r.dataset_id, r.url, r.format, COALESCE(d.license_open, 0)
		 FROM resources r LEFT JOIN datasets d ON d.id = r.dataset_id
		 WHERE r.id = ?`, id)

	var res model.Resource
	err := row.Scan(&res.ID, &res.DatasetID, &res.URL, &res.Format, &res.LicenseOpen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get resource %s", id)
	}
	return &res, nil
}

func (s *SQLiteStore) UpsertArchival(ctx context.Context, a *model.Archival) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO archivals (resource_id, is_broken, cache_filepath, cache_url, status,
		   reason, updated, last_success, first_failure, failure_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(resource_id) DO UPDATE SET is_broken = excluded.is_broken,
		   cache_filepath = excluded.cache_filepath, cache_url = excluded.cache_url,
		   status = excluded.status, reason = excluded.reason, updated = excluded.updated,
		   last_success = excluded.last_success, first_failure = excluded.first_failure,
		   failure_count = excluded.failure_count`,
		a.ResourceID, nullBool(a.IsBroken), a.CacheFilepath, a.CacheURL, string(a.Status),
		a.Reason, nullTime(a.Updated), nullTime(a.LastSuccess), nullTime(a.FirstFailure),
		a.FailureCount,
	)
	return eris.Wrapf(err, "sqlite: upsert archival %s", a.ResourceID)
}

func (s *SQLiteStore) GetArchival(ctx context.Context, resourceID string) (*model.Archival, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT resource_id, is_broken, cache_filepath, cache_url, status, reason,
		   updated, last_success, first_failure, failure_count
		 FROM archivals WHERE resource_id = ?`, resourceID)

	var (
		a        model.Archival
		isBroken sql.NullBool
		status   string
		updated, lastSuccess, firstFailure sql.NullTime
	)
	err := row.Scan(&a.ResourceID, &isBroken, &a.CacheFilepath, &a.CacheURL, &status,
		&a.Reason, &updated, &lastSuccess, &firstFailure, &a.FailureCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get archival %s", resourceID)
	}
	a.Status = model.ArchivalStatus(status)
	if isBroken.Valid {
		a.IsBroken = &isBroken.Bool
	}
	a.Updated = timePtr(updated)
	a.LastSuccess = timePtr(lastSuccess)
	a.FirstFailure = timePtr(firstFailure)
	return &a, nil
}

func (s *SQLiteStore) SaveQA(ctx context.Context, resourceID string, result *model.ScoreResult) (*model.QARecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO qa (id, resource_id, openness_score, openness_score_reason, format,
		   archival_timestamp, created, updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(resource_id) DO UPDATE SET openness_score = excluded.openness_score,
		   openness_score_reason = excluded.openness_score_reason, format = excluded.format,
		   archival_timestamp = excluded.archival_timestamp, updated = excluded.updated`,
		id, resourceID, result.OpennessScore, result.OpennessScoreReason, result.Format,
		nullTime(result.ArchivalTimestamp), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: save qa for resource %s", resourceID)
	}
	return s.GetQA(ctx, resourceID)
}

func (s *SQLiteStore) GetQA(ctx context.Context, resourceID string) (*model.QARecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, resource_id, openness_score, openness_score_reason, format,
		   archival_timestamp, created, updated
		 FROM qa WHERE resource_id = ?`, resourceID)

	record, err := scanQA(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get qa for resource %s", resourceID)
	}
	return record, nil
}

func (s *SQLiteStore) ListQA(ctx context.Context, filter QAFilter) ([]model.QARecord, error) {
	query := `SELECT id, resource_id, openness_score, openness_score_reason, format,
	   archival_timestamp, created, updated FROM qa WHERE 1=1`
	var args []any

	if filter.Score != nil {
		query += ` AND openness_score = ?`
		args = append(args, *filter.Score)
	}
	if filter.Format != "" {
		query += ` AND format = ?`
		args = append(args, filter.Format)
	}
	query += ` ORDER BY updated DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list qa")
	}
	defer rows.Close()

	var records []model.QARecord
	for rows.Next() {
		record, err := scanQA(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan qa")
		}
		records = append(records, *record)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list qa iterate")
}

// helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQA(row rowScanner) (*model.QARecord, error) {
	var (
		record            model.QARecord
		archivalTimestamp sql.NullTime
	)
	err := row.Scan(&record.ID, &record.ResourceID, &record.OpennessScore,
		&record.OpennessScoreReason, &record.Format, &archivalTimestamp,
		&record.Created, &record.Updated)
	if err != nil {
		return nil, err
	}
	record.ArchivalTimestamp = timePtr(archivalTimestamp)
	return &record, nil
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	u := t.Time.UTC()
	return &u
}
