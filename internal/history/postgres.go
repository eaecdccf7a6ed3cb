package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/derivscope/derivscope/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS signal_history (
	id                   BIGSERIAL PRIMARY KEY,
	asset                TEXT NOT NULL,
	direction            TEXT NOT NULL,
	confidence           DOUBLE PRECISION NOT NULL,
	strength             TEXT NOT NULL,
	config_hash          TEXT NOT NULL,
	quality_status       TEXT NOT NULL,
	quality_completeness DOUBLE PRECISION NOT NULL,
	spot_price           DOUBLE PRECISION,
	created_at           TIMESTAMPTZ NOT NULL,
	signal               JSONB NOT NULL,
	snapshot             JSONB NOT NULL,
	extras               JSONB
);
CREATE INDEX IF NOT EXISTS idx_signal_history_created_at ON signal_history (created_at);
CREATE INDEX IF NOT EXISTS idx_signal_history_asset ON signal_history (asset);
CREATE INDEX IF NOT EXISTS idx_signal_history_config_hash ON signal_history (config_hash);
`

// PostgresStore persists records to the signal_history table and mirrors
// each one as a JSON file for offline processing. The two writes happen row
// first, mirror second; a reader of the mirror tree only ever sees records
// that exist in the table.
type PostgresStore struct {
	db      *sqlx.DB
	jsonDir string
	timeout time.Duration
}

// Open connects to Postgres, ensures the schema, and returns the store.
func Open(dsn, jsonDir string, timeout time.Duration) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ensuring schema: %v", ErrStoreUnavailable, err)
	}
	return NewPostgresStore(db, jsonDir, timeout), nil
}

// NewPostgresStore wraps an existing connection; tests inject a mock here.
func NewPostgresStore(db *sqlx.DB, jsonDir string, timeout time.Duration) *PostgresStore {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PostgresStore{db: db, jsonDir: jsonDir, timeout: timeout}
}

// Record inserts the row and writes the JSON mirror.
func (s *PostgresStore) Record(ctx context.Context, sig *domain.Signal, snap *domain.Snapshot, extras any) (int64, error) {
	rec, err := buildRecord(sig, snap, extras)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	const q = `
		INSERT INTO signal_history
		(asset, direction, confidence, strength, config_hash, quality_status,
		 quality_completeness, spot_price, created_at, signal, snapshot, extras)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	var extrasArg any
	if rec.Extras != nil {
		extrasArg = []byte(rec.Extras)
	}
	err = s.db.QueryRowxContext(ctx, q,
		rec.Asset, rec.Direction, rec.Confidence, rec.Strength, rec.ConfigHash,
		rec.QualityStatus, rec.QualityCompleteness, rec.SpotPrice, rec.CreatedAt,
		[]byte(rec.Signal), []byte(rec.Snapshot), extrasArg).
		Scan(&rec.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: inserting signal record: %v", ErrStoreUnavailable, err)
	}

	if s.jsonDir != "" {
		if err := writeMirror(s.jsonDir, rec); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	return rec.ID, nil
}

// ByConfig returns the newest-first records for one parameter fingerprint.
func (s *PostgresStore) ByConfig(ctx context.Context, configHash string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	const q = `
		SELECT id, asset, direction, confidence, strength, config_hash,
		       quality_status, quality_completeness, spot_price, created_at,
		       signal, snapshot, extras
		FROM signal_history
		WHERE config_hash = $1
		ORDER BY created_at DESC
		LIMIT $2`

	var recs []Record
	if err := s.db.SelectContext(ctx, &recs, q, configHash, limit); err != nil {
		return nil, fmt.Errorf("%w: querying by config: %v", ErrStoreUnavailable, err)
	}
	return recs, nil
}

// Stats aggregates the records for one parameter fingerprint.
func (s *PostgresStore) Stats(ctx context.Context, configHash string) (*ConfigStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	const q = `
		SELECT COUNT(*) AS count,
		       COALESCE(AVG(confidence), 0) AS avg_confidence,
		       COUNT(*) FILTER (WHERE strength = 'STRONG') AS strong_count,
		       COUNT(*) FILTER (WHERE direction = 'BULLISH') AS bullish_count,
		       COUNT(*) FILTER (WHERE direction = 'BEARISH') AS bearish_count
		FROM signal_history
		WHERE config_hash = $1`

	stats := &ConfigStats{ConfigHash: configHash}
	err := s.db.QueryRowxContext(ctx, q, configHash).Scan(
		&stats.Count, &stats.AvgConfidence, &stats.StrongCount,
		&stats.BullishCount, &stats.BearishCount)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("%w: querying config stats: %v", ErrStoreUnavailable, err)
	}
	return stats, nil
}

// Count returns the total number of records.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM signal_history`); err != nil {
		return 0, fmt.Errorf("%w: counting records: %v", ErrStoreUnavailable, err)
	}
	return n, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
