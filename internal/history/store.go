// Package history records every accepted signal immutably with its exact
// parameter fingerprint so historical signals can be replayed and compared
// across parameter sweeps.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/derivscope/derivscope/internal/domain"
)

// ErrStoreUnavailable wraps store connectivity failures so the CLI can map
// them to its dedicated exit code.
var ErrStoreUnavailable = errors.New("history store unavailable")

// Record is one persisted signal row. Snapshot and Extras are opaque JSON
// blobs; everything else is scalar and queryable.
type Record struct {
	ID                  int64           `json:"id" db:"id"`
	Asset               string          `json:"asset" db:"asset"`
	Direction           string          `json:"direction" db:"direction"`
	Confidence          float64         `json:"confidence" db:"confidence"`
	Strength            string          `json:"strength" db:"strength"`
	ConfigHash          string          `json:"config_hash" db:"config_hash"`
	QualityStatus       string          `json:"quality_status" db:"quality_status"`
	QualityCompleteness float64         `json:"quality_completeness" db:"quality_completeness"`
	SpotPrice           *float64        `json:"spot_price,omitempty" db:"spot_price"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	Signal              json.RawMessage `json:"signal" db:"signal"`
	Snapshot            json.RawMessage `json:"snapshot" db:"snapshot"`
	Extras              json.RawMessage `json:"extras,omitempty" db:"extras"`
}

// ConfigStats is the aggregate over all records sharing one parameter
// fingerprint; the primitive for parameter-sweep evaluation.
type ConfigStats struct {
	ConfigHash    string  `json:"config_hash" db:"config_hash"`
	Count         int64   `json:"count" db:"count"`
	AvgConfidence float64 `json:"avg_confidence" db:"avg_confidence"`
	StrongCount   int64   `json:"strong_count" db:"strong_count"`
	BullishCount  int64   `json:"bullish_count" db:"bullish_count"`
	BearishCount  int64   `json:"bearish_count" db:"bearish_count"`
}

// Store is the append-only history port. No update, no delete.
type Store interface {
	// Record persists the signal with its full snapshot and the opaque
	// downstream extras, returning the new record id. A write failure fails
	// the caller's tick.
	Record(ctx context.Context, sig *domain.Signal, snap *domain.Snapshot, extras any) (int64, error)

	// ByConfig returns the newest-first records for one parameter fingerprint.
	ByConfig(ctx context.Context, configHash string, limit int) ([]Record, error)

	// Stats aggregates the records for one parameter fingerprint.
	Stats(ctx context.Context, configHash string) (*ConfigStats, error)

	// Count returns the total number of records.
	Count(ctx context.Context) (int64, error)

	Close() error
}

// buildRecord serializes the signal triple into a Record (without an id).
func buildRecord(sig *domain.Signal, snap *domain.Snapshot, extras any) (*Record, error) {
	sigJSON, err := json.Marshal(sig)
	if err != nil {
		return nil, fmt.Errorf("marshaling signal: %w", err)
	}
	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshaling snapshot: %w", err)
	}
	var extrasJSON json.RawMessage
	if extras != nil {
		extrasJSON, err = json.Marshal(extras)
		if err != nil {
			return nil, fmt.Errorf("marshaling extras: %w", err)
		}
	}

	return &Record{
		Asset:               string(sig.Asset),
		Direction:           string(sig.Direction),
		Confidence:          sig.Confidence,
		Strength:            string(sig.Strength),
		ConfigHash:          sig.ConfigHash,
		QualityStatus:       string(sig.Quality.Status),
		QualityCompleteness: sig.Quality.Completeness(),
		SpotPrice:           sig.SpotPrice,
		CreatedAt:           sig.CreatedAt.UTC(),
		Signal:              sigJSON,
		Snapshot:            snapJSON,
		Extras:              extrasJSON,
	}, nil
}

// writeMirror writes the identical record content as a JSON file under a
// dated directory, the layout the offline ML jobs consume:
// <dir>/YYYYMMDD/<asset>_signal_<unix>.json
func writeMirror(dir string, rec *Record) error {
	day := rec.CreatedAt.UTC().Format("20060102")
	subdir := filepath.Join(dir, day)
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		return fmt.Errorf("creating mirror dir: %w", err)
	}

	name := fmt.Sprintf("%s_signal_%d.json", rec.Asset, rec.CreatedAt.UTC().Unix())
	path := filepath.Join(subdir, name)

	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding mirror record: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("writing mirror record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing mirror record: %w", err)
	}
	return nil
}
