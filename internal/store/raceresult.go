package store

import (
	"context"
	"encoding/json"
	"fmt"

	"intelliserver/internal/f1codec"
)

// RaceResultRepository persists the final classification of a race,
// matching old/src/handlers/championships/admin.rs's race-result save path.
type RaceResultRepository struct {
	store *Store
}

// NewRaceResultRepository builds a repository backed by store.
func NewRaceResultRepository(store *Store) *RaceResultRepository {
	return &RaceResultRepository{store: store}
}

// PersistRaceResult stores fc's classification as an opaque blob scoped to
// championshipID. It implements f1service.RaceResultPersister.
func (r *RaceResultRepository) PersistRaceResult(ctx context.Context, championshipID int32, fc f1codec.FinalClassification) error {
	blob, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("store: encode classification: %w", err)
	}
	const q = `INSERT INTO race_results (championship_id, classification) VALUES (?, ?)`
	if _, err := r.store.db.ExecContext(ctx, q, championshipID, blob); err != nil {
		return fmt.Errorf("store: persist race result: %w", err)
	}
	return nil
}

// ClassificationsFor returns every persisted classification blob for a
// championship, oldest first.
func (r *RaceResultRepository) ClassificationsFor(ctx context.Context, championshipID int32) ([][]byte, error) {
	const q = `SELECT classification FROM race_results WHERE championship_id = ? ORDER BY id ASC`
	rows, err := r.store.db.QueryContext(ctx, q, championshipID)
	if err != nil {
		return nil, fmt.Errorf("store: query race results: %w", err)
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("store: scan race result: %w", err)
		}
		out = append(out, blob)
	}
	return out, rows.Err()
}
