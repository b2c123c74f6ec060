package store

import (
	"context"
	"fmt"
)

// Driver is a driver known to the system by its steam_name, mirroring
// original_source/crates/entities/src/driver.rs.
type Driver struct {
	ID          int64
	SteamName   string
	Nationality uint8
}

// DriverRepository upserts drivers discovered via Participants packets. It
// implements f1service.DriverUpserter.
type DriverRepository struct {
	store *Store
}

// NewDriverRepository builds a repository backed by store.
func NewDriverRepository(store *Store) *DriverRepository {
	return &DriverRepository{store: store}
}

// Upsert inserts a new driver row for steamName, or updates its nationality
// and updated_at if the driver is already known.
func (r *DriverRepository) Upsert(ctx context.Context, steamName string, nationality uint8) error {
	const q = `
INSERT INTO drivers (steam_name, nationality, updated_at)
VALUES (?, ?, unixepoch())
ON CONFLICT(steam_name) DO UPDATE SET nationality = excluded.nationality, updated_at = excluded.updated_at
`
	if _, err := r.store.db.ExecContext(ctx, q, steamName, nationality); err != nil {
		return fmt.Errorf("store: upsert driver: %w", err)
	}
	return nil
}

// Find returns the driver known by steamName, or an error wrapping
// sql.ErrNoRows if no such driver exists.
func (r *DriverRepository) Find(ctx context.Context, steamName string) (Driver, error) {
	const q = `SELECT id, steam_name, nationality FROM drivers WHERE steam_name = ?`
	var d Driver
	err := r.store.db.QueryRowContext(ctx, q, steamName).Scan(&d.ID, &d.SteamName, &d.Nationality)
	if err != nil {
		return Driver{}, fmt.Errorf("store: find driver: %w", err)
	}
	return d, nil
}
