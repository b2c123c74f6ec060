package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrChampionshipNotFound is returned by ChampionshipRepository.Find when no
// row matches the requested id.
var ErrChampionshipNotFound = errors.New("store: championship not found")

// Championship is a logical grouping of races belonging to a set of users,
// identified by an id in [700_000_000, 799_999_999] per spec.md §10.
type Championship struct {
	ID       int32
	Name     string
	Category string
}

// ChampionshipRepository is the relational boundary the control API uses to
// turn a bare championship_id path parameter into 404 ChampionshipNotFound
// before ever touching the port pool or championship manager.
type ChampionshipRepository struct {
	store *Store
}

// NewChampionshipRepository builds a repository backed by store.
func NewChampionshipRepository(store *Store) *ChampionshipRepository {
	return &ChampionshipRepository{store: store}
}

// Find looks up a championship by id, returning ErrChampionshipNotFound if
// none exists.
func (r *ChampionshipRepository) Find(ctx context.Context, id int32) (Championship, error) {
	const q = `SELECT id, name, category FROM championships WHERE id = ?`
	var c Championship
	err := r.store.db.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.Name, &c.Category)
	if errors.Is(err, sql.ErrNoRows) {
		return Championship{}, ErrChampionshipNotFound
	}
	if err != nil {
		return Championship{}, fmt.Errorf("store: find championship: %w", err)
	}
	return c, nil
}

// Create inserts a new championship row, used by tests and the synthetic
// load generator to seed a championship before starting its F1 Service.
func (r *ChampionshipRepository) Create(ctx context.Context, id int32, name, category string) error {
	const q = `INSERT INTO championships (id, name, category) VALUES (?, ?, ?)`
	_, err := r.store.db.ExecContext(ctx, q, id, name, category)
	if err != nil {
		return fmt.Errorf("store: create championship: %w", err)
	}
	return nil
}
