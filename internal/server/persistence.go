package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// IdentityStore is what the orchestrator needs from the identity layer: a
// stable (id, name) record per participant.
type IdentityStore interface {
	GetOrCreate(ctx context.Context, name string) (Identity, error)
	Get(ctx context.Context, id string) (Identity, error)
	Count(ctx context.Context) (int, error)
}

// UserStore keeps identity records in Postgres. Identities are the only
// thing persisted; game state lives and dies with the process.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// GetOrCreate returns the identity for a display name, inserting it on first
// sight. Names are unique; a returning player gets their original ID back.
func (us *UserStore) GetOrCreate(ctx context.Context, name string) (Identity, error) {
	query := `
		INSERT INTO users (id, name)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name
	`

	var identity Identity
	err := us.db.QueryRowContext(ctx, query, uuid.New().String(), name).
		Scan(&identity.ID, &identity.Name)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to get or create user %q: %w", name, err)
	}

	return identity, nil
}

// Get looks an identity up by ID.
func (us *UserStore) Get(ctx context.Context, id string) (Identity, error) {
	query := `SELECT id, name FROM users WHERE id = $1`

	var identity Identity
	err := us.db.QueryRowContext(ctx, query, id).Scan(&identity.ID, &identity.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return Identity{}, errors.New("USER_NOT_FOUND: Unknown player")
	}
	if err != nil {
		return Identity{}, fmt.Errorf("failed to load user %s: %w", id, err)
	}

	return identity, nil
}

// Count reports the number of known identities. Surfaced by /health.
func (us *UserStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := us.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
