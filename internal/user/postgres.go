package user

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// PostgresRepository implements Repository backed by PostgreSQL.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{db: db, logger: logger}
}

// FindOrCreate returns the user for the provider profile, creating it on
// first login. The upsert's DO NOTHING keeps an existing user's stored
// fields untouched; the follow-up select covers the conflict path.
func (r *PostgresRepository) FindOrCreate(ctx context.Context, profile Profile) (*User, error) {
	if profile.ProviderID == "" {
		return nil, fmt.Errorf("provider ID is required")
	}

	insert := `
		INSERT INTO users (id, provider_id, name, email, avatar_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, insert,
		uuid.New().String(), profile.ProviderID, profile.Name, profile.Email, profile.AvatarURL, time.Now())
	if err != nil {
		r.logger.Error("failed to upsert user", "error", err, "provider_id", profile.ProviderID)
		return nil, fmt.Errorf("find or create user: %w", err)
	}

	query := `
		SELECT id, provider_id, name, email, avatar_url, created_at
		FROM users
		WHERE provider_id = $1
	`
	var u User
	err = r.db.QueryRowContext(ctx, query, profile.ProviderID).
		Scan(&u.ID, &u.ProviderID, &u.Name, &u.Email, &u.AvatarURL, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("find or create user: %w", err)
	}
	return &u, nil
}

// GetByID retrieves a user by its ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT id, provider_id, name, email, avatar_url, created_at
		FROM users
		WHERE id = $1
	`
	var u User
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&u.ID, &u.ProviderID, &u.Name, &u.Email, &u.AvatarURL, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}
