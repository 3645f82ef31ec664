package tour

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// PostgresTourRepository implements TourRepository backed by PostgreSQL.
// Steps are stored as a JSONB document per tour; each API call is a
// single-document operation, so no multi-statement transactions are needed
// apart from the atomic view-count increment.
type PostgresTourRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresTourRepository creates a new PostgresTourRepository.
func NewPostgresTourRepository(db *sql.DB, logger *slog.Logger) *PostgresTourRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTourRepository{db: db, logger: logger}
}

const tourColumns = `id, title, description, creator_id, steps, visibility, share_token, thumbnail, view_count, created_at, updated_at`

// scanTour scans one tour row, decoding the steps JSONB column.
func scanTour(row interface{ Scan(...any) error }) (*Tour, error) {
	var t Tour
	var stepsJSON []byte
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.CreatorID, &stepsJSON,
		&t.Visibility, &t.ShareToken, &t.Thumbnail, &t.ViewCount, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(stepsJSON) > 0 {
		if err := json.Unmarshal(stepsJSON, &t.Steps); err != nil {
			return nil, fmt.Errorf("decode steps: %w", err)
		}
	}
	if t.Steps == nil {
		t.Steps = []Step{}
	}
	return &t, nil
}

// ListByOwner returns the owner's tours, newest first.
func (r *PostgresTourRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Tour, error) {
	query := `
		SELECT ` + tourColumns + `
		FROM tours
		WHERE creator_id = $1
		ORDER BY created_at DESC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}
	defer rows.Close()

	var out []*Tour
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tour: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tours: %w", err)
	}
	return out, nil
}

// GetByIDForOwner retrieves a tour by (id, ownerID).
func (r *PostgresTourRepository) GetByIDForOwner(ctx context.Context, id, ownerID string) (*Tour, error) {
	query := `
		SELECT ` + tourColumns + `
		FROM tours
		WHERE id = $1 AND creator_id = $2
	`
	t, err := scanTour(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err == sql.ErrNoRows {
		return nil, ErrTourNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tour: %w", err)
	}
	return t, nil
}

// GetByShareToken retrieves a public tour by share token. The view count
// increment and the read happen in one statement, so two sequential share
// views increment by exactly one each with no lost updates.
func (r *PostgresTourRepository) GetByShareToken(ctx context.Context, token string) (*Tour, error) {
	query := `
		UPDATE tours
		SET view_count = view_count + 1
		WHERE share_token = $1 AND visibility = 'public'
		RETURNING ` + tourColumns + `
	`
	t, err := scanTour(r.db.QueryRowContext(ctx, query, token))
	if err == sql.ErrNoRows {
		return nil, ErrTourNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shared tour: %w", err)
	}
	return t, nil
}

// Create persists a new tour for the owner.
func (r *PostgresTourRepository) Create(ctx context.Context, ownerID string, draft Draft) (*Tour, error) {
	steps := NormalizeSteps(draft.Steps)
	stepsJSON, err := json.Marshal(steps)
	if err != nil {
		return nil, fmt.Errorf("encode steps: %w", err)
	}

	visibility := draft.Visibility
	if visibility == "" {
		visibility = VisibilityPrivate
	}

	now := time.Now()
	query := `
		INSERT INTO tours (id, title, description, creator_id, steps, visibility, share_token, thumbnail, view_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $9)
		RETURNING ` + tourColumns + `
	`
	t, err := scanTour(r.db.QueryRowContext(ctx, query,
		uuid.New().String(), draft.Title, draft.Description, ownerID,
		stepsJSON, string(visibility), NewShareToken(), draft.Thumbnail, now))
	if err != nil {
		r.logger.Error("failed to insert tour", "error", err, "owner_id", ownerID)
		return nil, fmt.Errorf("create tour: %w", err)
	}
	return t, nil
}

// Update replaces the mutable fields wholesale from the draft. Last writer
// wins; the WHERE clause scopes the write to (id, creator_id).
func (r *PostgresTourRepository) Update(ctx context.Context, id, ownerID string, draft Draft) (*Tour, error) {
	steps := NormalizeSteps(draft.Steps)
	stepsJSON, err := json.Marshal(steps)
	if err != nil {
		return nil, fmt.Errorf("encode steps: %w", err)
	}

	visibility := draft.Visibility
	if visibility == "" {
		visibility = VisibilityPrivate
	}

	query := `
		UPDATE tours
		SET title = $3, description = $4, visibility = $5, thumbnail = $6, steps = $7, updated_at = $8
		WHERE id = $1 AND creator_id = $2
		RETURNING ` + tourColumns + `
	`
	t, err := scanTour(r.db.QueryRowContext(ctx, query,
		id, ownerID, draft.Title, draft.Description, string(visibility),
		draft.Thumbnail, stepsJSON, time.Now()))
	if err == sql.ErrNoRows {
		return nil, ErrTourNotFound
	}
	if err != nil {
		r.logger.Error("failed to update tour", "error", err, "tour_id", id)
		return nil, fmt.Errorf("update tour: %w", err)
	}
	return t, nil
}

// Delete removes a tour owned by ownerID.
func (r *PostgresTourRepository) Delete(ctx context.Context, id, ownerID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tours WHERE id = $1 AND creator_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete tour: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete tour: %w", err)
	}
	if n == 0 {
		return ErrTourNotFound
	}
	return nil
}
