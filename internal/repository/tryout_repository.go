package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bimbelku/tryout-backend/internal/model"
)

// TryoutRepository handles tryout template data access. Templates are
// read-only from the attempt engine's perspective.
type TryoutRepository struct {
	pool *pgxpool.Pool
}

// NewTryoutRepository creates a new TryoutRepository.
func NewTryoutRepository(pool *pgxpool.Pool) *TryoutRepository {
	return &TryoutRepository{pool: pool}
}

// GetByID retrieves a tryout with its sections ordered by order_num.
func (r *TryoutRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Tryout, error) {
	t := &model.Tryout{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, category, status, is_premium, starts_at, ends_at, created_at, updated_at
		 FROM tryouts WHERE id = $1`, id,
	).Scan(&t.ID, &t.Title, &t.Category, &t.Status, &t.IsPremium, &t.StartsAt, &t.EndsAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	sections, err := r.listSections(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.Sections = sections
	return t, nil
}

// ListPublished retrieves all published tryouts with their sections.
// Publish-window filtering is left to the caller since it depends on "now".
func (r *TryoutRepository) ListPublished(ctx context.Context) ([]model.Tryout, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, category, status, is_premium, starts_at, ends_at, created_at, updated_at
		 FROM tryouts
		 WHERE status = $1
		 ORDER BY created_at DESC`, model.TryoutStatusPublished,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tryouts []model.Tryout
	for rows.Next() {
		var t model.Tryout
		if err := rows.Scan(&t.ID, &t.Title, &t.Category, &t.Status, &t.IsPremium, &t.StartsAt, &t.EndsAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tryouts = append(tryouts, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tryouts {
		sections, err := r.listSections(ctx, tryouts[i].ID)
		if err != nil {
			return nil, err
		}
		tryouts[i].Sections = sections
	}
	return tryouts, nil
}

func (r *TryoutRepository) listSections(ctx context.Context, tryoutID uuid.UUID) ([]model.Section, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tryout_id, name, duration_minutes, question_order, order_num
		 FROM sections
		 WHERE tryout_id = $1
		 ORDER BY order_num`, tryoutID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []model.Section
	for rows.Next() {
		var s model.Section
		if err := rows.Scan(&s.ID, &s.TryoutID, &s.Name, &s.DurationMinutes, &s.QuestionOrder, &s.OrderNum); err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}
