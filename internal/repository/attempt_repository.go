package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bimbelku/tryout-backend/internal/model"
)

// AttemptRepository handles attempt and section-attempt data access.
// Multi-row writes (attempt + first section, finish + open next, finalize)
// run inside a single transaction so a crash mid-sequence never leaves an
// ongoing attempt without a section attempt or a finished last section
// without a finalized attempt.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, user_id, tryout_id, started_at, deadline, completed_at, status, score, is_revoked`

func scanAttempt(row pgx.Row) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := row.Scan(&a.ID, &a.UserID, &a.TryoutID, &a.StartedAt, &a.Deadline, &a.CompletedAt, &a.Status, &a.Score, &a.IsRevoked)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByID retrieves an attempt by id.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id))
}

// GetByUserAndTryout retrieves the attempt for a (user, tryout) pair.
// The unique constraint guarantees at most one row.
func (r *AttemptRepository) GetByUserAndTryout(ctx context.Context, userID, tryoutID uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE user_id = $1 AND tryout_id = $2`, userID, tryoutID))
}

// CreateWithFirstSection inserts an attempt and its first section attempt in
// one transaction. ON CONFLICT DO NOTHING makes the concurrent double-start
// race surface as pgx.ErrNoRows, which the caller resolves by fetching the
// existing attempt.
func (r *AttemptRepository) CreateWithFirstSection(ctx context.Context, a *model.Attempt, sa *model.SectionAttempt) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO attempts (user_id, tryout_id, started_at, deadline, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, tryout_id) DO NOTHING
		 RETURNING id`,
		a.UserID, a.TryoutID, a.StartedAt, a.Deadline, model.AttemptStatusOngoing,
	).Scan(&a.ID)
	if err != nil {
		return err
	}
	a.Status = model.AttemptStatusOngoing

	sa.AttemptID = a.ID
	err = tx.QueryRow(ctx,
		`INSERT INTO section_attempts (attempt_id, section_id, started_at, deadline, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		sa.AttemptID, sa.SectionID, sa.StartedAt, sa.Deadline, model.AttemptStatusOngoing,
	).Scan(&sa.ID)
	if err != nil {
		return fmt.Errorf("insert first section attempt: %w", err)
	}
	sa.Status = model.AttemptStatusOngoing

	return tx.Commit(ctx)
}

// GetSectionAttempt retrieves a section attempt by (attempt, section).
func (r *AttemptRepository) GetSectionAttempt(ctx context.Context, attemptID, sectionID uuid.UUID) (*model.SectionAttempt, error) {
	sa := &model.SectionAttempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, attempt_id, section_id, started_at, deadline, completed_at, status, score
		 FROM section_attempts
		 WHERE attempt_id = $1 AND section_id = $2`, attemptID, sectionID,
	).Scan(&sa.ID, &sa.AttemptID, &sa.SectionID, &sa.StartedAt, &sa.Deadline, &sa.CompletedAt, &sa.Status, &sa.Score)
	if err != nil {
		return nil, err
	}
	return sa, nil
}

// GetOngoingSectionAttempt retrieves the attempt's currently open section
// attempt, if any. Lazy creation guarantees at most one is ongoing.
func (r *AttemptRepository) GetOngoingSectionAttempt(ctx context.Context, attemptID uuid.UUID) (*model.SectionAttempt, error) {
	sa := &model.SectionAttempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, attempt_id, section_id, started_at, deadline, completed_at, status, score
		 FROM section_attempts
		 WHERE attempt_id = $1 AND status = $2`, attemptID, model.AttemptStatusOngoing,
	).Scan(&sa.ID, &sa.AttemptID, &sa.SectionID, &sa.StartedAt, &sa.Deadline, &sa.CompletedAt, &sa.Status, &sa.Score)
	if err != nil {
		return nil, err
	}
	return sa, nil
}

// ListSectionAttempts retrieves all section attempts of an attempt in start
// order.
func (r *AttemptRepository) ListSectionAttempts(ctx context.Context, attemptID uuid.UUID) ([]model.SectionAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, attempt_id, section_id, started_at, deadline, completed_at, status, score
		 FROM section_attempts
		 WHERE attempt_id = $1
		 ORDER BY started_at`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.SectionAttempt
	for rows.Next() {
		var sa model.SectionAttempt
		if err := rows.Scan(&sa.ID, &sa.AttemptID, &sa.SectionID, &sa.StartedAt, &sa.Deadline, &sa.CompletedAt, &sa.Status, &sa.Score); err != nil {
			return nil, err
		}
		attempts = append(attempts, sa)
	}
	return attempts, rows.Err()
}

// CreateSectionAttempt inserts a section attempt. The (attempt, section)
// unique constraint turns a concurrent duplicate into pgx.ErrNoRows; the
// caller fetches the existing row instead.
func (r *AttemptRepository) CreateSectionAttempt(ctx context.Context, sa *model.SectionAttempt) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO section_attempts (attempt_id, section_id, started_at, deadline, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (attempt_id, section_id) DO NOTHING
		 RETURNING id`,
		sa.AttemptID, sa.SectionID, sa.StartedAt, sa.Deadline, model.AttemptStatusOngoing,
	).Scan(&sa.ID)
	if err != nil {
		return err
	}
	sa.Status = model.AttemptStatusOngoing
	return nil
}

// FinishSectionAndOpenNext closes a section attempt and opens the next one
// in a single transaction. The status guard on the UPDATE makes a repeated
// submit a no-op (pgx.ErrNoRows via RowsAffected check).
func (r *AttemptRepository) FinishSectionAndOpenNext(ctx context.Context, sectionAttemptID uuid.UUID, completedAt time.Time, next *model.SectionAttempt) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE section_attempts
		 SET status = $1, completed_at = $2
		 WHERE id = $3 AND status = $4`,
		model.AttemptStatusFinished, completedAt, sectionAttemptID, model.AttemptStatusOngoing)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO section_attempts (attempt_id, section_id, started_at, deadline, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (attempt_id, section_id) DO NOTHING
		 RETURNING id`,
		next.AttemptID, next.SectionID, next.StartedAt, next.Deadline, model.AttemptStatusOngoing,
	).Scan(&next.ID)
	if err != nil {
		return fmt.Errorf("open next section: %w", err)
	}
	next.Status = model.AttemptStatusOngoing

	return tx.Commit(ctx)
}

// Finalize closes the attempt in one transaction: every still-ongoing
// section attempt is finished, section scores are written, and the attempt
// row gets its overall score, FINISHED status, and completion time. Used by
// both the terminal SubmitSection branch and lazy expiry.
func (r *AttemptRepository) Finalize(ctx context.Context, attemptID uuid.UUID, completedAt time.Time, totalScore int, sectionScores map[uuid.UUID]int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE section_attempts
		 SET status = $1, completed_at = $2
		 WHERE attempt_id = $3 AND status = $4`,
		model.AttemptStatusFinished, completedAt, attemptID, model.AttemptStatusOngoing)
	if err != nil {
		return fmt.Errorf("close section attempts: %w", err)
	}

	for sectionAttemptID, score := range sectionScores {
		if _, err := tx.Exec(ctx,
			`UPDATE section_attempts SET score = $1 WHERE id = $2`,
			score, sectionAttemptID); err != nil {
			return fmt.Errorf("write section score: %w", err)
		}
	}

	tag, err := tx.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, score = $2, completed_at = $3
		 WHERE id = $4 AND status = $5`,
		model.AttemptStatusFinished, totalScore, completedAt, attemptID, model.AttemptStatusOngoing)
	if err != nil {
		return fmt.Errorf("finalize attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Another request finalized first. The scores it wrote stand.
		return pgx.ErrNoRows
	}

	return tx.Commit(ctx)
}

// Revoke flips the attempt's kill switch. Revoked attempts reject every
// mutating operation regardless of status.
func (r *AttemptRepository) Revoke(ctx context.Context, attemptID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts SET is_revoked = TRUE WHERE id = $1`, attemptID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
