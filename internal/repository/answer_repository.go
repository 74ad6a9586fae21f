package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bimbelku/tryout-backend/internal/model"
)

// AnswerRepository handles user answer data access. All writes are upserts
// keyed on (attempt, question), so repeated saves are idempotent and
// concurrent saves resolve last-write-wins without read-modify-write races.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// Upsert records an answer, overwriting the previous selection/text for the
// same question. The doubtful flag is left untouched on update.
func (r *AnswerRepository) Upsert(ctx context.Context, ans *model.UserAnswer) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO user_answers (attempt_id, question_id, selected_choice_id, essay_answer)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET selected_choice_id = EXCLUDED.selected_choice_id,
		     essay_answer = EXCLUDED.essay_answer,
		     updated_at = NOW()
		 RETURNING id, is_doubtful, updated_at`,
		ans.AttemptID, ans.QuestionID, ans.SelectedChoiceID, ans.EssayAnswer,
	).Scan(&ans.ID, &ans.IsDoubtful, &ans.UpdatedAt)
}

// ToggleDoubtful flips the review flag for a question, inserting a flag-only
// row if no answer exists yet. A single statement, so it can never clobber a
// concurrently saved selected_choice_id or essay_answer.
func (r *AnswerRepository) ToggleDoubtful(ctx context.Context, attemptID, questionID uuid.UUID) (*model.UserAnswer, error) {
	ans := &model.UserAnswer{AttemptID: attemptID, QuestionID: questionID}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO user_answers (attempt_id, question_id, is_doubtful)
		 VALUES ($1, $2, TRUE)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET is_doubtful = NOT user_answers.is_doubtful,
		     updated_at = NOW()
		 RETURNING id, selected_choice_id, essay_answer, is_doubtful, updated_at`,
		attemptID, questionID,
	).Scan(&ans.ID, &ans.SelectedChoiceID, &ans.EssayAnswer, &ans.IsDoubtful, &ans.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return ans, nil
}

// ListByAttempt retrieves every recorded answer of an attempt.
func (r *AnswerRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.UserAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, attempt_id, question_id, selected_choice_id, essay_answer, is_doubtful, updated_at
		 FROM user_answers
		 WHERE attempt_id = $1`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.UserAnswer
	for rows.Next() {
		var a model.UserAnswer
		if err := rows.Scan(&a.ID, &a.AttemptID, &a.QuestionID, &a.SelectedChoiceID, &a.EssayAnswer, &a.IsDoubtful, &a.UpdatedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// CountForSection returns the answered and doubtful counters for one
// section of an attempt, used by the progress display.
func (r *AnswerRepository) CountForSection(ctx context.Context, attemptID, sectionID uuid.UUID) (answered, doubtful int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT
		   COUNT(*) FILTER (WHERE ua.selected_choice_id IS NOT NULL
		                       OR COALESCE(ua.essay_answer, '') <> ''),
		   COUNT(*) FILTER (WHERE ua.is_doubtful)
		 FROM user_answers ua
		 JOIN section_questions sq ON sq.question_id = ua.question_id AND sq.section_id = $2
		 WHERE ua.attempt_id = $1`,
		attemptID, sectionID,
	).Scan(&answered, &doubtful)
	return answered, doubtful, err
}
