package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bimbelku/tryout-backend/internal/model"
)

// QuestionRepository reads from the question bank. The attempt engine never
// writes questions — authoring happens elsewhere.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListBySection retrieves a section's linked questions with their choices,
// ordered by the link's order_num.
func (r *QuestionRepository) ListBySection(ctx context.Context, sectionID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.question_type, q.content, q.discussion, q.essay_answer, sq.order_num
		 FROM section_questions sq
		 JOIN questions q ON q.id = sq.question_id
		 WHERE sq.section_id = $1
		 ORDER BY sq.order_num`, sectionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	var ids []uuid.UUID
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.QuestionType, &q.Content, &q.Discussion, &q.EssayAnswer, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
		ids = append(ids, q.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return questions, nil
	}

	choices, err := r.listChoices(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		questions[i].Choices = choices[questions[i].ID]
	}
	return questions, nil
}

// GetByID retrieves a single question with its choices.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, question_type, content, discussion, essay_answer
		 FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.QuestionType, &q.Content, &q.Discussion, &q.EssayAnswer)
	if err != nil {
		return nil, err
	}

	choices, err := r.listChoices(ctx, []uuid.UUID{q.ID})
	if err != nil {
		return nil, err
	}
	q.Choices = choices[q.ID]
	return q, nil
}

func (r *QuestionRepository) listChoices(ctx context.Context, questionIDs []uuid.UUID) (map[uuid.UUID][]model.Choice, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, question_id, content, is_correct
		 FROM choices
		 WHERE question_id = ANY($1)
		 ORDER BY question_id, id`, questionIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byQuestion := make(map[uuid.UUID][]model.Choice)
	for rows.Next() {
		var c model.Choice
		if err := rows.Scan(&c.ID, &c.QuestionID, &c.Content, &c.IsCorrect); err != nil {
			return nil, err
		}
		byQuestion[c.QuestionID] = append(byQuestion[c.QuestionID], c)
	}
	return byQuestion, rows.Err()
}
