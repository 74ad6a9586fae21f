package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bimbelku/tryout-backend/internal/model"
)

// SectionPayloadSource serves a section's questions stripped of
// correct-answer data, typically cache-backed.
type SectionPayloadSource interface {
	SectionPayload(ctx context.Context, sectionID uuid.UUID) ([]model.QuestionForUser, error)
}

// SectionProgress is one section's state within an attempt view.
type SectionProgress struct {
	Section        model.Section         `json:"section"`
	SectionAttempt *model.SectionAttempt `json:"section_attempt,omitempty"`
	Answered       int                   `json:"answered"`
	Doubtful       int                   `json:"doubtful"`
	Total          int                   `json:"total"`
}

// CurrentSection is the ongoing section with its question payload.
type CurrentSection struct {
	SectionAttempt model.SectionAttempt    `json:"section_attempt"`
	Questions      []model.QuestionForUser `json:"questions"`
}

// AttemptView is everything a client needs to render an attempt in
// progress: the attempt itself, per-section progress, and the open section's
// questions without correctness data.
type AttemptView struct {
	Attempt  model.Attempt     `json:"attempt"`
	Sections []SectionProgress `json:"sections"`
	Current  *CurrentSection   `json:"current,omitempty"`
}

// GetAttemptView assembles the attempt display for a (user, tryout) pair.
// Reading is where lazy expiry fires: a deadline that passed since the last
// access finalizes the attempt before the view is built.
func (s *AttemptService) GetAttemptView(ctx context.Context, userID, tryoutID uuid.UUID) (*AttemptView, error) {
	attempt, err := s.attempts.GetByUserAndTryout(ctx, userID, tryoutID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.IsRevoked {
		return nil, ErrAttemptRevoked
	}
	if err := s.reconcileExpiry(ctx, attempt); err != nil {
		return nil, err
	}

	tryout, err := s.tryouts.GetByID(ctx, attempt.TryoutID)
	if err != nil {
		return nil, fmt.Errorf("get tryout: %w", err)
	}

	sectionAttempts, err := s.attempts.ListSectionAttempts(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("list section attempts: %w", err)
	}
	attemptBySection := make(map[uuid.UUID]*model.SectionAttempt, len(sectionAttempts))
	for i := range sectionAttempts {
		attemptBySection[sectionAttempts[i].SectionID] = &sectionAttempts[i]
	}

	view := &AttemptView{Attempt: *attempt}
	for _, section := range tryout.Sections {
		progress := SectionProgress{Section: section}
		progress.SectionAttempt = attemptBySection[section.ID]

		questions, err := s.payloads.SectionPayload(ctx, section.ID)
		if err != nil {
			return nil, fmt.Errorf("section payload: %w", err)
		}
		progress.Total = len(questions)

		if progress.SectionAttempt != nil {
			answered, doubtful, err := s.answers.CountForSection(ctx, attempt.ID, section.ID)
			if err != nil {
				return nil, fmt.Errorf("count answers: %w", err)
			}
			progress.Answered = answered
			progress.Doubtful = doubtful

			if progress.SectionAttempt.Status == model.AttemptStatusOngoing && attempt.Status == model.AttemptStatusOngoing {
				view.Current = &CurrentSection{
					SectionAttempt: *progress.SectionAttempt,
					Questions:      questions,
				}
			}
		}
		view.Sections = append(view.Sections, progress)
	}

	return view, nil
}

// ReviewItem pairs a question (with correctness and discussion) with the
// user's recorded answer.
type ReviewItem struct {
	Question model.Question    `json:"question"`
	Answer   *model.UserAnswer `json:"answer,omitempty"`
	Correct  bool              `json:"correct"`
}

// ReviewView is the post-section review: full questions, discussion, and
// the user's answers.
type ReviewView struct {
	SectionAttempt model.SectionAttempt `json:"section_attempt"`
	Items          []ReviewItem         `json:"items"`
}

// GetReview returns the answer review for a finished section. Correct
// answers and discussions are only ever exposed here.
func (s *AttemptService) GetReview(ctx context.Context, userID, attemptID, sectionID uuid.UUID) (*ReviewView, error) {
	if _, err := s.loadAttempt(ctx, userID, attemptID); err != nil {
		return nil, err
	}

	sa, err := s.attempts.GetSectionAttempt(ctx, attemptID, sectionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSectionNotFound
		}
		return nil, fmt.Errorf("get section attempt: %w", err)
	}
	if sa.Status != model.AttemptStatusFinished {
		return nil, NewStateError(ReasonSectionNotFinished)
	}

	questions, err := s.bank.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	answers, err := s.answers.ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	answerByQuestion := make(map[uuid.UUID]*model.UserAnswer, len(answers))
	for i := range answers {
		answerByQuestion[answers[i].QuestionID] = &answers[i]
	}

	view := &ReviewView{SectionAttempt: *sa}
	for i := range questions {
		ans := answerByQuestion[questions[i].ID]
		view.Items = append(view.Items, ReviewItem{
			Question: questions[i],
			Answer:   ans,
			Correct:  isCorrect(&questions[i], ans),
		})
	}
	return view, nil
}
