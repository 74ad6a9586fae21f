package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/bimbelku/tryout-backend/internal/model"
)

// TryoutStore provides tryout templates to the state machine.
type TryoutStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Tryout, error)
}

// QuestionBank provides section questions with correct-answer data.
// Read-only; the attempt engine never writes to it.
type QuestionBank interface {
	ListBySection(ctx context.Context, sectionID uuid.UUID) ([]model.Question, error)
}

// AttemptStore persists attempts and section attempts. Implementations must
// make CreateWithFirstSection, FinishSectionAndOpenNext, and Finalize
// atomic, and must surface uniqueness-constraint conflicts as pgx.ErrNoRows.
type AttemptStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	GetByUserAndTryout(ctx context.Context, userID, tryoutID uuid.UUID) (*model.Attempt, error)
	CreateWithFirstSection(ctx context.Context, a *model.Attempt, sa *model.SectionAttempt) error
	GetSectionAttempt(ctx context.Context, attemptID, sectionID uuid.UUID) (*model.SectionAttempt, error)
	GetOngoingSectionAttempt(ctx context.Context, attemptID uuid.UUID) (*model.SectionAttempt, error)
	ListSectionAttempts(ctx context.Context, attemptID uuid.UUID) ([]model.SectionAttempt, error)
	CreateSectionAttempt(ctx context.Context, sa *model.SectionAttempt) error
	FinishSectionAndOpenNext(ctx context.Context, sectionAttemptID uuid.UUID, completedAt time.Time, next *model.SectionAttempt) error
	Finalize(ctx context.Context, attemptID uuid.UUID, completedAt time.Time, totalScore int, sectionScores map[uuid.UUID]int) error
	Revoke(ctx context.Context, attemptID uuid.UUID) error
}

// AnswerStore persists user answers with upsert semantics.
type AnswerStore interface {
	Upsert(ctx context.Context, ans *model.UserAnswer) error
	ToggleDoubtful(ctx context.Context, attemptID, questionID uuid.UUID) (*model.UserAnswer, error)
	ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.UserAnswer, error)
	CountForSection(ctx context.Context, attemptID, sectionID uuid.UUID) (answered, doubtful int, err error)
}

// AttemptService is the tryout attempt state machine. It owns the lifecycle
// of an attempt — creation, per-section start/submit, answer recording,
// deadline enforcement, and finalization through the scoring engine.
type AttemptService struct {
	tryouts  TryoutStore
	attempts AttemptStore
	answers  AnswerStore
	bank     QuestionBank
	payloads SectionPayloadSource
	policy   EligibilityPolicy
	log      zerolog.Logger
	now      func() time.Time
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	tryouts TryoutStore,
	attempts AttemptStore,
	answers AnswerStore,
	bank QuestionBank,
	payloads SectionPayloadSource,
	policy EligibilityPolicy,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		tryouts:  tryouts,
		attempts: attempts,
		answers:  answers,
		bank:     bank,
		payloads: payloads,
		policy:   policy,
		log:      log.With().Str("component", "attempt_service").Logger(),
		now:      time.Now,
	}
}

// StartAttempt opens (or resumes) the user's attempt at a tryout. Calling it
// again for the same (user, tryout) returns the existing attempt unchanged —
// resuming must never create a second attempt or reset progress.
func (s *AttemptService) StartAttempt(ctx context.Context, userID, tryoutID uuid.UUID) (*model.Attempt, error) {
	tryout, err := s.tryouts.GetByID(ctx, tryoutID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTryoutNotFound
		}
		return nil, fmt.Errorf("get tryout: %w", err)
	}

	now := s.now()
	if !tryout.AvailableAt(now) {
		return nil, NewStateError(ReasonTryoutNotAvailable)
	}
	if len(tryout.Sections) == 0 {
		return nil, NewStateError(ReasonNoSections)
	}
	if err := s.policy.CanStart(ctx, userID, tryout); err != nil {
		return nil, err
	}

	existing, err := s.attempts.GetByUserAndTryout(ctx, userID, tryoutID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing attempt: %w", err)
	}
	if existing != nil {
		if existing.IsRevoked {
			return nil, ErrAttemptRevoked
		}
		if err := s.reconcileExpiry(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	overall := OverallDeadline(now, tryout.Sections)
	first := tryout.Sections[0]
	attempt := &model.Attempt{
		UserID:    userID,
		TryoutID:  tryoutID,
		StartedAt: now,
		Deadline:  overall,
	}
	firstSection := &model.SectionAttempt{
		SectionID: first.ID,
		StartedAt: now,
		Deadline:  SectionDeadline(now, first.DurationMinutes, overall),
	}

	if err := s.attempts.CreateWithFirstSection(ctx, attempt, firstSection); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Concurrent start won the unique constraint. Converge on its row.
			winner, fetchErr := s.attempts.GetByUserAndTryout(ctx, userID, tryoutID)
			if fetchErr != nil {
				return nil, fmt.Errorf("concurrent start detected, fetch failed: %w", fetchErr)
			}
			if winner.IsRevoked {
				return nil, ErrAttemptRevoked
			}
			return winner, nil
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	s.log.Info().
		Str("user_id", userID.String()).
		Str("tryout_id", tryoutID.String()).
		Str("attempt_id", attempt.ID.String()).
		Time("deadline", attempt.Deadline).
		Msg("Attempt started")

	return attempt, nil
}

// StartSection opens a section attempt. Idempotent: if the row already
// exists it is returned unchanged, so page refreshes and retried requests
// are harmless. Sections must be taken in order.
func (s *AttemptService) StartSection(ctx context.Context, userID, attemptID, sectionID uuid.UUID) (*model.SectionAttempt, error) {
	attempt, err := s.ongoingAttempt(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}

	existing, err := s.attempts.GetSectionAttempt(ctx, attemptID, sectionID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check section attempt: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	tryout, err := s.tryouts.GetByID(ctx, attempt.TryoutID)
	if err != nil {
		return nil, fmt.Errorf("get tryout: %w", err)
	}

	idx := sectionIndex(tryout.Sections, sectionID)
	if idx < 0 {
		return nil, ErrSectionNotFound
	}

	section := tryout.Sections[idx]
	// Index 0 anchors on the attempt start. That row is created inside
	// StartAttempt, so the idempotence check above normally returns it before
	// this runs; later sections anchor on the previous section's deadline.
	anchor := attempt.StartedAt
	if idx > 0 {
		prev, err := s.attempts.GetSectionAttempt(ctx, attemptID, tryout.Sections[idx-1].ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, NewStateError(ReasonPreviousUnfinished)
			}
			return nil, fmt.Errorf("get previous section attempt: %w", err)
		}
		if prev.Status != model.AttemptStatusFinished {
			return nil, NewStateError(ReasonPreviousUnfinished)
		}
		anchor = prev.Deadline
	}

	sa := &model.SectionAttempt{
		AttemptID: attemptID,
		SectionID: sectionID,
		StartedAt: s.now(),
		Deadline:  SectionDeadline(anchor, section.DurationMinutes, attempt.Deadline),
	}
	if err := s.attempts.CreateSectionAttempt(ctx, sa); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Concurrent duplicate start; return the winner's row.
			return s.attempts.GetSectionAttempt(ctx, attemptID, sectionID)
		}
		return nil, fmt.Errorf("create section attempt: %w", err)
	}
	return sa, nil
}

// SaveAnswer upserts the answer for one question of the currently open
// section. The section deadline is checked synchronously on every save; an
// expired section rejects the write entirely.
func (s *AttemptService) SaveAnswer(ctx context.Context, userID, attemptID uuid.UUID, req *model.SaveAnswerRequest) (*model.UserAnswer, error) {
	if _, err := s.activeSection(ctx, userID, attemptID); err != nil {
		return nil, err
	}

	ans := &model.UserAnswer{
		AttemptID:        attemptID,
		QuestionID:       req.QuestionID,
		SelectedChoiceID: req.SelectedChoiceID,
		EssayAnswer:      req.EssayAnswer,
	}
	if err := s.answers.Upsert(ctx, ans); err != nil {
		return nil, fmt.Errorf("upsert answer: %w", err)
	}
	return ans, nil
}

// ToggleDoubtful flips the flag-for-review marker on a question. Same
// preconditions as SaveAnswer; never touches the recorded answer.
func (s *AttemptService) ToggleDoubtful(ctx context.Context, userID, attemptID, questionID uuid.UUID) (*model.UserAnswer, error) {
	if _, err := s.activeSection(ctx, userID, attemptID); err != nil {
		return nil, err
	}

	ans, err := s.answers.ToggleDoubtful(ctx, attemptID, questionID)
	if err != nil {
		return nil, fmt.Errorf("toggle doubtful: %w", err)
	}
	return ans, nil
}

// SubmitResult is the outcome of SubmitSection: either the next section to
// take, or the completed tryout with its final score.
type SubmitResult struct {
	NextSectionID   *uuid.UUID `json:"next_section_id,omitempty"`
	TryoutCompleted bool       `json:"tryout_completed"`
	Score           *int       `json:"score,omitempty"`
}

// SubmitSection finishes a section. If a later section exists its attempt is
// opened eagerly in the same transaction (the "Finish" button is one
// continuous user action); if this was the last section the whole attempt is
// scored and finalized.
//
// Only the overall attempt deadline is re-checked here, not the section's
// own: answering was already blocked by SaveAnswer's section-deadline check,
// so accepting the transition grants no extra answering time and lets a
// stalled client advance.
func (s *AttemptService) SubmitSection(ctx context.Context, userID, attemptID, sectionID uuid.UUID) (*SubmitResult, error) {
	attempt, err := s.ongoingAttempt(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}

	sa, err := s.attempts.GetSectionAttempt(ctx, attemptID, sectionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NewStateError(ReasonSectionNotActive)
		}
		return nil, fmt.Errorf("get section attempt: %w", err)
	}
	if sa.Status != model.AttemptStatusOngoing {
		return nil, NewStateError(ReasonSectionNotActive)
	}

	// Re-check against a fresh clock at the moment of the write, not the
	// read earlier in the request.
	now := s.now()
	if attempt.Expired(now) {
		return nil, NewStateError(ReasonDeadlinePassed)
	}

	tryout, err := s.tryouts.GetByID(ctx, attempt.TryoutID)
	if err != nil {
		return nil, fmt.Errorf("get tryout: %w", err)
	}
	idx := sectionIndex(tryout.Sections, sectionID)
	if idx < 0 {
		return nil, ErrSectionNotFound
	}

	if idx+1 < len(tryout.Sections) {
		nextSection := tryout.Sections[idx+1]
		next := &model.SectionAttempt{
			AttemptID: attemptID,
			SectionID: nextSection.ID,
			StartedAt: now,
			Deadline:  SectionDeadline(sa.Deadline, nextSection.DurationMinutes, attempt.Deadline),
		}
		if err := s.attempts.FinishSectionAndOpenNext(ctx, sa.ID, now, next); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, NewStateError(ReasonSectionNotActive)
			}
			return nil, fmt.Errorf("finish section: %w", err)
		}
		return &SubmitResult{NextSectionID: &nextSection.ID}, nil
	}

	// Last section: score everything and finalize in one transaction.
	sheet, err := s.scoreAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if err := s.attempts.Finalize(ctx, attemptID, now, sheet.TotalScore, sheet.SectionScores()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NewStateError(ReasonAttemptFinished)
		}
		return nil, fmt.Errorf("finalize attempt: %w", err)
	}

	s.log.Info().
		Str("attempt_id", attemptID.String()).
		Int("score", sheet.TotalScore).
		Msg("Tryout completed")

	score := sheet.TotalScore
	return &SubmitResult{TryoutCompleted: true, Score: &score}, nil
}

// ClockInfo is a server-time snapshot of an attempt's deadlines. The client
// renders countdowns from it instead of trusting its own clock.
type ClockInfo struct {
	ServerTime              time.Time  `json:"server_time"`
	AttemptDeadline         time.Time  `json:"attempt_deadline"`
	AttemptRemainingSeconds int        `json:"attempt_remaining_seconds"`
	SectionID               *uuid.UUID `json:"section_id,omitempty"`
	SectionDeadline         *time.Time `json:"section_deadline,omitempty"`
	SectionRemainingSeconds *int       `json:"section_remaining_seconds,omitempty"`
}

// Clock reports remaining time for the attempt and its open section.
func (s *AttemptService) Clock(ctx context.Context, userID, attemptID uuid.UUID) (*ClockInfo, error) {
	attempt, err := s.ongoingAttempt(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	info := &ClockInfo{
		ServerTime:              now,
		AttemptDeadline:         attempt.Deadline,
		AttemptRemainingSeconds: remainingSeconds(now, attempt.Deadline),
	}

	sa, err := s.attempts.GetOngoingSectionAttempt(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return info, nil
		}
		return nil, fmt.Errorf("get ongoing section attempt: %w", err)
	}

	secRemaining := remainingSeconds(now, sa.Deadline)
	info.SectionID = &sa.SectionID
	info.SectionDeadline = &sa.Deadline
	info.SectionRemainingSeconds = &secRemaining
	return info, nil
}

func remainingSeconds(now, deadline time.Time) int {
	if !deadline.After(now) {
		return 0
	}
	return int(deadline.Sub(now) / time.Second)
}

// Revoke flips the attempt's kill switch (operator action).
func (s *AttemptService) Revoke(ctx context.Context, attemptID uuid.UUID) error {
	if err := s.attempts.Revoke(ctx, attemptID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAttemptNotFound
		}
		return fmt.Errorf("revoke attempt: %w", err)
	}
	return nil
}

// ────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ────────────────────────────────────────────────────────────────────────────

// ongoingAttempt loads an attempt for a mutating operation: it must belong
// to the caller, must not be revoked, and must still be ongoing after
// expiry reconciliation.
func (s *AttemptService) ongoingAttempt(ctx context.Context, userID, attemptID uuid.UUID) (*model.Attempt, error) {
	attempt, err := s.loadAttempt(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != model.AttemptStatusOngoing {
		return nil, NewStateError(ReasonAttemptFinished)
	}
	return attempt, nil
}

// loadAttempt fetches and reconciles an attempt without requiring a
// particular status. Foreign attempts are reported as not found.
func (s *AttemptService) loadAttempt(ctx context.Context, userID, attemptID uuid.UUID) (*model.Attempt, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.UserID != userID {
		return nil, ErrAttemptNotFound
	}
	if attempt.IsRevoked {
		return nil, ErrAttemptRevoked
	}
	if err := s.reconcileExpiry(ctx, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// activeSection enforces the shared SaveAnswer/ToggleDoubtful preconditions:
// ongoing attempt, an ongoing section attempt, and that section's deadline
// still in the future.
func (s *AttemptService) activeSection(ctx context.Context, userID, attemptID uuid.UUID) (*model.SectionAttempt, error) {
	if _, err := s.ongoingAttempt(ctx, userID, attemptID); err != nil {
		return nil, err
	}

	sa, err := s.attempts.GetOngoingSectionAttempt(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NewStateError(ReasonNoActiveSection)
		}
		return nil, fmt.Errorf("get ongoing section attempt: %w", err)
	}
	if sa.Expired(s.now()) {
		return nil, NewStateError(ReasonDeadlinePassed)
	}
	return sa, nil
}

// reconcileExpiry is the single place where lazy deadline expiry happens.
// There is no background sweep: an attempt whose deadline silently passed
// stays ONGOING in storage until some read or write lands here. That
// eventual consistency is an accepted trade-off, not a bug. Expiry is a
// finalization, so scores are computed and persisted just as on submit.
func (s *AttemptService) reconcileExpiry(ctx context.Context, attempt *model.Attempt) error {
	now := s.now()
	if attempt.Status != model.AttemptStatusOngoing || !attempt.Expired(now) {
		return nil
	}

	sheet, err := s.scoreAttempt(ctx, attempt.ID)
	if err != nil {
		return err
	}
	if err := s.attempts.Finalize(ctx, attempt.ID, now, sheet.TotalScore, sheet.SectionScores()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the race to another finalizer; refresh and move on.
			fresh, fetchErr := s.attempts.GetByID(ctx, attempt.ID)
			if fetchErr != nil {
				return fmt.Errorf("refresh finalized attempt: %w", fetchErr)
			}
			*attempt = *fresh
			return nil
		}
		return fmt.Errorf("finalize expired attempt: %w", err)
	}

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Int("score", sheet.TotalScore).
		Msg("Attempt expired, finalized on access")

	attempt.Status = model.AttemptStatusFinished
	attempt.CompletedAt = &now
	score := sheet.TotalScore
	attempt.Score = &score
	return nil
}

// scoreAttempt gathers scoring inputs and runs the pure scoring engine.
func (s *AttemptService) scoreAttempt(ctx context.Context, attemptID uuid.UUID) (ScoreSheet, error) {
	sectionAttempts, err := s.attempts.ListSectionAttempts(ctx, attemptID)
	if err != nil {
		return ScoreSheet{}, fmt.Errorf("list section attempts: %w", err)
	}

	questionsBySection := make(map[uuid.UUID][]model.Question, len(sectionAttempts))
	for _, sa := range sectionAttempts {
		questions, err := s.bank.ListBySection(ctx, sa.SectionID)
		if err != nil {
			return ScoreSheet{}, fmt.Errorf("list questions for section %s: %w", sa.SectionID, err)
		}
		questionsBySection[sa.SectionID] = questions
	}

	answers, err := s.answers.ListByAttempt(ctx, attemptID)
	if err != nil {
		return ScoreSheet{}, fmt.Errorf("list answers: %w", err)
	}

	return ComputeScores(sectionAttempts, questionsBySection, answers), nil
}

func sectionIndex(sections []model.Section, sectionID uuid.UUID) int {
	for i := range sections {
		if sections[i].ID == sectionID {
			return i
		}
	}
	return -1
}
