package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/bimbelku/tryout-backend/internal/config"
	"github.com/bimbelku/tryout-backend/internal/model"
	"github.com/bimbelku/tryout-backend/internal/repository"
)

// TryoutService serves the tryout catalog and the cached section question
// payloads (questions without correct answers).
type TryoutService struct {
	tryoutRepo   *repository.TryoutRepository
	questionRepo *repository.QuestionRepository
	attemptRepo  *repository.AttemptRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewTryoutService creates a new TryoutService.
func NewTryoutService(
	tryoutRepo *repository.TryoutRepository,
	questionRepo *repository.QuestionRepository,
	attemptRepo *repository.AttemptRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *TryoutService {
	return &TryoutService{
		tryoutRepo:   tryoutRepo,
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "tryout_service").Logger(),
	}
}

// CatalogEntry is a tryout as listed for a user, with their attempt state
// overlaid.
type CatalogEntry struct {
	model.Tryout
	TotalDurationMinutes int                  `json:"total_duration_minutes"`
	AttemptStatus        *model.AttemptStatus `json:"attempt_status,omitempty"`
	AttemptScore         *int                 `json:"attempt_score,omitempty"`
}

// ListAvailable returns the published tryouts currently inside their publish
// window, each overlaid with the caller's attempt status and score.
func (s *TryoutService) ListAvailable(ctx context.Context, userID uuid.UUID) ([]CatalogEntry, error) {
	tryouts, err := s.tryoutRepo.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("list published: %w", err)
	}

	now := time.Now()
	var catalog []CatalogEntry
	for i := range tryouts {
		if !tryouts[i].AvailableAt(now) {
			continue
		}

		entry := CatalogEntry{
			Tryout:               tryouts[i],
			TotalDurationMinutes: tryouts[i].TotalDurationMinutes(),
		}

		attempt, err := s.attemptRepo.GetByUserAndTryout(ctx, userID, tryouts[i].ID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get attempt: %w", err)
		}
		if attempt != nil && !attempt.IsRevoked {
			entry.AttemptStatus = &attempt.Status
			entry.AttemptScore = attempt.Score
		}

		catalog = append(catalog, entry)
	}
	return catalog, nil
}

// GetAvailable returns a single published tryout (with sections, without
// questions) if it is currently open for attempts.
func (s *TryoutService) GetAvailable(ctx context.Context, tryoutID uuid.UUID) (*model.Tryout, error) {
	tryout, err := s.tryoutRepo.GetByID(ctx, tryoutID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTryoutNotFound
		}
		return nil, fmt.Errorf("get tryout: %w", err)
	}
	if !tryout.AvailableAt(time.Now()) {
		return nil, NewStateError(ReasonTryoutNotAvailable)
	}
	return tryout, nil
}

// SectionPayload returns a section's questions stripped of correctness.
// Redis first, PostgreSQL on miss with self-heal, so the hot exam-taking
// path rarely touches the question bank tables.
func (s *TryoutService) SectionPayload(ctx context.Context, sectionID uuid.UUID) ([]model.QuestionForUser, error) {
	key := config.CacheKey.SectionPayloadKey(sectionID.String())

	raw, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		var cached []model.QuestionForUser
		if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
			return cached, nil
		}
		// Corrupt cache entry: fall through and rebuild.
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get payload cache: %w", err)
	}

	payload, err := s.buildSectionPayload(ctx, sectionID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(payload); err == nil {
		if err := s.rdb.Set(ctx, key, raw, 0).Err(); err != nil {
			s.log.Warn().Err(err).Str("section_id", sectionID.String()).Msg("Payload cache write failed")
		}
	}
	return payload, nil
}

// PrewarmAll loads every published tryout's section payloads into Redis.
// Called before the server accepts traffic so lazy loading never races a
// thundering herd.
func (s *TryoutService) PrewarmAll(ctx context.Context) error {
	tryouts, err := s.tryoutRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published: %w", err)
	}

	warmed := 0
	for _, t := range tryouts {
		for _, section := range t.Sections {
			payload, err := s.buildSectionPayload(ctx, section.ID)
			if err != nil {
				return fmt.Errorf("build payload for section %s: %w", section.ID, err)
			}
			raw, err := json.Marshal(payload)
			if err != nil {
				return fmt.Errorf("marshal payload: %w", err)
			}
			key := config.CacheKey.SectionPayloadKey(section.ID.String())
			if err := s.rdb.Set(ctx, key, raw, 0).Err(); err != nil {
				return fmt.Errorf("cache payload: %w", err)
			}
			warmed++
		}
	}

	s.log.Info().Int("tryouts", len(tryouts)).Int("sections", warmed).Msg("Payload caches prewarmed")
	return nil
}

func (s *TryoutService) buildSectionPayload(ctx context.Context, sectionID uuid.UUID) ([]model.QuestionForUser, error) {
	questions, err := s.questionRepo.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	payload := make([]model.QuestionForUser, 0, len(questions))
	for i := range questions {
		payload = append(payload, questions[i].ForUser())
	}
	return payload, nil
}
