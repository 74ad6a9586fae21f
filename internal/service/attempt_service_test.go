package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/bimbelku/tryout-backend/internal/model"
)

// memStore is an in-memory stand-in for the pgx repositories. It mirrors
// their contract exactly: missing rows and unique-constraint conflicts both
// surface as pgx.ErrNoRows, and reads return copies like a DB scan would.
type memStore struct {
	tryouts         map[uuid.UUID]*model.Tryout
	attempts        map[uuid.UUID]*model.Attempt
	sectionAttempts []*model.SectionAttempt
	answers         map[uuid.UUID]map[uuid.UUID]*model.UserAnswer // attemptID -> questionID
	questions       map[uuid.UUID][]model.Question                // sectionID
}

func newMemStore() *memStore {
	return &memStore{
		tryouts:   make(map[uuid.UUID]*model.Tryout),
		attempts:  make(map[uuid.UUID]*model.Attempt),
		answers:   make(map[uuid.UUID]map[uuid.UUID]*model.UserAnswer),
		questions: make(map[uuid.UUID][]model.Question),
	}
}

// ─── TryoutStore ───────────────────────────────────────────────────────────

func (m *memStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Tryout, error) {
	t, ok := m.tryouts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

// ─── QuestionBank / SectionPayloadSource ───────────────────────────────────

func (m *memStore) ListBySection(ctx context.Context, sectionID uuid.UUID) ([]model.Question, error) {
	return m.questions[sectionID], nil
}

func (m *memStore) SectionPayload(ctx context.Context, sectionID uuid.UUID) ([]model.QuestionForUser, error) {
	questions := m.questions[sectionID]
	payload := make([]model.QuestionForUser, 0, len(questions))
	for i := range questions {
		payload = append(payload, questions[i].ForUser())
	}
	return payload, nil
}

// ─── AttemptStore ──────────────────────────────────────────────────────────

func (m *memStore) getAttempt(id uuid.UUID) *model.Attempt {
	return m.attempts[id]
}

func (m *memStore) GetAttemptByID(id uuid.UUID) (*model.Attempt, error) {
	a, ok := m.attempts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) GetByUserAndTryout(ctx context.Context, userID, tryoutID uuid.UUID) (*model.Attempt, error) {
	for _, a := range m.attempts {
		if a.UserID == userID && a.TryoutID == tryoutID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStore) CreateWithFirstSection(ctx context.Context, a *model.Attempt, sa *model.SectionAttempt) error {
	for _, existing := range m.attempts {
		if existing.UserID == a.UserID && existing.TryoutID == a.TryoutID {
			return pgx.ErrNoRows
		}
	}
	a.ID = uuid.New()
	a.Status = model.AttemptStatusOngoing
	cp := *a
	m.attempts[a.ID] = &cp

	sa.ID = uuid.New()
	sa.AttemptID = a.ID
	sa.Status = model.AttemptStatusOngoing
	scp := *sa
	m.sectionAttempts = append(m.sectionAttempts, &scp)
	return nil
}

func (m *memStore) GetSectionAttempt(ctx context.Context, attemptID, sectionID uuid.UUID) (*model.SectionAttempt, error) {
	for _, sa := range m.sectionAttempts {
		if sa.AttemptID == attemptID && sa.SectionID == sectionID {
			cp := *sa
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStore) GetOngoingSectionAttempt(ctx context.Context, attemptID uuid.UUID) (*model.SectionAttempt, error) {
	for _, sa := range m.sectionAttempts {
		if sa.AttemptID == attemptID && sa.Status == model.AttemptStatusOngoing {
			cp := *sa
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStore) ListSectionAttempts(ctx context.Context, attemptID uuid.UUID) ([]model.SectionAttempt, error) {
	var out []model.SectionAttempt
	for _, sa := range m.sectionAttempts {
		if sa.AttemptID == attemptID {
			out = append(out, *sa)
		}
	}
	return out, nil
}

func (m *memStore) CreateSectionAttempt(ctx context.Context, sa *model.SectionAttempt) error {
	for _, existing := range m.sectionAttempts {
		if existing.AttemptID == sa.AttemptID && existing.SectionID == sa.SectionID {
			return pgx.ErrNoRows
		}
	}
	sa.ID = uuid.New()
	sa.Status = model.AttemptStatusOngoing
	cp := *sa
	m.sectionAttempts = append(m.sectionAttempts, &cp)
	return nil
}

func (m *memStore) FinishSectionAndOpenNext(ctx context.Context, sectionAttemptID uuid.UUID, completedAt time.Time, next *model.SectionAttempt) error {
	var target *model.SectionAttempt
	for _, sa := range m.sectionAttempts {
		if sa.ID == sectionAttemptID {
			target = sa
			break
		}
	}
	if target == nil || target.Status != model.AttemptStatusOngoing {
		return pgx.ErrNoRows
	}
	target.Status = model.AttemptStatusFinished
	at := completedAt
	target.CompletedAt = &at
	return m.CreateSectionAttempt(ctx, next)
}

func (m *memStore) Finalize(ctx context.Context, attemptID uuid.UUID, completedAt time.Time, totalScore int, sectionScores map[uuid.UUID]int) error {
	a, ok := m.attempts[attemptID]
	if !ok || a.Status != model.AttemptStatusOngoing {
		return pgx.ErrNoRows
	}
	at := completedAt
	for _, sa := range m.sectionAttempts {
		if sa.AttemptID != attemptID {
			continue
		}
		if sa.Status == model.AttemptStatusOngoing {
			sa.Status = model.AttemptStatusFinished
			sa.CompletedAt = &at
		}
		if score, ok := sectionScores[sa.ID]; ok {
			s := score
			sa.Score = &s
		}
	}
	a.Status = model.AttemptStatusFinished
	a.CompletedAt = &at
	score := totalScore
	a.Score = &score
	return nil
}

func (m *memStore) Revoke(ctx context.Context, attemptID uuid.UUID) error {
	a, ok := m.attempts[attemptID]
	if !ok {
		return pgx.ErrNoRows
	}
	a.IsRevoked = true
	return nil
}

// ─── AnswerStore ───────────────────────────────────────────────────────────

func (m *memStore) Upsert(ctx context.Context, ans *model.UserAnswer) error {
	byQuestion, ok := m.answers[ans.AttemptID]
	if !ok {
		byQuestion = make(map[uuid.UUID]*model.UserAnswer)
		m.answers[ans.AttemptID] = byQuestion
	}
	if existing, ok := byQuestion[ans.QuestionID]; ok {
		existing.SelectedChoiceID = ans.SelectedChoiceID
		existing.EssayAnswer = ans.EssayAnswer
		existing.UpdatedAt = time.Now()
		ans.ID = existing.ID
		ans.IsDoubtful = existing.IsDoubtful
		return nil
	}
	ans.ID = uuid.New()
	ans.UpdatedAt = time.Now()
	cp := *ans
	byQuestion[ans.QuestionID] = &cp
	return nil
}

func (m *memStore) ToggleDoubtful(ctx context.Context, attemptID, questionID uuid.UUID) (*model.UserAnswer, error) {
	byQuestion, ok := m.answers[attemptID]
	if !ok {
		byQuestion = make(map[uuid.UUID]*model.UserAnswer)
		m.answers[attemptID] = byQuestion
	}
	existing, ok := byQuestion[questionID]
	if !ok {
		existing = &model.UserAnswer{
			ID:         uuid.New(),
			AttemptID:  attemptID,
			QuestionID: questionID,
		}
		byQuestion[questionID] = existing
	}
	existing.IsDoubtful = !existing.IsDoubtful
	existing.UpdatedAt = time.Now()
	cp := *existing
	return &cp, nil
}

func (m *memStore) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.UserAnswer, error) {
	var out []model.UserAnswer
	for _, ans := range m.answers[attemptID] {
		out = append(out, *ans)
	}
	return out, nil
}

func (m *memStore) CountForSection(ctx context.Context, attemptID, sectionID uuid.UUID) (int, int, error) {
	answered, doubtful := 0, 0
	for _, q := range m.questions[sectionID] {
		ans, ok := m.answers[attemptID][q.ID]
		if !ok {
			continue
		}
		if ans.SelectedChoiceID != nil || ans.EssayAnswer != nil {
			answered++
		}
		if ans.IsDoubtful {
			doubtful++
		}
	}
	return answered, doubtful, nil
}

// attemptStoreAdapter maps the interface's GetByID onto the attempt map,
// since memStore.GetByID already serves tryouts.
type attemptStoreAdapter struct {
	*memStore
}

func (a attemptStoreAdapter) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return a.GetAttemptByID(id)
}

// allowAll is an EligibilityPolicy that admits everyone.
type allowAll struct{}

func (allowAll) CanStart(ctx context.Context, userID uuid.UUID, tryout *model.Tryout) error {
	return nil
}

// ─── Fixture ───────────────────────────────────────────────────────────────

type fixture struct {
	store  *memStore
	svc    *AttemptService
	userID uuid.UUID
	tryout *model.Tryout
	clock  time.Time
}

// newFixture builds a published two-section tryout (30 and 20 minutes, two
// questions each) and a service whose clock the test controls.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemStore()
	f := &fixture{
		store:  store,
		userID: uuid.New(),
		clock:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	tryoutID := uuid.New()
	sections := []model.Section{
		{ID: uuid.New(), TryoutID: tryoutID, Name: "Penalaran Umum", DurationMinutes: 30, OrderNum: 1},
		{ID: uuid.New(), TryoutID: tryoutID, Name: "Pengetahuan Kuantitatif", DurationMinutes: 20, OrderNum: 2},
	}
	f.tryout = &model.Tryout{
		ID:       tryoutID,
		Title:    "TO UTBK 1",
		Status:   model.TryoutStatusPublished,
		Sections: sections,
	}
	store.tryouts[tryoutID] = f.tryout

	for _, s := range sections {
		store.questions[s.ID] = []model.Question{mcQuestion(0, 4), mcQuestion(1, 4)}
	}

	f.svc = NewAttemptService(store, attemptStoreAdapter{store}, store, store, store, allowAll{}, zerolog.Nop())
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func (f *fixture) answerCorrectly(t *testing.T, attemptID uuid.UUID, sectionID uuid.UUID) {
	t.Helper()
	for _, q := range f.store.questions[sectionID] {
		var correctID uuid.UUID
		for _, c := range q.Choices {
			if c.IsCorrect {
				correctID = c.ID
			}
		}
		_, err := f.svc.SaveAnswer(context.Background(), f.userID, attemptID, &model.SaveAnswerRequest{
			QuestionID:       q.ID,
			SelectedChoiceID: &correctID,
		})
		if err != nil {
			t.Fatalf("SaveAnswer: %v", err)
		}
	}
}

// ─── Tests ─────────────────────────────────────────────────────────────────

func TestStartAttemptOpensFirstSection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	attempt, err := f.svc.StartAttempt(ctx, f.userID, f.tryout.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	wantOverall := f.clock.Add(50 * time.Minute)
	if !attempt.Deadline.Equal(wantOverall) {
		t.Errorf("overall deadline = %v, want %v", attempt.Deadline, wantOverall)
	}

	sa, err := f.store.GetSectionAttempt(ctx, attempt.ID, f.tryout.Sections[0].ID)
	if err != nil {
		t.Fatalf("first section attempt missing: %v", err)
	}
	if want := f.clock.Add(30 * time.Minute); !sa.Deadline.Equal(want) {
		t.Errorf("first section deadline = %v, want %v", sa.Deadline, want)
	}
	if sa.Status != model.AttemptStatusOngoing {
		t.Errorf("first section status = %s, want ONGOING", sa.Status)
	}
}

func TestStartAttemptIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.StartAttempt(ctx, f.userID, f.tryout.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	f.advance(5 * time.Minute)
	second, err := f.svc.StartAttempt(ctx, f.userID, f.tryout.ID)
	if err != nil {
		t.Fatalf("second StartAttempt: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("resume created a new attempt")
	}
	if !second.Deadline.Equal(first.Deadline) {
		t.Errorf("resume moved the deadline: %v -> %v", first.Deadline, second.Deadline)
	}
	if len(f.store.attempts) != 1 {
		t.Errorf("attempt rows = %d, want 1", len(f.store.attempts))
	}
}

// racingAttemptStore simulates a rival request committing between the
// existence check and the insert: the first lookup misses, the insert hits
// the unique constraint after the rival's row has landed.
type racingAttemptStore struct {
	attemptStoreAdapter
	winner        *model.Attempt
	winnerSection *model.SectionAttempt
	revokeWinner  bool
	lookups       int
}

func (r *racingAttemptStore) GetByUserAndTryout(ctx context.Context, userID, tryoutID uuid.UUID) (*model.Attempt, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, pgx.ErrNoRows
	}
	return r.attemptStoreAdapter.GetByUserAndTryout(ctx, userID, tryoutID)
}

func (r *racingAttemptStore) CreateWithFirstSection(ctx context.Context, a *model.Attempt, sa *model.SectionAttempt) error {
	if err := r.attemptStoreAdapter.CreateWithFirstSection(ctx, r.winner, r.winnerSection); err != nil {
		return err
	}
	if r.revokeWinner {
		r.memStore.attempts[r.winner.ID].IsRevoked = true
	}
	return pgx.ErrNoRows
}

func (f *fixture) raceAgainstWinner(revoked bool) *racingAttemptStore {
	racing := &racingAttemptStore{
		attemptStoreAdapter: attemptStoreAdapter{f.store},
		winner: &model.Attempt{
			UserID:    f.userID,
			TryoutID:  f.tryout.ID,
			StartedAt: f.clock,
			Deadline:  f.clock.Add(50 * time.Minute),
		},
		winnerSection: &model.SectionAttempt{
			SectionID: f.tryout.Sections[0].ID,
			StartedAt: f.clock,
			Deadline:  f.clock.Add(30 * time.Minute),
		},
		revokeWinner: revoked,
	}
	f.svc.attempts = racing
	return racing
}

func TestStartAttemptConvergesOnConcurrentWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	racing := f.raceAgainstWinner(false)

	attempt, err := f.svc.StartAttempt(ctx, f.userID, f.tryout.ID)
	if err != nil {
		t.Fatalf("StartAttempt under race: %v", err)
	}
	if attempt.ID != racing.winner.ID {
		t.Errorf("returned attempt %s, want the rival's row %s", attempt.ID, racing.winner.ID)
	}
	if len(f.store.attempts) != 1 {
		t.Errorf("attempt rows = %d, want 1", len(f.store.attempts))
	}
	if !attempt.Deadline.Equal(racing.winner.Deadline) {
		t.Errorf("deadline = %v, want the rival's %v", attempt.Deadline, racing.winner.Deadline)
	}
}

func TestStartAttemptConcurrentWinnerRevoked(t *testing.T) {
	f := newFixture(t)
	f.raceAgainstWinner(true)

	_, err := f.svc.StartAttempt(context.Background(), f.userID, f.tryout.ID)
	if !errors.Is(err, ErrAttemptRevoked) {
		t.Fatalf("err = %v, want ErrAttemptRevoked", err)
	}
	if len(f.store.attempts) != 1 {
		t.Errorf("attempt rows = %d, want 1", len(f.store.attempts))
	}
}

func TestStartAttemptRejectsDraftTryout(t *testing.T) {
	f := newFixture(t)
	f.tryout.Status = model.TryoutStatusDraft

	_, err := f.svc.StartAttempt(context.Background(), f.userID, f.tryout.ID)
	se, ok := AsStateError(err)
	if !ok || se.Reason != ReasonTryoutNotAvailable {
		t.Fatalf("err = %v, want StateError(TRYOUT_NOT_AVAILABLE)", err)
	}
}

func TestStartAttemptRejectsEmptyTryout(t *testing.T) {
	f := newFixture(t)
	f.tryout.Sections = nil

	_, err := f.svc.StartAttempt(context.Background(), f.userID, f.tryout.ID)
	se, ok := AsStateError(err)
	if !ok || se.Reason != ReasonNoSections {
		t.Fatalf("err = %v, want StateError(TRYOUT_EMPTY)", err)
	}
}

func TestStartSectionRequiresPreviousFinished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	attempt, err := f.svc.StartAttempt(ctx, f.userID, f.tryout.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	_, err = f.svc.StartSection(ctx, f.userID, attempt.ID, f.tryout.Sections[1].ID)
	se, ok := AsStateError(err)
	if !ok || se.Reason != ReasonPreviousUnfinished {
		t.Fatalf("err = %v, want StateError(PREVIOUS_SECTION_UNFINISHED)", err)
	}
}

func TestStartSectionIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	attempt, _ := f.svc.StartAttempt(ctx, f.userID, f.tryout.ID)

	first, err := f.svc.StartSection(ctx, f.userID, attempt.ID, f.tryout.Sections[0].ID)
	if err != nil {
		t.Fatalf("StartSection: %v", err)
	}
	second, err := f.svc.StartSection(ctx, f.userID, attempt.ID, f.tryout.Sections[0].ID)
	if err != nil {
		t.Fatalf("repeat StartSection: %v", err)
	}
	if second.ID != first.ID || !second.Deadline.Equal(first.Deadline) {
		t.Errorf("repeat StartSection changed the row")
	}
}

func TestSaveAnswerRejectedAfterSectionDeadline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	attempt, _ := f.svc.StartAttempt(ctx, f.userID, f.tryout.ID)
	q := f.store.questions[f.tryout.Sections[0].ID][0]

	f.advance(31 * time.Minute) // past the 30-minute first section

	_, err := f.svc.SaveAnswer(ctx, f.userID, attempt.ID, &model.SaveAnswerRequest{
		QuestionID:       q.ID,
		SelectedChoiceID: &q.Choices[0].ID,
	})
	se, ok := AsStateError(err)
	if !ok || se.Reason != ReasonDeadlinePassed {
		t.Fatalf("err = %v, want StateError(DEADLINE_PASSED)", err)
	}

	// The rejected save must not have written anything.
	if len(f.store.answers[attempt.ID]) != 0 {
		t.Errorf("rejected save left %d answer rows", len(f.store.answers[attempt.ID]))
	}
}

func TestSaveAnswerUpsertsSingleRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	attempt, _ := f.svc.StartAttempt(ctx, f.userID, f.tryout.ID)
	q := f.store.questions[f.tryout.Sections[0].ID][0]

	if _, err := f.svc.SaveAnswer(ctx, f.userID, attempt.ID, &model.SaveAnswerRequest{
		QuestionID:       q.ID,
		SelectedChoiceID: &q.Choices[0].ID,
	}); err != nil {
		t.Fatalf("first SaveAnswer: %v", err)
	}
	// Flag the question so the resave can be checked for clobbering it.
	if _, err := f.svc.ToggleDoubtful(ctx, f.userID, attempt.ID, q.ID); err != nil {
		t.Fatalf("ToggleDoubtful: %v", err)
	}

	if _, err := f.svc.SaveAnswer(ctx, f.userID, attempt.ID, &model.SaveAnswerRequest{
		QuestionID:       q.ID,
		SelectedChoiceID: &q.Choices[1].ID,
	}); err != nil {
		t.Fatalf("second SaveAnswer: %v", err)
	}

	rows := f.store.answers[attempt.ID]
	if len(rows) != 1 {
		t.Fatalf("answer rows = %d, want 1", len(rows))
	}
	stored := rows[q.ID]
	if stored.SelectedChoiceID == nil || *stored.SelectedChoiceID != q.Choices[1].ID {
		t.Errorf("stored choice = %v, want the last-written one", stored.SelectedChoiceID)
	}
	if !stored.IsDoubtful {
		t.Errorf("resave cleared is_doubtful")
	}
}

func TestToggleDoubtfulPreservesAnswer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	attempt, _ := f.svc.StartAttempt(ctx, f.userID, f.tryout.ID)
	q := f.store.questions[f.tryout.Sections[0].ID][0]

	if _, err := f.svc.SaveAnswer(ctx, f.userID, attempt.ID, &model.SaveAnswerRequest{
		QuestionID:       q.ID,
		SelectedChoiceID: &q.Choices[2].ID,
	}); err != nil {
		t.Fatalf("SaveAnswer: %v", err)
	}

	flagged, err := f.svc.ToggleDoubtful(ctx, f.userID, attempt.ID, q.ID)
	if err != nil {
		t.Fatalf("ToggleDoubtful: %v", err)
	}
	if !flagged.IsDoubtful {
		t.Errorf("first toggle: is_doubtful = false, want true")
	}
	if flagged.SelectedChoiceID == nil || *flagged.SelectedChoiceID != q.Choices[2].ID {
		t.Errorf("toggle clobbered the recorded answer")
	}

	unflagged, err := f.svc.ToggleDoubtful(ctx, f.userID, attempt.ID, q.ID)
	if err != nil {
		t.Fatalf("second ToggleDoubtful: %v", err)
	}
	if unflagged.IsDoubtful {
		t.Errorf("second toggle: is_doubtful = true, want false")
	}
}

func TestSubmitSectionOpensNextAnchoredOnDeadline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	attempt, _ := f.svc.StartAttempt(ctx, f.userID, f.tryout.ID)
	firstDeadline := f.clock.Add(30 * time.Minute)

	// Finish early at +10 minutes. The next section still anchors on the
	// first section's deadline, so finishing early banks no time.
	f.advance(10 * time.Minute)
	result, err := f.svc.SubmitSection(ctx, f.userID, attempt.ID, f.tryout.Sections[0].ID)
	if err != nil {
		t.Fatalf("SubmitSection: %v", err)
	}
	if result.TryoutCompleted {
		t.Fatalf("first submit finalized the attempt")
	}
	if result.NextSectionID == nil || *result.NextSectionID != f.tryout.Sections[1].ID {
		t.Fatalf("next section = %v, want %v", result.NextSectionID, f.tryout.Sections[1].ID)
	}

	next, err := f.store.GetSectionAttempt(ctx, attempt.ID, f.tryout.Sections[1].ID)
	if err != nil {
		t.Fatalf("next section attempt missing: %v", err)
	}
	if want := firstDeadline.Add(20 * time.Minute); !next.Deadline.Equal(want) {
		t.Errorf("next deadline = %v, want %v (anchored on previous deadline)", next.Deadline, want)
	}
}

func TestSubmitLastSectionFinalizesWithScores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	attempt, _ := f.svc.StartAttempt(ctx, f.userID, f.tryout.ID)
	f.answerCorrectly(t, attempt.ID, f.tryout.Sections[0].ID)

	if _, err := f.svc.SubmitSection(ctx, f.userID, attempt.ID, f.tryout.Sections[0].ID); err != nil {
		t.Fatalf("submit first: %v", err)
	}
	f.answerCorrectly(t, attempt.ID, f.tryout.Sections[1].ID)

	result, err := f.svc.SubmitSection(ctx, f.userID, attempt.ID, f.tryout.Sections[1].ID)
	if err != nil {
		t.Fatalf("submit last: %v", err)
	}
	if !result.TryoutCompleted {
		t.Fatalf("last submit did not complete the tryout")
	}
	if result.Score == nil || *result.Score != 1000 {
		t.Errorf("score = %v, want 1000", result.Score)
	}

	stored := f.store.getAttempt(attempt.ID)
	if stored.Status != model.AttemptStatusFinished {
		t.Errorf("stored status = %s, want FINISHED", stored.Status)
	}
	if stored.CompletedAt == nil {
		t.Errorf("completed_at not set")
	}
}

func TestSubmitFinishedSectionRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	attempt, _ := f.svc.StartAttempt(ctx, f.userID, f.tryout.ID)
	if _, err := f.svc.SubmitSection(ctx, f.userID, attempt.ID, f.tryout.Sections[0].ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err := f.svc.SubmitSection(ctx, f.userID, attempt.ID, f.tryout.Sections[0].ID)
	se, ok := AsStateError(err)
	if !ok || se.Reason != ReasonSectionNotActive {
		t.Fatalf("err = %v, want StateError(SECTION_NOT_ACTIVE)", err)
	}
}

func TestLazyExpiryFinalizesOnAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	attempt, _ := f.svc.StartAttempt(ctx, f.userID, f.tryout.ID)
	f.answerCorrectly(t, attempt.ID, f.tryout.Sections[0].ID)

	// Walk past the overall deadline without submitting anything.
	f.advance(51 * time.Minute)

	// Any read reconciles: the resumed attempt comes back finished and scored.
	resumed, err := f.svc.StartAttempt(ctx, f.userID, f.tryout.ID)
	if err != nil {
		t.Fatalf("resume after expiry: %v", err)
	}
	if resumed.Status != model.AttemptStatusFinished {
		t.Errorf("status = %s, want FINISHED", resumed.Status)
	}
	if resumed.Score == nil {
		t.Fatalf("expired attempt has no score")
	}
	// Only the first section attempt exists and it was fully correct.
	if *resumed.Score != 1000 {
		t.Errorf("score = %d, want 1000", *resumed.Score)
	}

	// Writes after expiry are rejected as finished.
	q := f.store.questions[f.tryout.Sections[0].ID][0]
	_, err = f.svc.SaveAnswer(ctx, f.userID, attempt.ID, &model.SaveAnswerRequest{
		QuestionID:       q.ID,
		SelectedChoiceID: &q.Choices[0].ID,
	})
	se, ok := AsStateError(err)
	if !ok || se.Reason != ReasonAttemptFinished {
		t.Fatalf("post-expiry save err = %v, want StateError(ATTEMPT_FINISHED)", err)
	}
}

func TestRevokedAttemptRejectsEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	attempt, _ := f.svc.StartAttempt(ctx, f.userID, f.tryout.ID)
	if err := f.svc.Revoke(ctx, attempt.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if _, err := f.svc.StartAttempt(ctx, f.userID, f.tryout.ID); !errors.Is(err, ErrAttemptRevoked) {
		t.Errorf("StartAttempt err = %v, want ErrAttemptRevoked", err)
	}
	q := f.store.questions[f.tryout.Sections[0].ID][0]
	if _, err := f.svc.SaveAnswer(ctx, f.userID, attempt.ID, &model.SaveAnswerRequest{
		QuestionID:       q.ID,
		SelectedChoiceID: &q.Choices[0].ID,
	}); !errors.Is(err, ErrAttemptRevoked) {
		t.Errorf("SaveAnswer err = %v, want ErrAttemptRevoked", err)
	}
}

func TestForeignAttemptReportedNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	attempt, _ := f.svc.StartAttempt(ctx, f.userID, f.tryout.ID)

	stranger := uuid.New()
	_, err := f.svc.StartSection(ctx, stranger, attempt.ID, f.tryout.Sections[0].ID)
	if !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("err = %v, want ErrAttemptNotFound", err)
	}
}

func TestPremiumPolicyGatesPremiumTryouts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.tryout.IsPremium = true
	freeUser := &model.User{ID: f.userID, IsPremium: false}
	f.svc.policy = NewPremiumPolicy(userStoreFunc(func(id uuid.UUID) (*model.User, error) {
		if id == freeUser.ID {
			return freeUser, nil
		}
		return nil, pgx.ErrNoRows
	}))

	if _, err := f.svc.StartAttempt(ctx, f.userID, f.tryout.ID); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("err = %v, want ErrNotEligible", err)
	}

	freeUser.IsPremium = true
	if _, err := f.svc.StartAttempt(ctx, f.userID, f.tryout.ID); err != nil {
		t.Fatalf("premium user rejected: %v", err)
	}
}

func TestGetAttemptViewProgressAndCurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	attempt, _ := f.svc.StartAttempt(ctx, f.userID, f.tryout.ID)
	q := f.store.questions[f.tryout.Sections[0].ID][0]
	if _, err := f.svc.SaveAnswer(ctx, f.userID, attempt.ID, &model.SaveAnswerRequest{
		QuestionID:       q.ID,
		SelectedChoiceID: &q.Choices[0].ID,
	}); err != nil {
		t.Fatalf("SaveAnswer: %v", err)
	}

	view, err := f.svc.GetAttemptView(ctx, f.userID, f.tryout.ID)
	if err != nil {
		t.Fatalf("GetAttemptView: %v", err)
	}
	if len(view.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(view.Sections))
	}
	if view.Sections[0].Answered != 1 || view.Sections[0].Total != 2 {
		t.Errorf("section progress = %d/%d, want 1/2", view.Sections[0].Answered, view.Sections[0].Total)
	}
	if view.Current == nil {
		t.Fatalf("no current section in view")
	}
	if view.Current.SectionAttempt.SectionID != f.tryout.Sections[0].ID {
		t.Errorf("current section mismatch")
	}
	if len(view.Current.Questions) != 2 {
		t.Errorf("current questions = %d, want 2", len(view.Current.Questions))
	}
}

func TestGetReviewOnlyAfterSectionFinished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	attempt, _ := f.svc.StartAttempt(ctx, f.userID, f.tryout.ID)
	sectionID := f.tryout.Sections[0].ID

	_, err := f.svc.GetReview(ctx, f.userID, attempt.ID, sectionID)
	se, ok := AsStateError(err)
	if !ok || se.Reason != ReasonSectionNotFinished {
		t.Fatalf("err = %v, want StateError(SECTION_NOT_FINISHED)", err)
	}

	f.answerCorrectly(t, attempt.ID, sectionID)
	if _, err := f.svc.SubmitSection(ctx, f.userID, attempt.ID, sectionID); err != nil {
		t.Fatalf("SubmitSection: %v", err)
	}

	review, err := f.svc.GetReview(ctx, f.userID, attempt.ID, sectionID)
	if err != nil {
		t.Fatalf("GetReview: %v", err)
	}
	if len(review.Items) != 2 {
		t.Fatalf("review items = %d, want 2", len(review.Items))
	}
	for _, item := range review.Items {
		if !item.Correct {
			t.Errorf("question %s graded incorrect, want correct", item.Question.ID)
		}
	}
}

// userStoreFunc adapts a function to the UserStore interface.
type userStoreFunc func(id uuid.UUID) (*model.User, error)

func (f userStoreFunc) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return f(id)
}
