package registration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/fcl-miniapp/internal/domain"
	"github.com/fcl-miniapp/internal/infrastructure/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

// callLog records the order in which collaborators are invoked.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

type mockDraftStore struct {
	mock.Mock
	log *callLog
}

func (m *mockDraftStore) Get(ctx context.Context, userID int64) (*domain.DraftDocument, error) {
	args := m.Called(ctx, userID)
	if d, _ := args.Get(0).(*domain.DraftDocument); d != nil {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockDraftStore) Put(ctx context.Context, userID int64, d domain.DraftDocument, ttl time.Duration) error {
	return m.Called(ctx, userID, d, ttl).Error(0)
}
func (m *mockDraftStore) Delete(ctx context.Context, userID int64) error {
	if m.log != nil {
		m.log.add("draft.delete")
	}
	return m.Called(ctx, userID).Error(0)
}

type mockLedger struct {
	mock.Mock
	log *callLog
}

func (m *mockLedger) Append(ctx context.Context, reg *domain.Registration) (int64, error) {
	if m.log != nil {
		m.log.add("ledger.append")
	}
	args := m.Called(ctx, reg)
	return args.Get(0).(int64), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
	log *callLog
}

func (m *mockNotifier) Notify(recipientID int64, text string) {
	if m.log != nil {
		m.log.add("notify")
	}
	m.Called(recipientID, text)
}

type fakeRecorder struct {
	drafts   int
	outcomes []string
	observed int
}

func (f *fakeRecorder) IncrementDraftSaved()            { f.drafts++ }
func (f *fakeRecorder) IncrementSubmission(o string)    { f.outcomes = append(f.outcomes, o) }
func (f *fakeRecorder) ObserveLedgerAppend(_ time.Time) { f.observed++ }

// --- helpers ---

var fixedNow = time.Date(2026, 5, 10, 18, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	drafts   *mockDraftStore
	ledger   *mockLedger
	notifier *mockNotifier
	rec      *fakeRecorder
	log      *callLog
	svc      Service
}

func newFixture() *fixture {
	log := &callLog{}
	f := &fixture{
		drafts:   &mockDraftStore{log: log},
		ledger:   &mockLedger{log: log},
		notifier: &mockNotifier{log: log},
		rec:      &fakeRecorder{},
		log:      log,
	}
	f.svc = NewService(ServiceDeps{
		Drafts:   f.drafts,
		Ledger:   f.ledger,
		Notifier: f.notifier,
		Metrics:  f.rec,
		Logger:   discardLogger(),
		DraftTTL: time.Hour,
		Now:      func() time.Time { return fixedNow },
	})
	return f
}

func identity() domain.VerifiedIdentity {
	u := "kro"
	return domain.VerifiedIdentity{ID: 42, Username: &u}
}

// --- draft tests ---

func TestGetDraft_Present(t *testing.T) {
	f := newFixture()
	stored := &domain.DraftDocument{Discipline: domain.DisciplineCS2, Mode: domain.ModeTeam, Data: map[string]any{}}
	f.drafts.On("Get", mock.Anything, int64(42)).Return(stored, nil)

	assert.Equal(t, stored, f.svc.GetDraft(context.Background(), 42))
}

func TestGetDraft_StoreErrorDegradesToNil(t *testing.T) {
	f := newFixture()
	f.drafts.On("Get", mock.Anything, int64(42)).Return(nil, errors.New("connection refused"))

	assert.Nil(t, f.svc.GetDraft(context.Background(), 42))
}

func TestSaveDraft_NormalizesAndUsesTTL(t *testing.T) {
	f := newFixture()
	want := domain.DraftDocument{Discipline: domain.DisciplineCS2, Mode: domain.ModeTeam, Data: map[string]any{}}
	f.drafts.On("Put", mock.Anything, int64(42), want, time.Hour).Return(nil)

	got, err := f.svc.SaveDraft(context.Background(), 42, domain.DraftDocument{Discipline: domain.DisciplineCS2})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, f.rec.drafts)
	f.drafts.AssertExpectations(t)
}

func TestSaveDraft_FC26ForcesIndividual(t *testing.T) {
	f := newFixture()
	f.drafts.On("Put", mock.Anything, int64(42), mock.MatchedBy(func(d domain.DraftDocument) bool {
		return d.Mode == domain.ModeIndividual
	}), time.Hour).Return(nil)

	got, err := f.svc.SaveDraft(context.Background(), 42, domain.DraftDocument{Discipline: domain.DisciplineFC26, Mode: domain.ModeTeam})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeIndividual, got.Mode)
}

func TestSaveDraft_StoreError(t *testing.T) {
	f := newFixture()
	f.drafts.On("Put", mock.Anything, int64(42), mock.Anything, time.Hour).Return(errors.New("down"))

	_, err := f.svc.SaveDraft(context.Background(), 42, domain.DraftDocument{})
	require.Error(t, err)
	assert.Equal(t, 0, f.rec.drafts)
}

func TestNewService_DefaultTTL(t *testing.T) {
	svc := NewService(ServiceDeps{}).(*service)
	assert.Equal(t, DefaultDraftTTL, svc.draftTTL)
}

// --- submit tests ---

func TestSubmit_EffectsInOrder(t *testing.T) {
	f := newFixture()
	doc := &domain.DraftDocument{Discipline: domain.DisciplineCS2, Mode: domain.ModeTeam, Data: map[string]any{"team_players": []any{}}}
	f.ledger.On("Append", mock.Anything, mock.MatchedBy(func(r *domain.Registration) bool {
		return r.UserID == 42 && *r.Username == "kro" && r.Discipline == domain.DisciplineCS2 &&
			r.SubmittedAt.Equal(fixedNow) && r.SourceInitData == "raw-init-data"
	})).Return(int64(7), nil)
	f.drafts.On("Delete", mock.Anything, int64(42)).Return(nil)
	f.notifier.On("Notify", int64(42), mock.AnythingOfType("string")).Return()

	reg, err := f.svc.Submit(context.Background(), SubmitRequest{Identity: identity(), Document: doc, InitData: "raw-init-data"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), reg.ID)
	assert.Equal(t, []string{"ledger.append", "draft.delete", "notify"}, f.log.calls)
	assert.Equal(t, []string{metrics.OutcomeCommitted}, f.rec.outcomes)
	assert.Equal(t, 1, f.rec.observed)
	f.notifier.AssertNumberOfCalls(t, "Notify", 1)
}

func TestSubmit_DraftDeleteFailureKeepsCommit(t *testing.T) {
	f := newFixture()
	f.ledger.On("Append", mock.Anything, mock.Anything).Return(int64(3), nil)
	f.drafts.On("Delete", mock.Anything, int64(42)).Return(errors.New("redis down"))
	f.notifier.On("Notify", int64(42), mock.Anything).Return()

	reg, err := f.svc.Submit(context.Background(), SubmitRequest{
		Identity: identity(),
		Document: &domain.DraftDocument{Discipline: domain.DisciplineFC26, Mode: domain.ModeIndividual},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), reg.ID)
	f.notifier.AssertExpectations(t)
}

func TestSubmit_FC26TeamRejected(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Submit(context.Background(), SubmitRequest{
		Identity: identity(),
		Document: &domain.DraftDocument{Discipline: domain.DisciplineFC26, Mode: domain.ModeTeam, Data: map[string]any{}},
	})
	require.Error(t, err)
	assert.Equal(t, domain.ReasonFC26IndividualOnly, domain.ValidationReason(err))
	assert.Empty(t, f.log.calls)
	assert.Equal(t, []string{metrics.OutcomeRejected}, f.rec.outcomes)
}

func TestSubmit_UnsetModeIsIncomplete(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Submit(context.Background(), SubmitRequest{
		Identity: identity(),
		Document: &domain.DraftDocument{Discipline: domain.DisciplineCS2},
	})
	assert.True(t, errors.Is(err, domain.ErrIncompleteSubmission))
	f.ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestSubmit_EmptyBodyUsesStoredDraft(t *testing.T) {
	f := newFixture()
	stored := &domain.DraftDocument{Discipline: domain.DisciplineDOTA2, Mode: domain.ModeIndividual, Data: map[string]any{"nick": "x"}}
	f.drafts.On("Get", mock.Anything, int64(42)).Return(stored, nil)
	f.ledger.On("Append", mock.Anything, mock.MatchedBy(func(r *domain.Registration) bool {
		return r.Discipline == domain.DisciplineDOTA2 && r.Mode == domain.ModeIndividual && r.Data["nick"] == "x"
	})).Return(int64(1), nil)
	f.drafts.On("Delete", mock.Anything, int64(42)).Return(nil)
	f.notifier.On("Notify", int64(42), mock.Anything).Return()

	_, err := f.svc.Submit(context.Background(), SubmitRequest{Identity: identity()})
	require.NoError(t, err)
	f.ledger.AssertExpectations(t)
}

func TestSubmit_EmptyBodyWithoutDraftIsIncomplete(t *testing.T) {
	f := newFixture()
	f.drafts.On("Get", mock.Anything, int64(42)).Return(nil, nil)

	_, err := f.svc.Submit(context.Background(), SubmitRequest{Identity: identity()})
	assert.True(t, errors.Is(err, domain.ErrIncompleteSubmission))
}

func TestSubmit_LedgerFailurePropagates(t *testing.T) {
	f := newFixture()
	f.ledger.On("Append", mock.Anything, mock.Anything).Return(int64(0), errors.New("db unavailable"))

	_, err := f.svc.Submit(context.Background(), SubmitRequest{
		Identity: identity(),
		Document: &domain.DraftDocument{Discipline: domain.DisciplineCS2, Mode: domain.ModeTeam},
	})
	require.Error(t, err)
	assert.Equal(t, []string{"ledger.append"}, f.log.calls)
	assert.Equal(t, []string{metrics.OutcomeFailed}, f.rec.outcomes)
	f.drafts.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestSubmit_NormalizesDataBeforeAppend(t *testing.T) {
	f := newFixture()
	f.ledger.On("Append", mock.Anything, mock.MatchedBy(func(r *domain.Registration) bool {
		return r.Data != nil && len(r.Data) == 0
	})).Return(int64(9), nil)
	f.drafts.On("Delete", mock.Anything, int64(42)).Return(nil)
	f.notifier.On("Notify", int64(42), mock.Anything).Return()

	_, err := f.svc.Submit(context.Background(), SubmitRequest{
		Identity: identity(),
		Document: &domain.DraftDocument{Discipline: domain.DisciplineCS2, Mode: domain.ModeIndividual},
	})
	require.NoError(t, err)
	f.ledger.AssertExpectations(t)
}
