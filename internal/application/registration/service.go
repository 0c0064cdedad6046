package registration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fcl-miniapp/internal/application/notification"
	"github.com/fcl-miniapp/internal/domain"
	"github.com/fcl-miniapp/internal/infrastructure/metrics"
)

// DefaultDraftTTL is how long an untouched draft survives.
const DefaultDraftTTL = 7 * 24 * time.Hour

// SubmitRequest carries a verified submit call. A nil Document means the
// request had no body and the stored draft is committed instead.
type SubmitRequest struct {
	Identity domain.VerifiedIdentity
	Document *domain.DraftDocument
	InitData string
}

type Service interface {
	// GetDraft returns the stored draft, or nil when none is available.
	// Store failures degrade to nil.
	GetDraft(ctx context.Context, userID int64) *domain.DraftDocument
	SaveDraft(ctx context.Context, userID int64, d domain.DraftDocument) (domain.DraftDocument, error)
	Submit(ctx context.Context, req SubmitRequest) (*domain.Registration, error)
}

type draftStore interface {
	Get(ctx context.Context, userID int64) (*domain.DraftDocument, error)
	Put(ctx context.Context, userID int64, d domain.DraftDocument, ttl time.Duration) error
	Delete(ctx context.Context, userID int64) error
}

type ledger interface {
	Append(ctx context.Context, reg *domain.Registration) (int64, error)
}

type notifier interface {
	Notify(recipientID int64, text string)
}

type recorder interface {
	IncrementDraftSaved()
	IncrementSubmission(outcome string)
	ObserveLedgerAppend(start time.Time)
}

type noopRecorder struct{}

func (noopRecorder) IncrementDraftSaved()          {}
func (noopRecorder) IncrementSubmission(string)    {}
func (noopRecorder) ObserveLedgerAppend(time.Time) {}

// ServiceDeps groups the collaborators of the registration service.
type ServiceDeps struct {
	Drafts   draftStore
	Ledger   ledger
	Notifier notifier
	Metrics  recorder
	Logger   *slog.Logger
	DraftTTL time.Duration
	Now      func() time.Time
}

type service struct {
	drafts   draftStore
	ledger   ledger
	notifier notifier
	metrics  recorder
	logger   *slog.Logger
	draftTTL time.Duration
	now      func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		drafts:   deps.Drafts,
		ledger:   deps.Ledger,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		draftTTL: deps.DraftTTL,
		now:      deps.Now,
	}
	if s.metrics == nil {
		s.metrics = noopRecorder{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.draftTTL <= 0 {
		s.draftTTL = DefaultDraftTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *service) GetDraft(ctx context.Context, userID int64) *domain.DraftDocument {
	d, err := s.drafts.Get(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "draft read failed, treating as absent", "user_id", userID, "err", err)
		return nil
	}
	return d
}

func (s *service) SaveDraft(ctx context.Context, userID int64, d domain.DraftDocument) (domain.DraftDocument, error) {
	normalized := domain.Normalize(d)
	if err := s.drafts.Put(ctx, userID, normalized, s.draftTTL); err != nil {
		return domain.DraftDocument{}, fmt.Errorf("save draft: %w", err)
	}
	s.metrics.IncrementDraftSaved()
	return normalized, nil
}

// Submit commits a registration. Validation runs on the document as
// submitted; the ledger receives the normalized form. Once the ledger append
// succeeds the commit is final: draft cleanup and notification failures are
// logged only.
func (s *service) Submit(ctx context.Context, req SubmitRequest) (*domain.Registration, error) {
	userID := req.Identity.ID

	var doc domain.DraftDocument
	if req.Document != nil {
		doc = *req.Document
	} else if stored := s.GetDraft(ctx, userID); stored != nil {
		doc = *stored
	}

	if err := domain.ValidateCommit(doc); err != nil {
		s.metrics.IncrementSubmission(metrics.OutcomeRejected)
		return nil, err
	}
	doc = domain.Normalize(doc)

	now := s.now().UTC()
	reg := &domain.Registration{
		UserID:         userID,
		Username:       req.Identity.Username,
		FirstName:      req.Identity.FirstName,
		LastName:       req.Identity.LastName,
		Discipline:     doc.Discipline,
		Mode:           doc.Mode,
		Data:           doc.Data,
		CreatedAt:      now,
		SubmittedAt:    now,
		SourceInitData: req.InitData,
	}

	start := time.Now()
	id, err := s.ledger.Append(ctx, reg)
	s.metrics.ObserveLedgerAppend(start)
	if err != nil {
		s.metrics.IncrementSubmission(metrics.OutcomeFailed)
		return nil, fmt.Errorf("append registration: %w", err)
	}
	reg.ID = id
	s.metrics.IncrementSubmission(metrics.OutcomeCommitted)

	if err := s.drafts.Delete(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "draft delete after commit failed", "user_id", userID, "registration_id", id, "err", err)
	}

	s.notifier.Notify(userID, notification.BuildMessage(reg))
	s.logger.InfoContext(ctx, "registration committed",
		"registration_id", id, "user_id", userID,
		"discipline", reg.Discipline.String(), "mode", reg.Mode.String())
	return reg, nil
}
