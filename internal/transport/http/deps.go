package http

import (
	"context"
	"time"

	"github.com/fcl-miniapp/internal/domain"
)

// DraftStore is the minimal interface the router requires from a draft cache.
type DraftStore interface {
	Get(ctx context.Context, userID int64) (*domain.DraftDocument, error)
	Put(ctx context.Context, userID int64, d domain.DraftDocument, ttl time.Duration) error
	Delete(ctx context.Context, userID int64) error
}

// Ledger is the minimal interface the router requires from a registration ledger.
// Both the Postgres and DynamoDB repositories satisfy it.
type Ledger interface {
	Append(ctx context.Context, reg *domain.Registration) (int64, error)
	Count(ctx context.Context) (int, error)
	CountDistinctUsers(ctx context.Context) (int, error)
	GroupCount(ctx context.Context, by domain.GroupBy) ([]domain.GroupCount, error)
	Recent(ctx context.Context, limit int) ([]domain.RegistrationSummary, error)
}

// IdentityVerifier validates the init data credential on every user request.
type IdentityVerifier interface {
	Verify(initData string) (domain.VerifiedIdentity, error)
}

// Notifier dispatches confirmation messages without blocking.
type Notifier interface {
	Notify(recipientID int64, text string)
}
