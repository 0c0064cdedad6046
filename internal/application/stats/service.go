package stats

import (
	"context"
	"fmt"

	"github.com/fcl-miniapp/internal/domain"
)

const (
	DefaultRecentLimit = 20
	MaxRecentLimit     = 100
)

type Service interface {
	Snapshot(ctx context.Context, recentLimit int) (*domain.StatsSnapshot, error)
}

type ledgerReader interface {
	Count(ctx context.Context) (int, error)
	CountDistinctUsers(ctx context.Context) (int, error)
	GroupCount(ctx context.Context, by domain.GroupBy) ([]domain.GroupCount, error)
	Recent(ctx context.Context, limit int) ([]domain.RegistrationSummary, error)
}

// snapshotReader is implemented by ledgers that can produce every aggregate
// from one consistent read.
type snapshotReader interface {
	Snapshot(ctx context.Context, recentLimit int) (*domain.StatsSnapshot, error)
}

type service struct {
	ledger ledgerReader
}

func NewService(ledger ledgerReader) Service {
	return &service{ledger: ledger}
}

// ClampLimit maps a requested recent-list size into [1, MaxRecentLimit];
// non-positive values select the default.
func ClampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultRecentLimit
	case n > MaxRecentLimit:
		return MaxRecentLimit
	default:
		return n
	}
}

func (s *service) Snapshot(ctx context.Context, recentLimit int) (*domain.StatsSnapshot, error) {
	limit := ClampLimit(recentLimit)
	if sr, ok := s.ledger.(snapshotReader); ok {
		snap, err := sr.Snapshot(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("stats snapshot: %w: %w", domain.ErrUnavailable, err)
		}
		snap.ByDiscipline = nonNil(snap.ByDiscipline)
		snap.ByMode = nonNil(snap.ByMode)
		snap.Recent = nonNilSummaries(snap.Recent)
		return snap, nil
	}

	total, err := s.ledger.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w: %w", domain.ErrUnavailable, err)
	}
	users, err := s.ledger.CountDistinctUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w: %w", domain.ErrUnavailable, err)
	}
	byDiscipline, err := s.ledger.GroupCount(ctx, domain.GroupByDiscipline)
	if err != nil {
		return nil, fmt.Errorf("group by discipline: %w: %w", domain.ErrUnavailable, err)
	}
	byMode, err := s.ledger.GroupCount(ctx, domain.GroupByMode)
	if err != nil {
		return nil, fmt.Errorf("group by mode: %w: %w", domain.ErrUnavailable, err)
	}
	recent, err := s.ledger.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent registrations: %w: %w", domain.ErrUnavailable, err)
	}
	return &domain.StatsSnapshot{
		Total:         total,
		DistinctUsers: users,
		ByDiscipline:  nonNil(byDiscipline),
		ByMode:        nonNil(byMode),
		Recent:        nonNilSummaries(recent),
	}, nil
}

func nonNil(rows []domain.GroupCount) []domain.GroupCount {
	if rows == nil {
		return []domain.GroupCount{}
	}
	return rows
}

func nonNilSummaries(rows []domain.RegistrationSummary) []domain.RegistrationSummary {
	if rows == nil {
		return []domain.RegistrationSummary{}
	}
	return rows
}
