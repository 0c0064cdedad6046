package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/fcl-miniapp/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const draftKeyPrefix = "draft:"

type kv interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// DraftStore keeps one JSON-encoded draft per user under a TTL.
type DraftStore struct {
	client kv
	logger *slog.Logger
}

func NewDraftStore(client kv, logger *slog.Logger) *DraftStore {
	return &DraftStore{client: client, logger: logger}
}

func draftKey(userID int64) string {
	return draftKeyPrefix + strconv.FormatInt(userID, 10)
}

// Get returns the stored draft, or nil when none exists. Content that no
// longer decodes is reported as absent.
func (s *DraftStore) Get(ctx context.Context, userID int64) (*domain.DraftDocument, error) {
	raw, err := s.client.Get(ctx, draftKey(userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	var d domain.DraftDocument
	if err := json.Unmarshal(raw, &d); err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable draft", "user_id", userID, "err", err)
		return nil, nil
	}
	return &d, nil
}

func (s *DraftStore) Put(ctx context.Context, userID int64, d domain.DraftDocument, ttl time.Duration) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	if err := s.client.Set(ctx, draftKey(userID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("put draft: %w", err)
	}
	return nil
}

func (s *DraftStore) Delete(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, draftKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}
