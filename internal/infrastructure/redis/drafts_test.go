package redis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/fcl-miniapp/internal/domain"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockKV struct{ mock.Mock }

func (m *mockKV) Get(ctx context.Context, key string) *goredis.StringCmd {
	args := m.Called(ctx, key)
	return goredis.NewStringResult(args.String(0), args.Error(1))
}

func (m *mockKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd {
	args := m.Called(ctx, key, value, expiration)
	return goredis.NewStatusResult("OK", args.Error(0))
}

func (m *mockKV) Del(ctx context.Context, keys ...string) *goredis.IntCmd {
	args := m.Called(ctx, keys)
	return goredis.NewIntResult(1, args.Error(0))
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestDraftStore_GetAbsent(t *testing.T) {
	kv := &mockKV{}
	kv.On("Get", mock.Anything, "draft:7").Return("", goredis.Nil)

	d, err := NewDraftStore(kv, discardLogger()).Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestDraftStore_GetDecodes(t *testing.T) {
	kv := &mockKV{}
	kv.On("Get", mock.Anything, "draft:7").
		Return(`{"discipline":"DOTA2","mode":"individual","data":{"nickname":"Miracle-"}}`, nil)

	d, err := NewDraftStore(kv, discardLogger()).Get(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, domain.DisciplineDOTA2, d.Discipline)
	assert.Equal(t, domain.ModeIndividual, d.Mode)
	assert.Equal(t, "Miracle-", d.Data["nickname"])
}

func TestDraftStore_GetMalformedIsAbsent(t *testing.T) {
	for _, raw := range []string{"{not json", `{"discipline":"QUAKE"}`, `{"mode":3}`} {
		kv := &mockKV{}
		kv.On("Get", mock.Anything, "draft:7").Return(raw, nil)

		d, err := NewDraftStore(kv, discardLogger()).Get(context.Background(), 7)
		require.NoError(t, err, raw)
		assert.Nil(t, d, raw)
	}
}

func TestDraftStore_GetError(t *testing.T) {
	kv := &mockKV{}
	kv.On("Get", mock.Anything, "draft:7").Return("", errors.New("connection refused"))

	_, err := NewDraftStore(kv, discardLogger()).Get(context.Background(), 7)
	assert.Error(t, err)
}

func TestDraftStore_PutUsesTTL(t *testing.T) {
	kv := &mockKV{}
	kv.On("Set", mock.Anything, "draft:7", mock.MatchedBy(func(v interface{}) bool {
		b, ok := v.([]byte)
		return ok && string(b) == `{"discipline":"CS2","mode":"team","data":{}}`
	}), time.Hour).Return(nil)

	err := NewDraftStore(kv, discardLogger()).Put(context.Background(), 7,
		domain.DraftDocument{Discipline: domain.DisciplineCS2, Mode: domain.ModeTeam}, time.Hour)
	require.NoError(t, err)
	kv.AssertExpectations(t)
}

func TestDraftStore_Delete(t *testing.T) {
	kv := &mockKV{}
	kv.On("Del", mock.Anything, []string{"draft:7"}).Return(nil)

	require.NoError(t, NewDraftStore(kv, discardLogger()).Delete(context.Background(), 7))
	kv.AssertExpectations(t)
}
