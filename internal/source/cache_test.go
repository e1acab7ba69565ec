package source_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"timereport/internal/model"
	"timereport/internal/source"
)

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Bool(1), args.Error(2)
}

func (m *mockCache) Set(ctx context.Context, key, accountID string, data []byte, ttl time.Duration) error {
	return m.Called(ctx, key, accountID, data, ttl).Error(0)
}

type mockSource struct {
	mock.Mock
}

func (m *mockSource) ListEntries(ctx context.Context, cred source.Credential, f source.Filter) ([]model.TimeEntry, error) {
	args := m.Called(ctx, cred, f)
	entries, _ := args.Get(0).([]model.TimeEntry)
	return entries, args.Error(1)
}

func (m *mockSource) ResolveIdentity(ctx context.Context, cred source.Credential) (source.Identity, error) {
	args := m.Called(ctx, cred)
	return args.Get(0).(source.Identity), args.Error(1)
}

var cred = source.Credential{AccountID: "acc-1", AccountName: "main", APIToken: "tok"}

func TestCachedMissFetchesAndStores(t *testing.T) {
	ctx := context.Background()
	entries := []model.TimeEntry{{ID: 1, Description: "Build", Duration: 60}}

	cache := new(mockCache)
	cache.On("Get", ctx, mock.Anything).Return(nil, false, nil)
	cache.On("Set", ctx, mock.Anything, "acc-1", mock.Anything, 5*time.Minute).Return(nil)
	src := new(mockSource)
	src.On("ListEntries", ctx, cred, source.Filter{}).Return(entries, nil).Once()

	got, err := source.Cached(src, cache, 5*time.Minute, zap.NewNop().Sugar()).ListEntries(ctx, cred, source.Filter{})

	require.NoError(t, err)
	require.Equal(t, entries, got)
	src.AssertExpectations(t)
	cache.AssertNumberOfCalls(t, "Set", 1)
}

func TestCachedHitSkipsSource(t *testing.T) {
	ctx := context.Background()
	entries := []model.TimeEntry{{ID: 7, Description: "Review", Duration: 120}}
	data, err := json.Marshal(entries)
	require.NoError(t, err)

	cache := new(mockCache)
	cache.On("Get", ctx, mock.Anything).Return(data, true, nil)
	src := new(mockSource)

	got, err := source.Cached(src, cache, time.Minute, zap.NewNop().Sugar()).ListEntries(ctx, cred, source.Filter{})

	require.NoError(t, err)
	require.Equal(t, entries, got)
	src.AssertNotCalled(t, "ListEntries", mock.Anything, mock.Anything, mock.Anything)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCachedFallsThroughOnCacheFailure(t *testing.T) {
	ctx := context.Background()

	cache := new(mockCache)
	cache.On("Get", ctx, mock.Anything).Return(nil, false, errors.New("db down"))
	cache.On("Set", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("db down"))
	src := new(mockSource)
	src.On("ResolveIdentity", ctx, cred).Return(source.Identity{DisplayName: "Ana"}, nil)

	id, err := source.Cached(src, cache, time.Minute, zap.NewNop().Sugar()).ResolveIdentity(ctx, cred)

	require.NoError(t, err)
	require.Equal(t, "Ana", id.DisplayName)
}

func TestCachedDoesNotStoreErrors(t *testing.T) {
	ctx := context.Background()

	cache := new(mockCache)
	cache.On("Get", ctx, mock.Anything).Return(nil, false, nil)
	src := new(mockSource)
	src.On("ListEntries", ctx, cred, source.Filter{}).Return(nil, &source.RateLimitError{})

	_, err := source.Cached(src, cache, time.Minute, zap.NewNop().Sugar()).ListEntries(ctx, cred, source.Filter{})

	var rl *source.RateLimitError
	require.ErrorAs(t, err, &rl)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCacheKeyIncludesFilter(t *testing.T) {
	ws := int64(42)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	cache := new(mockCache)
	cache.On("Get", mock.Anything, "acc-1:time_entries:42,-,-,-,2024-01-01,-").Return(nil, false, nil)
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	src := new(mockSource)
	src.On("ListEntries", mock.Anything, cred, mock.Anything).Return([]model.TimeEntry{}, nil)

	_, err := source.Cached(src, cache, time.Minute, zap.NewNop().Sugar()).
		ListEntries(context.Background(), cred, source.Filter{WorkspaceID: &ws, Start: &start})

	require.NoError(t, err)
	cache.AssertExpectations(t)
	require.Equal(t, "acc-1:me", source.CacheKey("acc-1", "me"))
}
