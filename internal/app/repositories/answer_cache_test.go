package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weread-agent/internal/app/models"
)

func TestMemoryAnswerCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryAnswerCache(time.Minute)

	_, ok, err := cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	answer := &models.CachedAnswer{
		Query:     "foo",
		SessionID: "s1",
		View: models.MergedView{
			AnswerText: "final",
			Answered:   true,
			Citations:  []models.Citation{{Reference: "a1"}},
			Final:      true,
		},
	}
	require.NoError(t, cache.Set(ctx, "k", answer))

	// 写入后修改原对象不影响缓存
	answer.View.Citations[0].Reference = "changed"

	got, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "final", got.View.AnswerText)
	assert.Equal(t, "a1", got.View.Citations[0].Reference)

	got.View.Citations[0].Reference = "mutated"
	again, _, _ := cache.Get(ctx, "k")
	assert.Equal(t, "a1", again.View.Citations[0].Reference)
}

func TestMemoryAnswerCacheExpiry(t *testing.T) {
	cache := NewMemoryAnswerCache(20 * time.Millisecond)
	require.NoError(t, cache.Set(context.Background(), "k", &models.CachedAnswer{Query: "foo"}))

	assert.Eventually(t, func() bool {
		_, ok, _ := cache.Get(context.Background(), "k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestQueryRecordRepositoryWithoutDatabase(t *testing.T) {
	repo := NewQueryRecordRepository()

	_, err := repo.GetByID(1)
	assert.ErrorIs(t, err, ErrNoDatabase)
	_, err = repo.List(10, 0)
	assert.ErrorIs(t, err, ErrNoDatabase)

	err = repo.Create(&models.QueryRecord{TaskID: "t", Query: "foo", State: models.SessionCompleted})
	assert.ErrorIs(t, err, ErrNoDatabase)

	err = repo.Create(&models.QueryRecord{TaskID: "t", Query: "foo", State: models.SessionPolling})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoDatabase)
}
