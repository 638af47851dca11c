package services

import (
	"blog/db"
	"blog/models"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countFollows(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.ORM.Model(&models.Follow{}).Count(&n).Error)
	return n
}

func TestFollowIsIdempotent(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	reader := createTestUser(t, "anna")
	author := createTestUser(t, "leo")
	notifier := &recordingNotifier{}
	svc := NewFollowService(NewGormStore(), notifier)

	created, err := svc.Follow(ctx, reader, "leo")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.Follow(ctx, reader, "leo")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(1), countFollows(t))

	following, err := svc.IsFollowing(ctx, reader, author)
	require.NoError(t, err)
	assert.True(t, following)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, author.ID, notifier.sent[0].UserID)
	assert.Equal(t, "follow", notifier.sent[0].Type)
}

func TestFollowSelfIsNoop(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	author := createTestUser(t, "leo")
	svc := NewFollowService(NewGormStore(), nil)

	created, err := svc.Follow(ctx, author, "leo")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(0), countFollows(t))
}

func TestFollowUnknownAuthor(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	reader := createTestUser(t, "anna")
	svc := NewFollowService(NewGormStore(), nil)

	_, err := svc.Follow(ctx, reader, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Unfollow(ctx, reader, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnfollowIsIdempotent(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	reader := createTestUser(t, "anna")
	author := createTestUser(t, "leo")
	svc := NewFollowService(NewGormStore(), nil)

	removed, err := svc.Unfollow(ctx, reader, "leo")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = svc.Follow(ctx, reader, "leo")
	require.NoError(t, err)

	removed, err = svc.Unfollow(ctx, reader, "leo")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.Unfollow(ctx, reader, "leo")
	require.NoError(t, err)
	assert.False(t, removed)

	following, err := svc.IsFollowing(ctx, reader, author)
	require.NoError(t, err)
	assert.False(t, following)
}

func TestFollowConcurrentSingleEdge(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	reader := createTestUser(t, "anna")
	createTestUser(t, "leo")
	svc := NewFollowService(NewGormStore(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Follow(ctx, reader, "leo")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), countFollows(t))
}

func TestFollowDoesNotTouchReverseEdge(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	store := NewGormStore()
	anna := createTestUser(t, "anna")
	leo := createTestUser(t, "leo")
	svc := NewFollowService(store, nil)

	_, err := svc.Follow(ctx, anna, "leo")
	require.NoError(t, err)

	reverse, err := store.FollowExists(ctx, leo.ID, anna.ID)
	require.NoError(t, err)
	assert.False(t, reverse)

	followers, err := store.FollowerIDs(ctx, leo.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{anna.ID}, followers)
}
