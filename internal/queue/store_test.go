package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"f2dhis2/internal/database/dbtest"
	"f2dhis2/internal/models"
)

func createService(t *testing.T, db *gorm.DB) models.Service {
	t.Helper()
	svc := models.Service{IDString: "household", Name: "Household", URL: "https://formhub.org/demo/forms/household/form.json"}
	require.NoError(t, db.Create(&svc).Error)
	return svc
}

func TestEnqueueIsIdempotent(t *testing.T) {
	db := dbtest.Open(t)
	svc := createService(t, db)
	store := NewStore(db)
	ctx := context.Background()

	first, err := store.Enqueue(ctx, svc.ID, "uuid-1")
	require.NoError(t, err)
	assert.False(t, first.Processed)

	again, err := store.Enqueue(ctx, svc.ID, "uuid-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	var count int64
	require.NoError(t, db.Model(&models.DataQueue{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	other, err := store.Enqueue(ctx, svc.ID, "uuid-2")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestEnqueueRearmsProcessedItem(t *testing.T) {
	db := dbtest.Open(t)
	svc := createService(t, db)
	store := NewStore(db)
	ctx := context.Background()

	item, err := store.Enqueue(ctx, svc.ID, "uuid-1")
	require.NoError(t, err)
	token, ok, err := store.Claim(ctx, item.ID, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, store.Complete(ctx, item.ID, token))

	rearmed, err := store.Enqueue(ctx, svc.ID, "uuid-1")
	require.NoError(t, err)
	assert.Equal(t, item.ID, rearmed.ID)
	assert.False(t, rearmed.Processed)

	stored, err := store.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, stored.Processed)
	assert.NotNil(t, stored.ProcessedOn, "last delivery time is kept")
}

func TestClaimLifecycle(t *testing.T) {
	db := dbtest.Open(t)
	svc := createService(t, db)
	store := NewStore(db)
	ctx := context.Background()

	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	item, err := store.Enqueue(ctx, svc.ID, "uuid-1")
	require.NoError(t, err)

	token, ok, err := store.Claim(ctx, item.ID, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = store.Claim(ctx, item.ID, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "live claim blocks other drains")

	now = now.Add(2 * time.Minute)
	stolen, ok, err := store.Claim(ctx, item.ID, time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "expired claim is taken over")
	assert.NotEqual(t, token, stolen)

	assert.ErrorIs(t, store.Complete(ctx, item.ID, token), ErrClaimLost)
	require.NoError(t, store.Complete(ctx, item.ID, stolen))

	done, err := store.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, done.Processed)
	require.NotNil(t, done.ProcessedOn)
	assert.True(t, done.ProcessedOn.Equal(now))
	assert.Nil(t, done.ClaimToken)
	assert.Nil(t, done.ClaimedAt)
	assert.Equal(t, 1, done.Attempts)

	_, ok, err = store.Claim(ctx, item.ID, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "processed items cannot be claimed")
}

func TestRelease(t *testing.T) {
	db := dbtest.Open(t)
	svc := createService(t, db)
	store := NewStore(db)
	ctx := context.Background()

	item, err := store.Enqueue(ctx, svc.ID, "uuid-1")
	require.NoError(t, err)

	token, ok, err := store.Claim(ctx, item.ID, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, store.Release(ctx, item.ID, token, errors.New("formhub unavailable")))

	released, err := store.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, released.Processed)
	assert.Nil(t, released.ProcessedOn)
	assert.Nil(t, released.ClaimToken)
	assert.Equal(t, 1, released.Attempts)
	assert.Equal(t, "formhub unavailable", released.LastError)

	_, ok, err = store.Claim(ctx, item.ID, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "released items are claimable again")

	assert.ErrorIs(t, store.Release(ctx, uuid.New(), "nope", nil), ErrClaimLost)
}

func TestListOrder(t *testing.T) {
	db := dbtest.Open(t)
	svc := createService(t, db)
	store := NewStore(db)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := store.Enqueue(ctx, svc.ID, id)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}
	b, err := store.Enqueue(ctx, svc.ID, "b")
	require.NoError(t, err)
	token, _, err := store.Claim(ctx, b.ID, time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Complete(ctx, b.ID, token))

	pending, err := store.ListUnprocessed(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "a", pending[0].DataID)
	assert.Equal(t, "c", pending[1].DataID)
	require.NotNil(t, pending[0].Service)
	assert.Equal(t, "household", pending[0].Service.IDString)

	all, err := store.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	processed := true
	done, err := store.List(ctx, &processed)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "b", done[0].DataID)
}
