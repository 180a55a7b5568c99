package callslotstore_test

import (
	"context"
	"testing"
	"time"

	callslotstore "github.com/dalemusser/camphub/internal/app/store/callslots"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/dalemusser/camphub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func tomorrow() time.Time { return time.Now().UTC().Add(24 * time.Hour) }

func TestStore_BookUntilFull(t *testing.T) {
	db := testutil.SetupIndexedDB(t)
	store := callslotstore.New(db)
	ctx := context.Background()

	camp := primitive.NewObjectID()
	slot, err := store.Create(ctx, models.CallSlot{CampID: camp, Date: tomorrow(), StartTime: "18:00", EndTime: "18:30", MaxParticipants: 2})
	require.NoError(t, err)
	assert.True(t, slot.IsAvailable)

	a, b, c := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	got, err := store.Book(ctx, slot.ID, camp, a)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentParticipants)
	assert.True(t, got.IsAvailable)

	_, err = store.Book(ctx, slot.ID, camp, a)
	assert.ErrorIs(t, err, callslotstore.ErrUnavailable, "one seat per person")

	got, err = store.Book(ctx, slot.ID, camp, b)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentParticipants)
	assert.False(t, got.IsAvailable, "the last seat closes the slot")
	assert.ElementsMatch(t, []primitive.ObjectID{a, b}, got.Participants)

	_, err = store.Book(ctx, slot.ID, camp, c)
	assert.ErrorIs(t, err, callslotstore.ErrUnavailable)

	ok, err := store.Release(ctx, slot.ID, a)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Release(ctx, slot.ID, a)
	require.NoError(t, err)
	assert.False(t, ok)

	after, err := store.GetByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.CurrentParticipants)
	assert.True(t, after.IsAvailable)
}

func TestStore_BookRejectsOtherCampAndPastSlots(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := callslotstore.New(db)
	ctx := context.Background()

	camp := primitive.NewObjectID()
	slot, err := store.Create(ctx, models.CallSlot{CampID: camp, Date: tomorrow(), StartTime: "10:00", EndTime: "10:30"})
	require.NoError(t, err)
	assert.Equal(t, 1, slot.MaxParticipants)

	_, err = store.Book(ctx, slot.ID, primitive.NewObjectID(), primitive.NewObjectID())
	assert.ErrorIs(t, err, callslotstore.ErrUnavailable)

	past, err := store.Create(ctx, models.CallSlot{CampID: camp, Date: time.Now().UTC().Add(-72 * time.Hour), StartTime: "10:00", EndTime: "10:30"})
	require.NoError(t, err)
	_, err = store.Book(ctx, past.ID, camp, primitive.NewObjectID())
	assert.ErrorIs(t, err, callslotstore.ErrUnavailable)

	open, err := store.ListAvailable(ctx, camp, time.Now())
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, slot.ID, open[0].ID)

	all, err := store.ListByCamp(ctx, camp)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_UpdateKeepsFullSlotClosed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := callslotstore.New(db)
	ctx := context.Background()

	camp := primitive.NewObjectID()
	slot, err := store.Create(ctx, models.CallSlot{CampID: camp, Date: tomorrow(), StartTime: "10:00", EndTime: "10:30"})
	require.NoError(t, err)
	_, err = store.Book(ctx, slot.ID, camp, primitive.NewObjectID())
	require.NoError(t, err)

	got, err := store.Update(ctx, slot.ID, bson.M{"is_available": true, "start_time": "$end_time"})
	require.NoError(t, err)
	assert.False(t, got.IsAvailable)
	assert.Equal(t, "$end_time", got.StartTime, "values are stored literally")

	got, err = store.Update(ctx, slot.ID, bson.M{"max_participants": 3, "is_available": true})
	require.NoError(t, err)
	assert.True(t, got.IsAvailable)
}

func TestStore_DeleteForAccounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := callslotstore.New(db)
	ctx := context.Background()

	gone, kept := primitive.NewObjectID(), primitive.NewObjectID()
	user := primitive.NewObjectID()
	_, err := store.Create(ctx, models.CallSlot{CampID: gone, Date: tomorrow(), StartTime: "10:00", EndTime: "10:30"})
	require.NoError(t, err)
	slot, err := store.Create(ctx, models.CallSlot{CampID: kept, Date: tomorrow(), StartTime: "10:00", EndTime: "10:30"})
	require.NoError(t, err)
	_, err = store.Book(ctx, slot.ID, kept, user)
	require.NoError(t, err)

	n, err := store.DeleteForAccounts(ctx, []primitive.ObjectID{user}, []primitive.ObjectID{gone})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := store.GetByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Participants)
	assert.Equal(t, 0, got.CurrentParticipants)
	assert.True(t, got.IsAvailable)
}
