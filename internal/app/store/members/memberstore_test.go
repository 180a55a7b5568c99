package memberstore_test

import (
	"errors"
	"testing"

	memberstore "github.com/dalemusser/camphub/internal/app/store/members"
	"github.com/dalemusser/camphub/internal/domain/models"
	"github.com/dalemusser/camphub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_Activate_UpsertsOnce(t *testing.T) {
	db := testutil.SetupIndexedDB(t)
	store := memberstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	camp, user := primitive.NewObjectID(), primitive.NewObjectID()
	app := primitive.NewObjectID()

	first, err := store.Activate(ctx, camp, user, &app)
	require.NoError(t, err)
	assert.Equal(t, models.MemberActive, first.Status)
	assert.Equal(t, models.MemberRoleMember, first.Role)

	require.NoError(t, store.SetStatus(ctx, first.ID, models.MemberRejected, "left"))

	again, err := store.Activate(ctx, camp, user, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID, "reactivation must reuse the record")
	assert.Equal(t, models.MemberActive, again.Status)
	require.NotNil(t, again.Application)
	assert.Equal(t, app, *again.Application)
}

func TestStore_ActiveQueries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	camp, user := primitive.NewObjectID(), primitive.NewObjectID()
	m := fx.CreateMember(ctx, camp, user)
	fx.CreateMember(ctx, camp, primitive.NewObjectID())

	ok, err := store.IsActiveMember(ctx, camp, user)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := store.CountActive(ctx, camp)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	camps, err := store.ActiveCampsFor(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{camp}, camps)

	require.NoError(t, store.RejectFor(ctx, camp, user, "Removed from active roster"))
	got, err := store.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MemberRejected, got.Status)

	active, err := store.ListActive(ctx, camp)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestStore_SetStatus_Unknown(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := store.SetStatus(ctx, primitive.NewObjectID(), models.MemberActive, "")
	assert.True(t, errors.Is(err, mongo.ErrNoDocuments))
}
