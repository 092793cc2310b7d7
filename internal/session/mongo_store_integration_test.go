//go:build integration

package session

import (
	"context"
	"testing"
	"time"

	"bloodlink/internal/database/mongotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMongoStore(t *testing.T) *MongoStore {
	t.Helper()
	store := NewMongoStore(mongotest.Database(t, "final_test").Collection("sess"))
	require.NoError(t, store.EnsureIndexes(context.Background()))
	return store
}

func TestMongoStore(t *testing.T) {
	store := newMongoStore(t)
	ctx := context.Background()

	t.Run("round trip keeps millisecond timestamps", func(t *testing.T) {
		mgr := NewManager(store)

		sess, err := mgr.Create(ctx, "u1")
		require.NoError(t, err)

		got, err := store.FindByID(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, sess.UserID, got.UserID)
		assert.True(t, sess.CreatedAt.Equal(got.CreatedAt))
		assert.True(t, sess.ExpiresAt.Equal(got.ExpiresAt))
		assert.Equal(t, TTL, got.ExpiresAt.Sub(got.CreatedAt))
	})

	t.Run("duplicate id", func(t *testing.T) {
		s := testSession("dup-id")
		s.ExpiresAt = time.Now().Add(TTL)
		require.NoError(t, store.Insert(ctx, s))
		assert.ErrorIs(t, store.Insert(ctx, s), ErrDuplicateID)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := store.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("delete twice", func(t *testing.T) {
		s := testSession("to-delete")
		s.ExpiresAt = time.Now().Add(TTL)
		require.NoError(t, store.Insert(ctx, s))

		deleted, err := store.Delete(ctx, "to-delete")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = store.Delete(ctx, "to-delete")
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}
