//go:build integration

package users

import (
	"context"
	"testing"
	"time"

	"bloodlink/internal/database/mongotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestMongoRepository(t *testing.T) {
	repo := NewMongoRepository(mongotest.Database(t, "final_test").Collection("users"))
	ctx := context.Background()
	require.NoError(t, repo.EnsureIndexes(ctx))

	_, err := repo.List(ctx)
	require.NoError(t, err)

	id, err := repo.Create(ctx, &User{
		Name:         "Rahim",
		Email:        "rahim@example.com",
		PasswordHash: "$argon2id$stub",
		BloodGroup:   "O+",
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	})
	require.NoError(t, err)
	_, err = bson.ObjectIDFromHex(id)
	require.NoError(t, err)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := repo.Create(ctx, &User{Name: "Other", Email: "rahim@example.com"})
		assert.ErrorIs(t, err, ErrEmailExists)
	})

	t.Run("get by email keeps the hash", func(t *testing.T) {
		user, err := repo.GetByEmail(ctx, "rahim@example.com")
		require.NoError(t, err)
		assert.Equal(t, id, user.ID.Hex())
		assert.Equal(t, "$argon2id$stub", user.PasswordHash)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := repo.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("update reports counts", func(t *testing.T) {
		res, err := repo.UpdateByEmail(ctx, "rahim@example.com", bson.D{{Key: "district", Value: "Dhaka"}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.MatchedCount)
		assert.Equal(t, int64(1), res.ModifiedCount)

		res, err = repo.UpdateByEmail(ctx, "rahim@example.com", bson.D{{Key: "district", Value: "Dhaka"}})
		require.NoError(t, err)
		assert.Equal(t, int64(0), res.ModifiedCount)

		_, err = repo.UpdateByEmail(ctx, "nobody@example.com", bson.D{{Key: "district", Value: "Dhaka"}})
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("list", func(t *testing.T) {
		users, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "Dhaka", users[0].District)
	})
}
