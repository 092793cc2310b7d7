// Package mongotest starts a throwaway MongoDB container for integration tests.
package mongotest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const Image = "mongo:7"

// URI starts a container and returns its connection string. The container
// is removed when the test ends.
func URI(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := mongodb.Run(ctx, Image)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	return uri
}

// Database returns a handle to a fresh database in a new container
func Database(t *testing.T, name string) *mongo.Database {
	t.Helper()

	client, err := mongo.Connect(options.Client().ApplyURI(URI(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	return client.Database(name)
}
