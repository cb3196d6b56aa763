//go:build integration

package testutils

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestRedis is a disposable Redis server
type TestRedis struct {
	Container testcontainers.Container
	Client    *redis.Client
	Addr      string
	t         *testing.T
}

// SetupTestRedis starts a Redis container and returns a connected client.
// The container is terminated when the test ends.
func SetupTestRedis(t *testing.T) *TestRedis {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7-alpine",
				ExposedPorts: []string{"6379/tcp"},
				WaitingFor: wait.ForLog("Ready to accept connections").
					WithStartupTimeout(60 * time.Second),
			},
			Started: true,
		})
	require.NoError(t, err, "Failed to start redis container")

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	addr := fmt.Sprintf("%s:%s", host, port.Port())
	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(ctx).Err(), "Failed to ping test redis")

	testRedis := &TestRedis{
		Container: container,
		Client:    client,
		Addr:      addr,
		t:         t,
	}
	t.Cleanup(testRedis.Cleanup)

	return testRedis
}

// Cleanup closes the client and stops the container
func (tr *TestRedis) Cleanup() {
	if tr.Client != nil {
		tr.Client.Close()
	}
	if tr.Container != nil {
		if err := tr.Container.Terminate(context.Background()); err != nil {
			tr.t.Logf("Failed to terminate redis container: %v", err)
		}
	}
}
