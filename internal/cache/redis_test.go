package cache

import (
	"UTM-Backend/internal/domain"
	"UTM-Backend/internal/geo"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestGeoCache_Redis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("docker is not available: %v", err)
	}
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx))
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	c, err := NewGeoCache(ctx, endpoint, "", 0, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get(ctx, "203.0.113.5")
	require.NoError(t, err)
	assert.False(t, ok)

	country, city := "DE", "Berlin"
	want := geo.Result{
		Full:    domain.GeoData{"country_code": "DE", "city": "Berlin"},
		Country: &country,
		City:    &city,
	}
	require.NoError(t, c.Set(ctx, "203.0.113.5", want))

	got, ok, err := c.Get(ctx, "203.0.113.5")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
	assert.NoError(t, c.Ping(ctx))
}

func TestNewGeoCache_Unreachable(t *testing.T) {
	_, err := NewGeoCache(context.Background(), "127.0.0.1:1", "", 0, time.Minute)
	assert.Error(t, err)
}
