package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"todoReminder/internal/cache"
	"todoReminder/internal/models/notification"
)

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var c cache.Noop

	gen, err := c.Generation(ctx, 1)
	require.NoError(t, err)
	c.SetNotifications(ctx, 1, gen, []*notification.Notification{{ID: 1}})
	_, ok := c.GetNotifications(ctx, 1)
	assert.False(t, ok)
	c.Invalidate(ctx, 1)
	assert.NoError(t, c.Close())
}

func TestRedisCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	c, err := cache.NewRedis(ctx, fmt.Sprintf("redis://%s:%s/0", host, port.Port()), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, ok := c.GetNotifications(ctx, 7)
	assert.False(t, ok)

	taskID := int64(3)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	list := []*notification.Notification{
		{ID: 1, Title: "Reminder for task #3", Message: "Reminder: Buy milk", TaskID: &taskID, UserID: 7, CreatedAt: created},
		{ID: 2, Title: "Maintenance", Message: "Down at 2am", UserID: 7, CreatedAt: created},
	}
	gen, err := c.Generation(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)
	c.SetNotifications(ctx, 7, gen, list)

	got, ok := c.GetNotifications(ctx, 7)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, taskID, *got[0].TaskID)
	assert.Nil(t, got[1].TaskID)
	assert.True(t, created.Equal(got[1].CreatedAt))

	c.Invalidate(ctx, 7, 8)
	_, ok = c.GetNotifications(ctx, 7)
	assert.False(t, ok)

	// A fill that read the store before the invalidation is dropped.
	c.SetNotifications(ctx, 7, gen, list[:1])
	_, ok = c.GetNotifications(ctx, 7)
	assert.False(t, ok)

	fresh, err := c.Generation(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, gen+1, fresh)
	c.SetNotifications(ctx, 7, fresh, list)
	got, ok = c.GetNotifications(ctx, 7)
	require.True(t, ok)
	assert.Len(t, got, 2)
}
