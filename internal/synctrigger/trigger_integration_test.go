package synctrigger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	natscontainer "github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dmitrijs2005/santatracker/internal/logging"
)

func TestPublishSubscribe_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := natscontainer.Run(ctx, "nats:2.10-alpine",
		testcontainers.WithWaitStrategy(wait.ForLog("Server is ready")),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate NATS container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	subConn, err := Connect(url)
	require.NoError(t, err)
	t.Cleanup(subConn.Close)
	pubConn, err := Connect(url)
	require.NoError(t, err)
	t.Cleanup(pubConn.Close)

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	got := make(chan Request, 1)
	s := NewSubscriber(subConn, DefaultSubject, 0, logging.NewNop())
	require.NoError(t, s.Start(subCtx, func(ctx context.Context, req Request) { got <- req }))
	require.NoError(t, subConn.FlushWithContext(ctx))

	sent, err := NewPublisher(pubConn, DefaultSubject).Publish(ctx, Request{Reason: "it", Force: true})
	require.NoError(t, err)

	select {
	case req := <-got:
		assert.Equal(t, sent.ID, req.ID)
		assert.True(t, req.Force)
	case <-time.After(10 * time.Second):
		t.Fatal("sync request not delivered")
	}
}
