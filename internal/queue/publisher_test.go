package queue

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/avstage-backoffice/internal/model"
)

// silentBroker accepts TCP connections and never answers the AMQP handshake.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func testMessage() NotificationMessage {
	return NotificationMessage{ID: "m1", Event: model.EventBookingConfirmed, Recipient: "dana@example.com"}
}

func TestPublish_DialHonoursContextDeadline(t *testing.T) {
	p := NewPublisher(silentBroker(t), "notifications")
	t.Cleanup(func() { _ = p.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Publish(ctx, testMessage())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPublish_WaitingOnDialRespectsOwnContext(t *testing.T) {
	p := NewPublisher(silentBroker(t), "notifications")
	t.Cleanup(func() { _ = p.Close() })

	slowCtx, cancelSlow := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelSlow()
	slowDone := make(chan struct{})
	go func() {
		defer close(slowDone)
		_ = p.Publish(slowCtx, testMessage())
	}()
	t.Cleanup(func() { <-slowDone })

	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.dialing != nil
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := p.Publish(ctx, testMessage())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPublish_CancelledContextSkipsDial(t *testing.T) {
	p := NewPublisher(silentBroker(t), "notifications")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Publish(ctx, testMessage())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, p.conn)
}
