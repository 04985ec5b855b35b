package agent

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDialer hands out net.Pipe halves instead of real TLS sockets, so
// Borrow/Release can be exercised without a network.
func fakeDialer(t *testing.T) func(ctx context.Context, network, addr, sni string) (net.Conn, error) {
	t.Helper()
	return func(ctx context.Context, network, addr, sni string) (net.Conn, error) {
		client, server := net.Pipe()
		t.Cleanup(func() { _ = server.Close() })
		return client, nil
	}
}

func newTestAgent(t *testing.T, maxSockets int) *Agent {
	t.Helper()
	a := New(maxSockets, 50*time.Millisecond)
	a.DialTLS = fakeDialer(t)
	return a
}

func TestAgentBorrowOpensNewConnectionUnderCap(t *testing.T) {
	a := newTestAgent(t, 2)
	conn, err := a.Borrow(context.Background(), "tcp", "example.blob.core.windows.net", "example.blob.core.windows.net:443", "example.blob.core.windows.net")
	require.NoError(t, err)
	assert.Equal(t, "example.blob.core.windows.net", conn.Host())

	total, idle, pending := a.Stats()
	assert.Equal(t, 1, total)
	assert.Equal(t, 0, idle)
	assert.Equal(t, 0, pending)
}

func TestAgentReleaseWithKeepAlivePoolsConnection(t *testing.T) {
	a := newTestAgent(t, 2)
	conn, err := a.Borrow(context.Background(), "tcp", "h", "h:443", "h")
	require.NoError(t, err)

	a.Release(conn, true)
	total, idle, _ := a.Stats()
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, idle)
}

func TestAgentBorrowReusesIdleConnectionForSameHostAndSNI(t *testing.T) {
	a := newTestAgent(t, 2)
	conn, err := a.Borrow(context.Background(), "tcp", "h", "h:443", "h")
	require.NoError(t, err)
	a.Release(conn, true)

	conn2, err := a.Borrow(context.Background(), "tcp", "h", "h:443", "h")
	require.NoError(t, err)
	assert.Same(t, conn, conn2)

	total, idle, _ := a.Stats()
	assert.Equal(t, 1, total)
	assert.Equal(t, 0, idle)
}

func TestAgentReleaseWithoutKeepAliveDestroysConnection(t *testing.T) {
	a := newTestAgent(t, 2)
	conn, err := a.Borrow(context.Background(), "tcp", "h", "h:443", "h")
	require.NoError(t, err)

	a.Release(conn, false)
	total, idle, _ := a.Stats()
	assert.Equal(t, 0, total)
	assert.Equal(t, 0, idle)
}

func TestAgentIdleConnectionEvictedAfterKeepAlive(t *testing.T) {
	a := newTestAgent(t, 2)
	conn, err := a.Borrow(context.Background(), "tcp", "h", "h:443", "h")
	require.NoError(t, err)
	a.Release(conn, true)

	assert.Eventually(t, func() bool {
		total, _, _ := a.Stats()
		return total == 0
	}, time.Second, 5*time.Millisecond)
}

func TestAgentBorrowQueuesAtCapacityThenServesFromRelease(t *testing.T) {
	a := newTestAgent(t, 1)
	conn, err := a.Borrow(context.Background(), "tcp", "h1", "h1:443", "h1")
	require.NoError(t, err)

	done := make(chan *Conn, 1)
	go func() {
		c, err := a.Borrow(context.Background(), "tcp", "h1", "h1:443", "h1")
		assert.NoError(t, err)
		done <- c
	}()

	// Give the second Borrow time to enqueue as a pending waiter.
	time.Sleep(20 * time.Millisecond)
	_, _, pending := a.Stats()
	assert.Equal(t, 1, pending)

	a.Release(conn, true)

	select {
	case c := <-done:
		assert.Same(t, conn, c)
	case <-time.After(time.Second):
		t.Fatal("pending borrower was never served")
	}
}

func TestAgentSNIMismatchNeverReused(t *testing.T) {
	a := newTestAgent(t, 2)
	conn, err := a.Borrow(context.Background(), "tcp", "h", "h:443", "sni-a")
	require.NoError(t, err)
	a.Release(conn, true)

	conn2, err := a.Borrow(context.Background(), "tcp", "h", "h:443", "sni-b")
	require.NoError(t, err)
	assert.NotSame(t, conn, conn2)
}

func TestAgentBorrowRespectsContextCancellationWhileQueued(t *testing.T) {
	a := newTestAgent(t, 1)
	_, err := a.Borrow(context.Background(), "tcp", "h1", "h1:443", "h1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = a.Borrow(ctx, "tcp", "h1", "h1:443", "h1")
	assert.Error(t, err)
}
