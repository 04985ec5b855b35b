// Package agent implements the host-sharded, keep-alive HTTPS
// connection pool used by the request executor: a global socket cap,
// per-host idle LRU eviction, FIFO pending-borrower fairness, and SNI
// pinning, built on the same mutex+channel-token concurrency idiom
// this module's pacer package uses for its connection-token semaphore.
package agent

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/azstore/azstore/azlog"
)

// DefaultMaxSockets is the default global socket cap.
const DefaultMaxSockets = 50

// DefaultKeepAlive is the default idle-socket eviction age.
const DefaultKeepAlive = 60 * time.Second

// Conn is a pooled connection. It wraps net.Conn with the bookkeeping
// the Agent needs to decide whether it can be reused.
type Conn struct {
	net.Conn
	host      string
	sni       string
	idleTimer *time.Timer
}

// Host returns the host this connection was dialed for.
func (c *Conn) Host() string { return c.host }

type waiter struct {
	host string
	ch   chan *Conn // nil received on ch means "reclaimed capacity, dial fresh"
}

// Agent is a host-sharded connection pool bounded by a global socket
// cap, with FIFO fairness across hosts.
type Agent struct {
	mu             sync.Mutex
	MaxSockets     int
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	DialTLS        func(ctx context.Context, network, addr string, sni string) (net.Conn, error)

	idle    map[string][]*Conn
	total   int
	pending []*waiter
}

// New creates an Agent with the given global socket cap and idle
// timeout. A zero maxSockets means DefaultMaxSockets.
func New(maxSockets int, keepAlive time.Duration) *Agent {
	if maxSockets <= 0 {
		maxSockets = DefaultMaxSockets
	}
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	a := &Agent{
		MaxSockets: maxSockets,
		KeepAlive:  keepAlive,
		idle:       make(map[string][]*Conn),
	}
	a.DialTLS = a.dialTLS
	return a
}

func (a *Agent) dialTLS(ctx context.Context, network, addr string, sni string) (net.Conn, error) {
	d := &net.Dialer{Timeout: a.ConnectTimeout}
	rawConn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	tlsConn := tls.Client(rawConn, &tls.Config{ServerName: sni})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// Borrow returns a connection for host, preferring a pooled idle
// socket whose SNI matches, then opening a new one if under the
// global cap, and otherwise queueing as a FIFO pending borrower.
func (a *Agent) Borrow(ctx context.Context, network, host, addr, sni string) (*Conn, error) {
	a.mu.Lock()
	if list := a.idle[host]; len(list) > 0 {
		c := list[len(list)-1]
		a.idle[host] = list[:len(list)-1]
		a.mu.Unlock()
		c.idleTimer.Stop()
		if c.sni != sni {
			// SNI mismatch: never reuse. The closed socket's slot in
			// total passes to the replacement, and is freed if the dial fails.
			_ = c.Close()
			nc, err := a.open(ctx, network, host, addr, sni)
			if err != nil {
				a.mu.Lock()
				a.total--
				a.mu.Unlock()
			}
			return nc, err
		}
		return c, nil
	}
	if a.total < a.MaxSockets {
		a.total++
		a.mu.Unlock()
		c, err := a.open(ctx, network, host, addr, sni)
		if err != nil {
			a.mu.Lock()
			a.total--
			a.mu.Unlock()
		}
		return c, err
	}
	w := &waiter{host: host, ch: make(chan *Conn, 1)}
	a.pending = append(a.pending, w)
	a.mu.Unlock()
	select {
	case c := <-w.ch:
		if c == nil {
			return a.open(ctx, network, host, addr, sni)
		}
		return c, nil
	case <-ctx.Done():
		a.removeWaiter(w)
		return nil, ctx.Err()
	}
}

func (a *Agent) open(ctx context.Context, network, host, addr, sni string) (*Conn, error) {
	raw, err := a.DialTLS(ctx, network, addr, sni)
	if err != nil {
		return nil, fmt.Errorf("agent: dial %s: %w", host, err)
	}
	return &Conn{Conn: raw, host: host, sni: sni}, nil
}

func (a *Agent) removeWaiter(w *waiter) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, p := range a.pending {
		if p == w {
			a.pending = append(a.pending[:i], a.pending[i+1:]...)
			return
		}
	}
}

// Release returns a connection to the pool. keepAlive must be false
// whenever the server sent "Connection: close" or the response could
// not be cleanly drained; the socket is then destroyed instead of
// pooled.
func (a *Agent) Release(c *Conn, keepAlive bool) {
	a.mu.Lock()
	if !keepAlive {
		a.mu.Unlock()
		_ = c.Close()
		a.mu.Lock()
		a.total--
		a.wakeAnyForCapacity()
		a.mu.Unlock()
		return
	}

	// Hand directly to the oldest pending waiter for this host, if any,
	// skipping the idle list entirely.
	for i, w := range a.pending {
		if w.host == c.host {
			a.pending = append(a.pending[:i], a.pending[i+1:]...)
			a.mu.Unlock()
			w.ch <- c
			return
		}
	}

	c.idleTimer = time.AfterFunc(a.KeepAlive, func() { a.evict(c) })
	a.idle[c.host] = append(a.idle[c.host], c)
	a.wakeAnyForCapacity()
	a.mu.Unlock()
}

// wakeAnyForCapacity services the oldest pending waiter: if the pool is
// under the global cap it signals the waiter to dial fresh; otherwise
// it reclaims an idle socket belonging to a different host by closing
// it, then signals the waiter to dial fresh. Must be called with a.mu
// held.
func (a *Agent) wakeAnyForCapacity() {
	if len(a.pending) == 0 {
		return
	}
	w := a.pending[0]
	if a.total < a.MaxSockets {
		a.pending = a.pending[1:]
		w.ch <- nil
		a.total++
		return
	}
	for host, list := range a.idle {
		if len(list) == 0 || host == w.host {
			continue
		}
		victim := list[len(list)-1]
		a.idle[host] = list[:len(list)-1]
		victim.idleTimer.Stop()
		a.pending = a.pending[1:]
		a.total--
		a.mu.Unlock()
		_ = victim.Close()
		a.mu.Lock()
		w.ch <- nil
		a.total++
		return
	}
}

func (a *Agent) evict(c *Conn) {
	a.mu.Lock()
	list := a.idle[c.host]
	for i, ic := range list {
		if ic == c {
			a.idle[c.host] = append(list[:i], list[i+1:]...)
			a.total--
			a.mu.Unlock()
			_ = c.Close()
			azlog.Debugf("agent: evicted idle connection to %s after keep-alive expiry", c.host)
			return
		}
	}
	a.mu.Unlock()
}

// Stats reports instantaneous pool occupancy, for diagnostics.
func (a *Agent) Stats() (total, idle, pendingWaiters int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, list := range a.idle {
		idle += len(list)
	}
	return a.total, idle, len(a.pending)
}
