package pacer

import (
	"sync"
	"time"
)

const (
	defaultRetries        = 10
	defaultMaxConnections = 10
)

// Paced is the signature of a function that can be called through a
// Pacer. It returns whether the call should be retried and the error
// (if any) the call produced; the error is always returned to the
// caller of Call/CallNoRetry once retries are exhausted.
type Paced func() (bool, error)

// Pacer paces the calls made through it and retries failed calls
// according to the configured Calculator and retry count. It also
// bounds the number of calls in flight at once via an optional
// connection-token semaphore.
type Pacer struct {
	mu             sync.Mutex
	pacer          chan struct{}
	connTokens     chan struct{}
	retries        int
	maxConnections int
	calculator     Calculator
	state          State
}

// Option configures a Pacer at construction time.
type Option func(*Pacer)

// RetriesOption sets the number of retries Call will attempt.
func RetriesOption(retries int) Option {
	return func(p *Pacer) { p.retries = retries }
}

// MaxConnectionsOption sets the maximum number of calls allowed to run
// concurrently through this Pacer. 0 means unbounded.
func MaxConnectionsOption(maxConnections int) Option {
	return func(p *Pacer) { p.SetMaxConnections(maxConnections) }
}

// CalculatorOption sets the backoff Calculator.
func CalculatorOption(calculator Calculator) Option {
	return func(p *Pacer) { p.calculator = calculator }
}

// New creates a Pacer with the given options applied on top of the
// defaults (10 retries, 10 max connections, Default calculator).
func New(options ...Option) *Pacer {
	p := &Pacer{
		retries:    defaultRetries,
		calculator: NewDefault(),
	}
	p.pacer = make(chan struct{}, 1)
	p.pacer <- struct{}{}
	p.SetMaxConnections(defaultMaxConnections)
	for _, option := range options {
		option(p)
	}
	if s, ok := p.calculator.(initialSleeper); ok {
		p.state.SleepTime = s.initialSleep()
	}
	return p
}

// SetRetries changes the number of retries Call will attempt.
func (p *Pacer) SetRetries(retries int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.retries = retries
}

// SetMaxConnections changes the maximum number of concurrent calls.
// 0 (or negative) removes the bound entirely.
func (p *Pacer) SetMaxConnections(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxConnections = n
	if n <= 0 {
		p.connTokens = nil
		return
	}
	p.connTokens = make(chan struct{}, n)
	for i := 0; i < n; i++ {
		p.connTokens <- struct{}{}
	}
}

// SetCalculator changes the backoff Calculator.
func (p *Pacer) SetCalculator(c Calculator) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calculator = c
}

// beginCall waits for a pace token and (if bounded) a connection
// token, then schedules the pace token's return after the current
// sleep time has elapsed. It does not block for the full sleep time
// itself: pacing and connection-bounding are independent axes.
func (p *Pacer) beginCall() {
	<-p.pacer
	if p.connTokens != nil {
		<-p.connTokens
	}
	p.mu.Lock()
	sleepTime := p.state.SleepTime
	p.mu.Unlock()
	time.AfterFunc(sleepTime, func() {
		p.pacer <- struct{}{}
	})
}

// endCall records the outcome of a call, recomputes the sleep time via
// the Calculator, and releases the connection token (if bounded).
func (p *Pacer) endCall(retry bool, err error) {
	p.mu.Lock()
	if retry {
		p.state.ConsecutiveRetries++
	} else {
		p.state.ConsecutiveRetries = 0
	}
	p.state.LastError = err
	p.state.SleepTime = p.calculator.Calculate(p.state)
	p.mu.Unlock()
	if p.connTokens != nil {
		p.connTokens <- struct{}{}
	}
}

// call runs fn up to maxTries times, pacing and retrying as directed
// by fn's own return value.
func (p *Pacer) call(fn Paced, maxTries int) (err error) {
	var retry bool
	for try := 1; try <= maxTries; try++ {
		p.beginCall()
		retry, err = fn()
		p.endCall(retry, err)
		if !retry {
			return err
		}
	}
	return err
}

// Call runs fn, retrying up to the Pacer's configured retry count
// while fn reports the failure as retryable.
func (p *Pacer) Call(fn Paced) error {
	p.mu.Lock()
	retries := p.retries
	p.mu.Unlock()
	return p.call(fn, retries)
}

// CallNoRetry runs fn exactly once regardless of the Pacer's
// configured retry count or what fn reports.
func (p *Pacer) CallNoRetry(fn Paced) error {
	return p.call(fn, 1)
}
