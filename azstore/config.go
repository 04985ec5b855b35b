package azstore

import (
	"time"

	"github.com/azstore/azstore/lib/agent"
	"github.com/azstore/azstore/lib/pacer"
)

// Default values for Config fields
const (
	DefaultAPIVersion          = "2016-05-31"
	DefaultServerTimeout       = 30 * time.Second
	DefaultClientTimeoutDelay  = 500 * time.Millisecond
	DefaultRetries             = 5
	DefaultDelayFactor         = 100 * time.Millisecond
	DefaultRandomizationFactor = 0.25
	DefaultMaxDelay            = 30 * time.Second
	DefaultMinSASAuthExpiry    = 15 * time.Minute
)

// DefaultTransientErrorCodes is the default set of retryable server
// error codes. Network-level transient conditions (EAI_AGAIN,
// ECONNRESET, etc.) are classified separately by
// classifyTransportError, not by this set.
func DefaultTransientErrorCodes() map[string]struct{} {
	return map[string]struct{}{
		"InternalError": {},
		"ServerBusy":    {},
	}
}

// Service selects the canonicalization/signing form and the default
// DNS suffix for a request.
type Service int

// Supported services.
const (
	ServiceBlob Service = iota
	ServiceQueue
	ServiceTable
	ServiceFile
)

func (s Service) dnsName() string {
	switch s {
	case ServiceBlob:
		return "blob"
	case ServiceQueue:
		return "queue"
	case ServiceTable:
		return "table"
	case ServiceFile:
		return "file"
	default:
		return "blob"
	}
}

// Config is the immutable-after-construction configuration shared by
// every request issued through a Client. Credential holds the single
// credential strategy in use; NewConfig rejects a nil one.
type Config struct {
	AccountID string
	Credential

	APIVersion string
	ClientID   string

	ServerTimeout      time.Duration
	ClientTimeoutDelay time.Duration

	Retries             int
	DelayFactor         time.Duration
	RandomizationFactor float64
	MaxDelay            time.Duration
	TransientErrorCodes map[string]struct{}

	// Calculator overrides the backoff shape used between retries. Nil
	// selects the default Azure calculator (DelayFactor/MaxDelay/
	// RandomizationFactor above). Set to pacer.NewAzureIMDS(),
	// pacer.NewS3(...), or any other pacer.Calculator to reuse a
	// different backend's backoff curve against this client's retry loop.
	Calculator pacer.Calculator

	MinSASAuthExpiry time.Duration

	Agent *agent.Agent
}

// Option configures a Config at construction time.
type Option func(*Config)

// WithAPIVersion overrides the x-ms-version header value.
func WithAPIVersion(v string) Option { return func(c *Config) { c.APIVersion = v } }

// WithClientID sets the x-ms-client-request-id header value.
func WithClientID(id string) Option { return func(c *Config) { c.ClientID = id } }

// WithServerTimeout sets the server-side timeout query parameter.
func WithServerTimeout(d time.Duration) Option { return func(c *Config) { c.ServerTimeout = d } }

// WithClientTimeoutDelay sets the extra client-side grace period added
// on top of ServerTimeout to get the executor's deadline.
func WithClientTimeoutDelay(d time.Duration) Option {
	return func(c *Config) { c.ClientTimeoutDelay = d }
}

// WithRetries sets the maximum number of attempts (not counting the
// first) the retry loop will make.
func WithRetries(n int) Option { return func(c *Config) { c.Retries = n } }

// WithBackoff configures the exponential backoff parameters.
func WithBackoff(delayFactor, maxDelay time.Duration, randomizationFactor float64) Option {
	return func(c *Config) {
		c.DelayFactor = delayFactor
		c.MaxDelay = maxDelay
		c.RandomizationFactor = randomizationFactor
	}
}

// WithCalculator overrides the backoff calculator, bypassing
// DelayFactor/MaxDelay/RandomizationFactor entirely.
func WithCalculator(c pacer.Calculator) Option {
	return func(cfg *Config) { cfg.Calculator = c }
}

// WithTransientErrorCodes overrides the set of server error codes
// treated as retryable.
func WithTransientErrorCodes(codes ...string) Option {
	return func(c *Config) {
		m := make(map[string]struct{}, len(codes))
		for _, code := range codes {
			m[code] = struct{}{}
		}
		c.TransientErrorCodes = m
	}
}

// WithMinSASAuthExpiry sets how far ahead of expiry a refreshed SAS
// must still be valid.
func WithMinSASAuthExpiry(d time.Duration) Option {
	return func(c *Config) { c.MinSASAuthExpiry = d }
}

// WithAgent overrides the shared connection agent. If omitted, a
// process-global default agent is used.
func WithAgent(a *agent.Agent) Option { return func(c *Config) { c.Agent = a } }

var processGlobalAgent = agent.New(agent.DefaultMaxSockets, agent.DefaultKeepAlive)

// NewConfig builds a Config for accountID/credential with defaults
// applied, then runs opts over it.
func NewConfig(accountID string, credential Credential, opts ...Option) (*Config, error) {
	if accountID == "" {
		return nil, newError(KindPermanent, "ErrorWithoutCode", "accountId is required")
	}
	if credential == nil {
		return nil, newError(KindPermanent, "ErrorWithoutCode", "a credential is required")
	}
	c := &Config{
		AccountID:           accountID,
		Credential:          credential,
		APIVersion:          DefaultAPIVersion,
		ServerTimeout:       DefaultServerTimeout,
		ClientTimeoutDelay:  DefaultClientTimeoutDelay,
		Retries:             DefaultRetries,
		DelayFactor:         DefaultDelayFactor,
		RandomizationFactor: DefaultRandomizationFactor,
		MaxDelay:            DefaultMaxDelay,
		TransientErrorCodes: DefaultTransientErrorCodes(),
		MinSASAuthExpiry:    DefaultMinSASAuthExpiry,
		Agent:               processGlobalAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// clientTimeout is the single deadline the executor enforces, spanning
// connect+write+read.
func (c *Config) clientTimeout() time.Duration {
	return c.ServerTimeout + c.ClientTimeoutDelay
}
