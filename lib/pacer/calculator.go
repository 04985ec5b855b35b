package pacer

import (
	"math/rand"
	"time"
)

// State represents the state of the pacer used to calculate the next
// sleep time. ConsecutiveRetries is the number of consecutive retries
// that have happened (and is reset to 0 on a successful call). SleepTime
// is the sleep time used before the current call.
type State struct {
	SleepTime          time.Duration
	ConsecutiveRetries int
	LastError          error
}

// Calculator is the interface a backoff strategy implements: given the
// current state, return the sleep time to use before the next call.
type Calculator interface {
	Calculate(state State) time.Duration
}

// initialSleeper is implemented by Calculators that have an opinion
// about the sleep time a freshly constructed Pacer should start at.
type initialSleeper interface {
	initialSleep() time.Duration
}

// CalculatorOption configures the shared min/max/decay/attack knobs
// that (some of) the Calculator implementations below expose.
type CalculatorOption func(*base)

// MinSleep sets the minimum sleep time.
func MinSleep(d time.Duration) CalculatorOption { return func(b *base) { b.minSleep = d } }

// MaxSleep sets the maximum sleep time.
func MaxSleep(d time.Duration) CalculatorOption { return func(b *base) { b.maxSleep = d } }

// DecayConstant sets the decay constant used when a call succeeds.
func DecayConstant(n uint) CalculatorOption { return func(b *base) { b.decayConstant = n } }

// AttackConstant sets the attack constant used when a call is retried.
func AttackConstant(n uint) CalculatorOption { return func(b *base) { b.attackConstant = n } }

// Burst sets the number of calls allowed before a calculator that
// implements bursting (GoogleDrive) starts inserting delay.
func Burst(n int) CalculatorOption { return func(b *base) { b.burst = n } }

type base struct {
	minSleep       time.Duration
	maxSleep       time.Duration
	decayConstant  uint
	attackConstant uint
	burst          int
}

func newBase(defaultMin, defaultMax time.Duration, decay, attack uint, options []CalculatorOption) base {
	b := base{
		minSleep:       defaultMin,
		maxSleep:       defaultMax,
		decayConstant:  decay,
		attackConstant: attack,
	}
	for _, option := range options {
		option(&b)
	}
	return b
}

func (b *base) initialSleep() time.Duration { return b.minSleep }

// Default is the general purpose exponential-decay / harmonic-attack
// calculator. On success the sleep time decays geometrically towards
// minSleep; on retry it grows by 1/(2^attackConstant-1) of itself,
// capped at maxSleep. attackConstant == 0 jumps straight to maxSleep.
type Default struct {
	base
}

// NewDefault creates a Default calculator. Defaults: minSleep 10ms,
// maxSleep 2s, decayConstant 2, attackConstant 1.
func NewDefault(options ...CalculatorOption) *Default {
	return &Default{base: newBase(10*time.Millisecond, 2*time.Second, 2, 1, options)}
}

// Calculate implements Calculator.
func (d *Default) Calculate(state State) time.Duration {
	if state.ConsecutiveRetries == 0 {
		sleepTime := state.SleepTime - state.SleepTime>>d.decayConstant
		if sleepTime < d.minSleep {
			sleepTime = d.minSleep
		}
		return sleepTime
	}
	if d.attackConstant == 0 {
		return d.maxSleep
	}
	denom := time.Duration((uint(1) << d.attackConstant) - 1)
	sleepTime := state.SleepTime + state.SleepTime/denom
	if sleepTime > d.maxSleep {
		sleepTime = d.maxSleep
	}
	return sleepTime
}

// S3 is tuned for S3-style services: decay collapses all the way to 0
// once under minSleep (instead of floor-clamping at minSleep) and
// attack is a straight doubling.
type S3 struct {
	base
}

// NewS3 creates an S3 calculator. Defaults: minSleep 10ms, maxSleep 2s,
// decayConstant 1.
func NewS3(options ...CalculatorOption) *S3 {
	return &S3{base: newBase(10*time.Millisecond, 2*time.Second, 1, 1, options)}
}

// Calculate implements Calculator.
func (s *S3) Calculate(state State) time.Duration {
	if state.ConsecutiveRetries == 0 {
		sleepTime := state.SleepTime - state.SleepTime>>s.decayConstant
		if sleepTime < s.minSleep {
			sleepTime = 0
		}
		return sleepTime
	}
	sleepTime := state.SleepTime * 2
	if sleepTime < s.minSleep {
		sleepTime = s.minSleep
	}
	if sleepTime > s.maxSleep {
		sleepTime = s.maxSleep
	}
	return sleepTime
}

// GoogleDrive allows burst calls for free, then backs off
// exponentially based purely on the consecutive retry count (not the
// previous sleep time), adding up to 1 second of jitter.
type GoogleDrive struct {
	base
	calls int
}

// NewGoogleDrive creates a GoogleDrive calculator. Defaults: minSleep
// 100ms, maxSleep 16s, burst 100.
func NewGoogleDrive(options ...CalculatorOption) *GoogleDrive {
	g := &GoogleDrive{base: newBase(100*time.Millisecond, 16*time.Second, 0, 0, options)}
	if g.burst == 0 {
		g.burst = 100
	}
	return g
}

// Calculate implements Calculator.
func (g *GoogleDrive) Calculate(state State) time.Duration {
	if state.ConsecutiveRetries == 0 {
		g.calls++
		if g.calls <= g.burst {
			return 0
		}
		return g.minSleep
	}
	g.calls = 0
	consecutive := uint(state.ConsecutiveRetries - 1)
	sleepTime := time.Duration(1) << consecutive * time.Second
	if sleepTime > g.maxSleep {
		sleepTime = g.maxSleep
	}
	return sleepTime + time.Duration(rand.Int63n(int64(time.Second)))
}

// AzureIMDS backs off the way the Azure instance metadata service
// recommends: double the previous sleep and add 2 seconds.
type AzureIMDS struct {
	base
}

// NewAzureIMDS creates an AzureIMDS calculator. Default maxSleep 64s.
func NewAzureIMDS(options ...CalculatorOption) *AzureIMDS {
	return &AzureIMDS{base: newBase(0, 64*time.Second, 0, 0, options)}
}

// Calculate implements Calculator.
func (a *AzureIMDS) Calculate(state State) time.Duration {
	if state.ConsecutiveRetries == 0 {
		return 0
	}
	sleepTime := 2*state.SleepTime + 2*time.Second
	if sleepTime > a.maxSleep {
		sleepTime = a.maxSleep
	}
	return sleepTime
}

// Azure backs off as delay = min(maxSleep, delayFactor*2^k),
// randomized within ±randomizationFactor.
type Azure struct {
	base
	delayFactor         time.Duration
	randomizationFactor float64
}

// NewAzure creates an Azure calculator with the given delay factor and
// randomization factor on top of the shared min/max options.
func NewAzure(delayFactor time.Duration, randomizationFactor float64, options ...CalculatorOption) *Azure {
	return &Azure{
		base:                newBase(delayFactor, 30*time.Second, 0, 0, options),
		delayFactor:         delayFactor,
		randomizationFactor: randomizationFactor,
	}
}

// Calculate implements Calculator. state.ConsecutiveRetries is used as
// the zero-indexed attempt number k.
func (a *Azure) Calculate(state State) time.Duration {
	k := state.ConsecutiveRetries
	capped := a.delayFactor * (1 << uint(k))
	if capped > a.maxSleep || capped <= 0 {
		capped = a.maxSleep
	}
	if a.randomizationFactor <= 0 {
		return capped
	}
	lo := 1 - a.randomizationFactor
	spread := 2 * a.randomizationFactor
	factor := lo + rand.Float64()*spread
	return time.Duration(float64(capped) * factor)
}
