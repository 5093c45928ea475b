package blob

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while object storage calls are being rejected
// after repeated failures.
var ErrCircuitOpen = errors.New("object storage circuit breaker is open")

type circuitState int

const (
	stateClosed circuitState = iota
	stateOpen
	stateHalfOpen
)

func (s circuitState) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breaker fails fast after maxFailures consecutive errors. After cooldown a
// single probe call is let through; its outcome closes or reopens the circuit.
type breaker struct {
	mu          sync.Mutex
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time

	st       circuitState
	failures int
	openedAt time.Time
	probing  bool
}

func newBreaker(maxFailures int, cooldown time.Duration) *breaker {
	return &breaker{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

func (b *breaker) state() circuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st
}

func (b *breaker) do(fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn()
	b.after(err)
	return err
}

func (b *breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.st {
	case stateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return ErrCircuitOpen
		}
		b.st = stateHalfOpen
		b.probing = true
	case stateHalfOpen:
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
	}
	return nil
}

func (b *breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false

	// The caller gave up; that says nothing about the backend.
	if errors.Is(err, context.Canceled) {
		return
	}

	// A missing key is a normal answer from a healthy backend.
	if err == nil || errors.Is(err, ErrNotFound) {
		b.st = stateClosed
		b.failures = 0
		return
	}

	b.failures++
	if b.st == stateHalfOpen || b.failures >= b.maxFailures {
		b.st = stateOpen
		b.openedAt = b.now()
	}
}
