package blob

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAndRecovers(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newBreaker(2, time.Minute)
	b.now = func() time.Time { return clock }

	boom := errors.New("boom")
	fail := func() error { return boom }
	ok := func() error { return nil }

	assert.ErrorIs(t, b.do(fail), boom)
	assert.Equal(t, stateClosed, b.state())
	assert.ErrorIs(t, b.do(fail), boom)
	assert.Equal(t, stateOpen, b.state())

	called := false
	err := b.do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	// After cooldown one probe is allowed; a failure reopens immediately.
	clock = clock.Add(time.Minute)
	assert.ErrorIs(t, b.do(fail), boom)
	assert.Equal(t, stateOpen, b.state())

	clock = clock.Add(time.Minute)
	assert.NoError(t, b.do(ok))
	assert.Equal(t, stateClosed, b.state())
}

func TestBreakerIgnoresNotFound(t *testing.T) {
	b := newBreaker(1, time.Minute)
	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.do(func() error { return ErrNotFound }), ErrNotFound)
	}
	assert.Equal(t, stateClosed, b.state())
}

func TestBreakerIgnoresCanceledCallers(t *testing.T) {
	b := newBreaker(2, time.Minute)
	canceled := func() error { return fmt.Errorf("put object files/x: %w", context.Canceled) }
	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, b.do(canceled), context.Canceled)
	}
	assert.Equal(t, stateClosed, b.state())

	// A cancelled probe leaves the circuit half-open for the next caller.
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return clock }
	_ = b.do(func() error { return errors.New("down") })
	_ = b.do(func() error { return errors.New("down") })
	assert.Equal(t, stateOpen, b.state())

	clock = clock.Add(time.Minute)
	assert.ErrorIs(t, b.do(canceled), context.Canceled)
	assert.Equal(t, stateHalfOpen, b.state())
	assert.NoError(t, b.do(func() error { return nil }))
	assert.Equal(t, stateClosed, b.state())
}

func TestBreakerSingleProbe(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newBreaker(1, time.Second)
	b.now = func() time.Time { return clock }

	_ = b.do(func() error { return errors.New("down") })
	clock = clock.Add(2 * time.Second)

	assert.NoError(t, b.before())
	assert.Equal(t, stateHalfOpen, b.state())
	// A second caller while the probe is in flight is rejected.
	assert.ErrorIs(t, b.before(), ErrCircuitOpen)
	b.after(nil)
	assert.Equal(t, stateClosed, b.state())
}
