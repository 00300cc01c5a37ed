package circuit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := NewBreaker("orders", 3, time.Minute)
	assert.True(t, b.Allow())

	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreakerProbesAfterCooldown(t *testing.T) {
	b := NewBreaker("orders", 1, 10*time.Millisecond)
	b.RecordFailure()
	assert.False(t, b.Allow())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())

	// a failure during the probe reopens immediately
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow())
	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
	assert.Zero(t, b.ConsecutiveFailures())
}

func TestBreakerStateChangeHook(t *testing.T) {
	b := NewBreaker("orders", 1, time.Minute)
	var mu sync.Mutex
	var transitions []State
	done := make(chan struct{}, 1)
	b.OnStateChange(func(_ string, _, to State) {
		mu.Lock()
		transitions = append(transitions, to)
		mu.Unlock()
		done <- struct{}{}
	})

	b.RecordFailure()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("state change hook never fired")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateOpen}, transitions)
}
