package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrozenClock_DefaultsToEpoch(t *testing.T) {
	clock := NewFrozenClock(time.Time{})
	assert.Equal(t, Epoch, clock.Now())
}

func TestFrozenClock_DoesNotMoveOnItsOwn(t *testing.T) {
	start := time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)
	clock := NewFrozenClock(start)

	assert.Equal(t, start, clock.Now())
	assert.Equal(t, start, clock.Now())
}

func TestFrozenClock_Advance(t *testing.T) {
	clock := NewFrozenClock(time.Time{})

	assert.Equal(t, Epoch.Add(250*time.Millisecond), clock.Advance(250*time.Millisecond))
	assert.Equal(t, Epoch.Add(time.Second), clock.Advance(750*time.Millisecond))
	assert.Equal(t, Epoch.Add(time.Second), clock.Now())
}

func TestFrozenClock_Reset(t *testing.T) {
	clock := NewFrozenClock(time.Time{})
	clock.Advance(time.Hour)

	clock.Reset(time.Time{})
	assert.Equal(t, Epoch, clock.Now())
}

func TestFrozenClock_ThreadSafe(t *testing.T) {
	clock := NewFrozenClock(time.Time{})
	const goroutines = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Millisecond)
			_ = clock.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, Epoch.Add(goroutines*time.Millisecond), clock.Now())
}
