package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicClock_StartsAtZero(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(0), clock.Current())
}

func TestDeterministicClock_NextIncrementsMonotonically(t *testing.T) {
	clock := NewDeterministicClock()

	assert.Equal(t, int64(1), clock.Next())
	assert.Equal(t, int64(2), clock.Next())
	assert.Equal(t, int64(2), clock.Current())
}

func TestDeterministicClock_Now(t *testing.T) {
	clock := NewDeterministicClock()

	assert.Equal(t, Epoch.Add(time.Second), clock.Now())
	assert.Equal(t, Epoch.Add(2*time.Second), clock.Now())
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock()
	clock.Next()
	clock.Next()
	clock.Reset()

	assert.Equal(t, int64(0), clock.Current())
	assert.Equal(t, int64(1), clock.Next())
}

func TestDeterministicClock_ConcurrentAccess(t *testing.T) {
	clock := NewDeterministicClock()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Next()
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), clock.Current())
}

func TestSequentialIDs(t *testing.T) {
	g := NewSequentialIDs("cmd")
	assert.Equal(t, "cmd-1", g.Generate())
	assert.Equal(t, "cmd-2", g.Generate())

	assert.Equal(t, "id-1", NewSequentialIDs("").Generate())
}

func TestFixtures_Kinds(t *testing.T) {
	assert.Equal(t, "duct", string(Duct("d", "").Kind))
	assert.Equal(t, "equipment", string(Diffuser("s", 10, "d").Kind))
	assert.Equal(t, "fitting", string(Fitting("f", "").Kind))
	assert.Equal(t, "room", string(Room("r", "").Kind))
	assert.Equal(t, "d", Diffuser("s", 10, "d").ConnectedTo)
}
