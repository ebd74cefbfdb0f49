package scanning

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_SinglePhase(t *testing.T) {
	p := NewProgress(1)
	p.Reset(PhaseDiscover, 4)
	assert.Equal(t, 0.0, p.Percent())

	p.Add(2)
	assert.InDelta(t, 50.0, p.Percent(), 0.001)

	p.Add(2)
	assert.Less(t, p.Percent(), 100.0)

	p.Finish()
	assert.Equal(t, 100.0, p.Percent())
	assert.True(t, p.Snapshot().Finished)
}

func TestProgress_DigPhases(t *testing.T) {
	p := NewProgress(2)
	p.Reset(PhaseDiscover, 10)
	p.Add(10)
	assert.InDelta(t, 50.0, p.Percent(), 0.001)

	p.Reset(PhaseExhaustive, 100)
	assert.InDelta(t, 50.0, p.Percent(), 0.001)
	assert.Equal(t, PhaseExhaustive, p.Snapshot().Phase)

	p.Add(50)
	assert.InDelta(t, 75.0, p.Percent(), 0.001)

	p.Finish()
	assert.Equal(t, 100.0, p.Percent())
}

func TestProgress_Monotonic(t *testing.T) {
	p := NewProgress(2)
	var seen []float64
	var mu sync.Mutex
	p.AddObserver(ProgressFunc(func(s ProgressSnapshot) {
		mu.Lock()
		seen = append(seen, s.Percent)
		mu.Unlock()
	}))

	p.Reset(PhaseDiscover, 1000)
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				p.Add(1)
			}
		}()
	}
	wg.Wait()
	p.Reset(PhaseExhaustive, 0)
	p.Finish()

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, len(seen), 3)
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}
	assert.Equal(t, 100.0, seen[len(seen)-1])
}

func TestProgress_AddClampsToTotal(t *testing.T) {
	p := NewProgress(1)
	p.Reset(PhaseDiscover, 2)
	p.Add(5)
	assert.Equal(t, int64(2), p.Snapshot().Completed)
}

func TestProgress_EmptyPhase(t *testing.T) {
	p := NewProgress(1)
	p.Reset(PhaseDiscover, 0)
	assert.Equal(t, belowComplete, p.Percent())
	p.Finish()
	assert.Equal(t, 100.0, p.Percent())
}
