package writecoalescer

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedule_LastValueWins(t *testing.T) {
	c := New(30 * time.Millisecond)

	var mu sync.Mutex
	var got []int

	for i := 1; i <= 5; i++ {
		v := i
		c.Schedule(Key("item-1", "units"), func() {
			mu.Lock()
			got = append(got, v)
			mu.Unlock()
		})
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(80 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{5}, got, "only the most recent edit is persisted")
}

func TestSchedule_IndependentKeys(t *testing.T) {
	c := New(20 * time.Millisecond)

	var units, weight atomic.Int32
	c.Schedule(Key("item-1", "units"), func() { units.Add(1) })
	c.Schedule(Key("item-1", "weight"), func() { weight.Add(1) })

	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, int32(1), units.Load())
	assert.Equal(t, int32(1), weight.Load(), "different fields never replace each other")
}

func TestSchedule_FiresAfterQuietWindow(t *testing.T) {
	c := New(20 * time.Millisecond)

	var fired atomic.Bool
	c.Schedule(Key("p-1", "contribution"), func() { fired.Store(true) })

	assert.False(t, fired.Load(), "must not fire before the window elapses")

	time.Sleep(60 * time.Millisecond)
	assert.True(t, fired.Load())
}

func TestFlush(t *testing.T) {
	c := New(time.Hour)

	var count atomic.Int32
	c.Schedule(Key("a", "units"), func() { count.Add(1) })
	c.Schedule(Key("b", "units"), func() { count.Add(1) })

	c.Flush()

	assert.Equal(t, int32(2), count.Load(), "flush runs everything pending")
}
