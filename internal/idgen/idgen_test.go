package idgen

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomConcurrentUnique(t *testing.T) {
	gen := NewRandom(NewWindow(time.Minute, 0))

	const workers, perWorker = 8, 500
	ids := make(chan uint64, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				ids <- gen.Next()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]struct{}, workers*perWorker)
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %d", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, workers*perWorker)
}

func TestRandomRedrawsOnCollision(t *testing.T) {
	draws := []uint64{5, 5, 5, 9}
	gen := &Random{
		Window: NewWindow(time.Minute, 10),
		Source: func() uint64 {
			id := draws[0]
			draws = draws[1:]
			return id
		},
	}

	assert.Equal(t, uint64(5), gen.Next())
	assert.Equal(t, uint64(9), gen.Next())
	assert.Empty(t, draws)
}

func TestRandomWithoutWindow(t *testing.T) {
	gen := &Random{Source: func() uint64 { return 4 }}
	assert.Equal(t, uint64(4), gen.Next())
	assert.Equal(t, uint64(4), gen.Next())
}

func TestWindowExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	w := NewWindow(time.Second, 10)
	w.now = func() time.Time { return now }

	require.True(t, w.Claim(1))
	assert.False(t, w.Claim(1))

	now = now.Add(2 * time.Second)
	assert.True(t, w.Claim(1))
	assert.False(t, w.Claim(1))
}

func TestWindowEvictsOldest(t *testing.T) {
	w := NewWindow(time.Hour, 2)
	require.True(t, w.Claim(1))
	require.True(t, w.Claim(2))
	require.True(t, w.Claim(3))

	assert.Equal(t, 2, w.Len())
	assert.True(t, w.Claim(1))
	assert.False(t, w.Claim(3))
}

func TestWindowDropsExpiredOnClaim(t *testing.T) {
	now := time.Unix(1000, 0)
	w := NewWindow(time.Second, 10)
	w.now = func() time.Time { return now }

	w.Claim(1)
	w.Claim(2)
	now = now.Add(5 * time.Second)
	w.Claim(3)
	assert.Equal(t, 1, w.Len())
}

func TestFunc(t *testing.T) {
	var gen Generator = Func(func() uint64 { return 11 })
	assert.Equal(t, uint64(11), gen.Next())
}
