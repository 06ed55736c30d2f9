package bufpool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSizes(t *testing.T) {
	t.Run("SmallClass", func(t *testing.T) {
		buf := Get(100)
		require.Len(t, buf, 100)
		assert.Equal(t, SmallSize, cap(buf))
		Put(buf)
	})

	t.Run("LargeClass", func(t *testing.T) {
		buf := Get(SmallSize + 1)
		require.Len(t, buf, SmallSize+1)
		assert.Equal(t, LargeSize, cap(buf))
		Put(buf)
	})

	t.Run("Oversized", func(t *testing.T) {
		buf := Get(LargeSize + 1)
		require.Len(t, buf, LargeSize+1)
		// Oversized buffers are not pooled; Put must not panic.
		Put(buf)
	})

	t.Run("ExactClassBoundary", func(t *testing.T) {
		buf := Get(LargeSize)
		assert.Equal(t, LargeSize, cap(buf))
		Put(buf)
	})
}

func TestConcurrentUse(t *testing.T) {
	p := New()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				buf := p.Get(LargeSize)
				buf[0] = byte(j)
				p.Put(buf)
			}
		}()
	}
	wg.Wait()
}
