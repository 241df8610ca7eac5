package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool(t *testing.T) {
	t.Run("任务全部执行且并发不超过上限", func(t *testing.T) {
		p := NewWorkerPool(2, 16)
		p.Start(context.Background())

		var running, peak, done int32
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			ok := p.TrySubmit(func() {
				defer wg.Done()
				n := atomic.AddInt32(&running, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
						break
					}
				}
				atomic.AddInt32(&done, 1)
				atomic.AddInt32(&running, -1)
			})
			require.True(t, ok)
		}
		wg.Wait()
		p.Stop()

		assert.Equal(t, int32(10), atomic.LoadInt32(&done))
		assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	})

	t.Run("队列满时 TrySubmit 不阻塞直接拒绝", func(t *testing.T) {
		p := NewWorkerPool(1, 1)
		p.Start(context.Background())

		started := make(chan struct{})
		gate := make(chan struct{})
		require.True(t, p.TrySubmit(func() {
			close(started)
			<-gate
		}))
		<-started // 唯一的工作协程已被占住

		var queuedRan atomic.Bool
		require.True(t, p.TrySubmit(func() { queuedRan.Store(true) }))
		assert.False(t, p.TrySubmit(func() {}))

		close(gate)
		p.Stop()
		assert.True(t, queuedRan.Load())
	})
}
