package federation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/atomic"
	"go.uber.org/goleak"
)

type countingRefresher struct {
	calls  *atomic.Int64
	forced *atomic.Bool
}

func newCountingRefresher() countingRefresher {
	return countingRefresher{calls: atomic.NewInt64(0), forced: atomic.NewBool(false)}
}

func (r countingRefresher) RefreshSchema(_ context.Context, force bool) (*FederatedSchema, error) {
	r.calls.Inc()
	if force {
		r.forced.Store(true)
	}
	return &FederatedSchema{}, nil
}

func TestPoller_Run(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("should refresh on start and on every tick", func(t *testing.T) {
		refresher := newCountingRefresher()
		poller := NewPoller(refresher, 5*time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			poller.Run(ctx)
			close(done)
		}()

		assert.Eventually(t, func() bool {
			return refresher.calls.Load() >= 3
		}, time.Second, time.Millisecond)

		cancel()
		<-done
		assert.False(t, refresher.forced.Load())
	})

	t.Run("should refresh once without interval", func(t *testing.T) {
		refresher := newCountingRefresher()
		poller := NewPoller(refresher, 0)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			poller.Run(ctx)
			close(done)
		}()

		assert.Eventually(t, func() bool {
			return refresher.calls.Load() == 1
		}, time.Second, time.Millisecond)
		time.Sleep(10 * time.Millisecond)
		assert.Equal(t, int64(1), refresher.calls.Load())

		cancel()
		<-done
	})

	t.Run("should not refresh with a cancelled context", func(t *testing.T) {
		refresher := newCountingRefresher()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		NewPoller(refresher, time.Millisecond).Run(ctx)
		assert.Equal(t, int64(0), refresher.calls.Load())
	})
}
