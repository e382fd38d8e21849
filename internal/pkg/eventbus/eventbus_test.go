package eventbus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func newBus(t *testing.T, cfg Config) *Bus {
	t.Helper()
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.NewRegistry()
	}
	b := New(cfg)
	t.Cleanup(b.Close)
	return b
}

func TestEachSubscriberReceivesEvent(t *testing.T) {
	b := newBus(t, Config{Workers: 2, QueueSize: 8, MaxAttempts: 1})

	var mu sync.Mutex
	got := map[string]any{}
	for _, name := range []string{"a", "b"} {
		name := name
		b.Subscribe("post.published", name, func(_ context.Context, ev any) error {
			mu.Lock()
			got[name] = ev
			mu.Unlock()
			return nil
		})
	}
	b.Subscribe("other", "c", func(context.Context, any) error {
		t.Error("unrelated topic delivered")
		return nil
	})

	b.Publish(context.Background(), "post.published", 42)
	b.Close()

	require.Equal(t, map[string]any{"a": 42, "b": 42}, got)
}

func TestFailingSubscriberIsRetriedAndIsolated(t *testing.T) {
	b := newBus(t, Config{Workers: 1, QueueSize: 8, MaxAttempts: 3, RetryBackoff: time.Millisecond})

	var flaky, healthy atomic.Int32
	b.Subscribe("t", "flaky", func(context.Context, any) error {
		if flaky.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	})
	b.Subscribe("t", "healthy", func(context.Context, any) error {
		healthy.Add(1)
		return nil
	})

	b.Publish(context.Background(), "t", "ev")
	b.Close()

	require.Equal(t, int32(3), flaky.Load())
	require.Equal(t, int32(1), healthy.Load())
	require.Equal(t, 1.0, testutil.ToFloat64(b.deliveries.WithLabelValues("flaky", "ok")))
	require.Equal(t, 2.0, testutil.ToFloat64(b.deliveries.WithLabelValues("flaky", "retry")))
}

func TestPanickingSubscriberGivesUpAfterMaxAttempts(t *testing.T) {
	b := newBus(t, Config{Workers: 1, QueueSize: 1, MaxAttempts: 2})

	var calls atomic.Int32
	b.Subscribe("t", "bad", func(context.Context, any) error {
		calls.Add(1)
		panic("boom")
	})

	require.NotPanics(t, func() {
		b.Publish(context.Background(), "t", nil)
		b.Close()
	})
	require.Equal(t, int32(2), calls.Load())
	require.Equal(t, 1.0, testutil.ToFloat64(b.deliveries.WithLabelValues("bad", "failed")))
}

func TestPublishSurvivesCanceledContext(t *testing.T) {
	b := newBus(t, Config{Workers: 1, QueueSize: 1, MaxAttempts: 1})

	var ctxErr atomic.Value
	b.Subscribe("t", "s", func(ctx context.Context, _ any) error {
		ctxErr.Store(ctx.Err() == nil)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.Publish(ctx, "t", nil)
	b.Close()

	require.Equal(t, true, ctxErr.Load())
}

func TestFullQueueStillDelivers(t *testing.T) {
	b := newBus(t, Config{Workers: 1, QueueSize: 0, MaxAttempts: 1})

	release := make(chan struct{})
	var n atomic.Int32
	b.Subscribe("t", "slow", func(context.Context, any) error {
		<-release
		n.Add(1)
		return nil
	})

	for i := 0; i < 5; i++ {
		b.Publish(context.Background(), "t", i)
	}
	close(release)
	b.Close()

	require.Equal(t, int32(5), n.Load())
}

func TestPublishAfterCloseIsDropped(t *testing.T) {
	b := newBus(t, Config{Workers: 1, MaxAttempts: 1})
	var n atomic.Int32
	b.Subscribe("t", "s", func(context.Context, any) error {
		n.Add(1)
		return nil
	})
	b.Close()
	b.Publish(context.Background(), "t", nil)
	require.Equal(t, int32(0), n.Load())
}
