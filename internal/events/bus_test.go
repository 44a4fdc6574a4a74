package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var got []string
	bus.Subscribe("x", func(ctx context.Context, payload any) error {
		got = append(got, "first:"+payload.(string))
		return nil
	})
	bus.Subscribe("x", func(ctx context.Context, payload any) error {
		got = append(got, "second:"+payload.(string))
		return nil
	})
	bus.Subscribe("y", func(ctx context.Context, payload any) error {
		got = append(got, "other")
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), "x", "a"))
	assert.Equal(t, []string{"first:a", "second:a"}, got)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus()
	assert.NoError(t, bus.Publish(context.Background(), "nobody.listens", 1))
	assert.Error(t, bus.Publish(context.Background(), "", 1))
}

func TestFirstErrorStopsDelivery(t *testing.T) {
	bus := NewBus()
	boom := errors.New("boom")
	calls := 0
	bus.Subscribe("x", func(ctx context.Context, payload any) error {
		calls++
		return boom
	})
	bus.Subscribe("x", func(ctx context.Context, payload any) error {
		calls++
		return nil
	})

	err := bus.Publish(context.Background(), "x", nil)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "x")
	assert.Equal(t, 1, calls)
}

func TestOnTypedPayload(t *testing.T) {
	bus := NewBus()
	var got Change[int]
	On(bus, "n.updated", func(ctx context.Context, c Change[int]) error {
		got = c
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), "n.updated", Change[int]{Previous: 1, Current: 2}))
	assert.Equal(t, Change[int]{Previous: 1, Current: 2}, got)

	err := bus.Publish(context.Background(), "n.updated", "wrong")
	assert.ErrorContains(t, err, "unexpected payload")
}

func TestConcurrentSubscribeAndPublish(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	count := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			bus.Subscribe("c", func(ctx context.Context, payload any) error {
				mu.Lock()
				count++
				mu.Unlock()
				return nil
			})
		}()
		go func() {
			defer wg.Done()
			_ = bus.Publish(context.Background(), "c", nil)
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, bus.Subscribers("c"))
	require.NoError(t, bus.Publish(context.Background(), "c", nil))
	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, count, 20)
}
