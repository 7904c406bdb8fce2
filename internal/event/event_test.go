package event_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduverse/typehub/internal/event"
)

func TestBus_PublishSubscribe(t *testing.T) {
	type (
		inputs struct {
			published   []event.Event
			subscribers []subscriber
		}

		outputs struct {
			received map[string][]event.Event
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"a single subscriber should receive correct event": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("badges.awarded"),
						eventWithName("leaderboard.updated"),
					},
					subscribers: []subscriber{
						{
							name:        "s1",
							subscribeTo: []string{"badges.awarded"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{eventWithName("badges.awarded")}, out.received["s1"])
			},
		},

		"a single subscriber should receive all dispatched event": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("badges.awarded"),
						eventWithName("badges.awarded"),
					},
					subscribers: []subscriber{
						{
							name:        "s1",
							subscribeTo: []string{"badges.awarded"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{eventWithName("badges.awarded"), eventWithName("badges.awarded")}, out.received["s1"])
			},
		},

		"an event should be dispatched to all subscribers": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("badges.awarded"),
					},
					subscribers: []subscriber{
						{
							name:        "s1",
							subscribeTo: []string{"badges.awarded"},
						},
						{
							name:        "s2",
							subscribeTo: []string{"badges.awarded"},
						},
						{
							name:        "s3",
							subscribeTo: []string{"badges.awarded"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{eventWithName("badges.awarded")}, out.received["s1"])
				assert.ElementsMatch(t, []event.Event{eventWithName("badges.awarded")}, out.received["s2"])
				assert.ElementsMatch(t, []event.Event{eventWithName("badges.awarded")}, out.received["s3"])
			},
		},

		"multiple events should be dispatched correctly multiple subscribers": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("badges.awarded"),
						eventWithName("leaderboard.updated"),
						eventWithName("badges.awarded"),
						eventWithName("lesson.completed"),
					},
					subscribers: []subscriber{
						{
							name:        "s1",
							subscribeTo: []string{"badges.awarded"},
						},
						{
							name:        "s2",
							subscribeTo: []string{"badges.awarded", "leaderboard.updated"},
						},
						{
							name:        "s3",
							subscribeTo: []string{"lesson.completed", "leaderboard.updated"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{eventWithName("badges.awarded"), eventWithName("badges.awarded")}, out.received["s1"])
				assert.ElementsMatch(t, []event.Event{eventWithName("badges.awarded"), eventWithName("badges.awarded"), eventWithName("leaderboard.updated")}, out.received["s2"])
				assert.ElementsMatch(t, []event.Event{eventWithName("leaderboard.updated"), eventWithName("lesson.completed")}, out.received["s3"])
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := tt.arrange()
			mu := sync.Mutex{}
			out := outputs{received: make(map[string][]event.Event)}

			b := event.NewBus()
			for _, s := range in.subscribers {
				for _, e := range s.subscribeTo {
					b.Subscribe(e, func(ctx context.Context, e event.Event) error {
						mu.Lock()
						out.received[s.name] = append(out.received[s.name], e)
						mu.Unlock()
						return nil
					})
				}
			}

			for _, e := range in.published {
				b.Publish(context.Background(), e)
			}
			b.Stop()

			tt.assert(t, out)
		})
	}
}

type eventWithName string

func (e eventWithName) Name() string {
	return string(e)
}

type subscriber struct {
	name        string
	subscribeTo []string
}

func TestBus_PublishWithoutSubscribers(t *testing.T) {
	b := event.NewBus()
	b.Publish(context.Background(), eventWithName("nobody.listens"))
	b.Stop()
}

func TestBus_HandlerPanicDoesNotStopBus(t *testing.T) {
	b := event.NewBus()

	var calls atomic.Int32
	b.Subscribe("badges.awarded", func(ctx context.Context, e event.Event) error {
		calls.Add(1)
		panic("boom")
	})

	b.Publish(context.Background(), eventWithName("badges.awarded"))
	b.Publish(context.Background(), eventWithName("badges.awarded"))
	b.Stop()

	require.Equal(t, int32(2), calls.Load())
}

func TestBus_SlowTopicDoesNotBlockOtherTopics(t *testing.T) {
	b := event.NewBus(event.WithPoolSize(1))

	release := make(chan struct{})
	b.Subscribe("slow", func(ctx context.Context, e event.Event) error {
		<-release
		return nil
	})

	done := make(chan struct{})
	b.Subscribe("fast", func(ctx context.Context, e event.Event) error {
		close(done)
		return nil
	})

	b.Publish(context.Background(), eventWithName("slow"))
	b.Publish(context.Background(), eventWithName("fast"))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fast handler was blocked by slow topic")
	}

	close(release)
	b.Stop()
}
