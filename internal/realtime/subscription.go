package realtime

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/noah-isme/acadex-api/internal/observability"
)

// Loader produces a fresh snapshot of the watched query.
type Loader[T any] func(ctx context.Context) (T, error)

// Subscription delivers snapshots of a query whenever the watched resources change.
// Only the newest undelivered snapshot is kept for slow consumers.
type Subscription[T any] struct {
	updates chan T
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// Watch starts a subscription that sends an initial snapshot and a new one
// after every change event on the given resources. Failed reloads are logged
// and the previous snapshot stays current.
func Watch[T any](ctx context.Context, hub *Hub, load Loader[T], logger zerolog.Logger, resources ...Resource) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	events, unsubscribe := hub.Subscribe(resources...)

	sub := &Subscription[T]{
		updates: make(chan T, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	label := "mixed"
	if len(resources) > 0 {
		label = string(resources[0])
	}
	gauge := observability.WatchSubscriptions().WithLabelValues(label)
	gauge.Inc()

	go func() {
		defer func() {
			unsubscribe()
			gauge.Dec()
			close(sub.updates)
			close(sub.done)
		}()

		refresh := func() {
			snapshot, err := load(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn().Err(err).Str("resource", label).Msg("failed to refresh watch snapshot")
				}
				return
			}
			sub.deliver(snapshot)
		}

		refresh()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				refresh()
			}
		}
	}()

	return sub
}

// Updates returns the snapshot channel. It is closed once the subscription ends.
func (s *Subscription[T]) Updates() <-chan T {
	return s.updates
}

// Done is closed when the subscription has fully stopped.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Cancel stops the subscription and waits until no further snapshot can be sent.
// It is safe to call more than once.
func (s *Subscription[T]) Cancel() {
	s.once.Do(s.cancel)
	<-s.done
}

func (s *Subscription[T]) deliver(snapshot T) {
	for {
		select {
		case s.updates <- snapshot:
			return
		default:
		}

		select {
		case <-s.updates:
		default:
		}
	}
}
