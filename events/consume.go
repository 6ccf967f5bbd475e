package events

import (
	"context"
	"fmt"

	"github.com/go-errors/errors"

	"github.com/axelarnetwork/utils/jobs"
)

// Consume returns a job that processes every item of the channel until it is closed or the job is cancelled.
// A panicking process function fails the job
func Consume[T any](items <-chan T, process func(item T)) jobs.Job {
	return func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case item, ok := <-items:
				if !ok {
					return nil
				}

				if err := safely(func() { process(item) }); err != nil {
					return err
				}
			}
		}
	}
}

// Channel registers a listener that forwards the first argument of every emission of the event to the returned
// channel. Emissions are dropped while the channel is full
func (m *Manager) Channel(ctx context.Context, ev Event, capacity int) (<-chan any, *Listener, error) {
	ch := make(chan any, capacity)
	listener := NewListener(func(args ...any) {
		var arg any
		if len(args) > 0 {
			arg = args[0]
		}

		select {
		case ch <- arg:
		default:
			m.logger.Info("listener channel full, dropping emission", "event", ev)
		}
	})

	if err := m.On(ctx, ev, listener); err != nil {
		return nil, nil, err
	}

	return ch, listener, nil
}

func safely(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %s\n%s", r, errors.Wrap(r, 1).Stack())
		}
	}()

	f()
	return nil
}
