package poller

import (
	"context"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/libs/service"

	"github.com/axelarnetwork/moi-rpc/jsonrpc"
)

// Poller calls a function immediately after it is started and then once per interval until it is stopped.
// It can be stopped and started again any number of times
type Poller struct {
	*service.BaseService

	interval time.Duration
	poll     func(ctx context.Context)

	toggle  sync.Mutex
	started bool
	cancel  context.CancelFunc
}

// New returns a stopped poller
func New(interval time.Duration, poll func(ctx context.Context), logger log.Logger) (*Poller, error) {
	if interval <= 0 {
		return nil, errorsmod.Wrapf(jsonrpc.ErrInvalidArgument, "polling interval must be positive, got %s", interval)
	}
	if poll == nil {
		return nil, errorsmod.Wrap(jsonrpc.ErrInvalidArgument, "poll function is required")
	}

	p := &Poller{interval: interval, poll: poll}
	p.BaseService = service.NewBaseService(logger.With("component", "poller"), "Poller", p)

	return p, nil
}

// OnStart launches the polling loop
func (p *Poller) OnStart() error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	go p.run(ctx)

	return nil
}

// OnStop cancels the polling loop without waiting for a poll in progress, so a poll may stop its own poller
func (p *Poller) OnStop() {
	p.cancel()
}

// OnReset prepares the poller to be started again
func (p *Poller) OnReset() error {
	return nil
}

// SetEnabled starts or stops the poller. Enabling a running poller or disabling a stopped one does nothing
func (p *Poller) SetEnabled(enabled bool) error {
	p.toggle.Lock()
	defer p.toggle.Unlock()

	switch {
	case enabled && p.IsRunning(), !enabled && !p.IsRunning():
		return nil
	case enabled:
		// a stopped service only starts again after a reset
		if p.started {
			if err := p.Reset(); err != nil {
				return err
			}
		}
		if err := p.Start(); err != nil {
			return err
		}
		p.started = true
		p.Logger.Debug("polling enabled", "interval", p.interval)
		return nil
	default:
		p.Logger.Debug("polling disabled")
		return p.Stop()
	}
}

func (p *Poller) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		p.poll(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
