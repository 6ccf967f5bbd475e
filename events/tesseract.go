package events

import (
	"context"
	"strings"

	errorsmod "cosmossdk.io/errors"

	"github.com/axelarnetwork/moi-rpc/jsonrpc"
)

// pendingTesseracts returns the tesseract events with a registration that has not seen its tesseract yet.
// It must be called with the lock held
func (m *Manager) pendingTesseracts() []Event {
	var pending []Event
	for tag, regs := range m.registrations {
		if !strings.HasPrefix(tag, tesseractTagPrefix) {
			continue
		}

		for _, reg := range regs {
			if !reg.delivered {
				pending = append(pending, reg.event)
				break
			}
		}
	}

	return pending
}

// refreshPolling runs the tesseract poller exactly while there are pending tesseract events.
// It must be called with the lock held
func (m *Manager) refreshPolling() {
	if m.poller == nil {
		return
	}

	enabled := m.IsRunning() && len(m.pendingTesseracts()) > 0
	if err := m.poller.SetEnabled(enabled); err != nil {
		m.logger.Error("failed to toggle tesseract polling", "enabled", enabled, "err", err)
	}
}

func (m *Manager) pollTesseracts(ctx context.Context) {
	m.mu.Lock()
	pending := m.pendingTesseracts()
	m.mu.Unlock()

	for _, ev := range pending {
		tesseract, err := m.lookup(ctx, ev.name)
		if err == nil && jsonrpc.IsEmpty(tesseract) {
			err = errorsmod.Wrap(jsonrpc.ErrRetryable, "empty tesseract")
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			m.logger.Debug("tesseract not available yet", "hash", ev.name, "err", err)
			continue
		}

		m.mu.Lock()
		for _, reg := range m.registrations[ev.tag] {
			reg.delivered = true
		}
		m.emit(ev, []any{tesseract})
		m.mu.Unlock()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.refreshPolling()
}
