package channels

import (
	"context"
	"fmt"
	"sync"

	"github.com/Champion2005/amicooked/pkg/bus"
	"github.com/Champion2005/amicooked/pkg/logger"
)

// Manager owns the registered channels and pumps outbound replies from
// the bus to whichever channel each reply belongs to.
type Manager struct {
	bus *bus.MessageBus

	mu       sync.RWMutex
	channels map[string]Channel
}

func NewManager(b *bus.MessageBus) *Manager {
	return &Manager{
		bus:      b,
		channels: make(map[string]Channel),
	}
}

func (m *Manager) Register(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.Name()] = ch
}

func (m *Manager) Get(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[name]
	return ch, ok
}

// StartAll starts every registered channel. A channel that fails to start
// is logged and skipped so one bad token does not take the others down.
func (m *Manager) StartAll(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, ch := range m.channels {
		if err := ch.Start(ctx); err != nil {
			logger.WarnC("channels", fmt.Sprintf("Starting %s: %v", name, err))
			continue
		}
		logger.InfoC("channels", fmt.Sprintf("Started %s", name))
	}
}

func (m *Manager) StopAll(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, ch := range m.channels {
		if !ch.IsRunning() {
			continue
		}
		if err := ch.Stop(ctx); err != nil {
			logger.WarnC("channels", fmt.Sprintf("Stopping %s: %v", name, err))
		}
	}
}

// RunOutbound delivers bus replies until ctx ends.
func (m *Manager) RunOutbound(ctx context.Context) {
	for {
		msg, ok := m.bus.ConsumeOutbound(ctx)
		if !ok {
			return
		}

		ch, found := m.Get(msg.Channel)
		if !found || !ch.IsRunning() {
			logger.WarnC("channels", fmt.Sprintf("No running channel %q for reply to %s", msg.Channel, msg.ChatID))
			continue
		}

		if err := ch.Send(ctx, msg); err != nil {
			logger.WarnC("channels", fmt.Sprintf("Sending via %s: %v", msg.Channel, err))
		}
	}
}
