package channels

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/Champion2005/amicooked/pkg/bus"
)

// Channel is one chat surface (Telegram, Discord). Channels publish user
// turns to the bus and deliver replies the gateway publishes back.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg bus.OutboundMessage) error
	IsRunning() bool
	IsAllowed(senderID string) bool
}

// BaseChannel carries the allowlist and publishing logic every channel
// shares.
type BaseChannel struct {
	bus       *bus.MessageBus
	running   atomic.Bool
	name      string
	allowList []string
}

func NewBaseChannel(name string, b *bus.MessageBus, allowList []string) *BaseChannel {
	return &BaseChannel{
		bus:       b,
		name:      name,
		allowList: allowList,
	}
}

func (c *BaseChannel) Name() string {
	return c.name
}

func (c *BaseChannel) IsRunning() bool {
	return c.running.Load()
}

// IsAllowed checks the sender against the allowlist. An empty allowlist
// admits everyone. Sender ids may carry a display suffix ("12345|name");
// the numeric part alone also matches.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowList) == 0 {
		return true
	}

	idPart := senderID
	if idx := strings.Index(senderID, "|"); idx > 0 {
		idPart = senderID[:idx]
	}

	for _, allowed := range c.allowList {
		if senderID == allowed || idPart == allowed {
			return true
		}
	}

	return false
}

// Publish pushes one turn or command onto the bus after the allowlist
// check. The session identity stays sender-derived; SessionKey is left
// for callers that pin sessions explicitly.
func (c *BaseChannel) Publish(senderID, chatID, content, mode, command string, metadata map[string]string) {
	if !c.IsAllowed(senderID) {
		return
	}

	c.bus.PublishInbound(bus.InboundMessage{
		Channel:  c.name,
		SenderID: senderID,
		ChatID:   chatID,
		Content:  content,
		Mode:     mode,
		Command:  command,
		Metadata: metadata,
	})
}

func (c *BaseChannel) setRunning(running bool) {
	c.running.Store(running)
}
