// amicooked - developer skill assessment with a coaching agent
// License: MIT
// Copyright (c) 2026 amicooked contributors

// Package bus decouples chat channels from the gateway: channels publish
// inbound turns, the gateway publishes outbound replies.
package bus

import (
	"context"
	"fmt"

	"github.com/Champion2005/amicooked/pkg/logger"
)

const queueSize = 100

// InboundMessage is one user turn or command arriving from a channel.
// SessionKey, when set, overrides the sender-derived session identity.
type InboundMessage struct {
	Channel    string
	SenderID   string
	ChatID     string
	Content    string
	Mode       string
	Command    string
	SessionKey string
	Metadata   map[string]string
}

// OutboundMessage is one reply heading back to a channel.
type OutboundMessage struct {
	Channel string
	ChatID  string
	Content string
}

// MessageBus carries bounded queues in both directions. Publishing to a
// full queue drops the message rather than blocking a channel's read loop.
type MessageBus struct {
	inbound  chan InboundMessage
	outbound chan OutboundMessage
}

func NewMessageBus() *MessageBus {
	return &MessageBus{
		inbound:  make(chan InboundMessage, queueSize),
		outbound: make(chan OutboundMessage, queueSize),
	}
}

func (b *MessageBus) PublishInbound(msg InboundMessage) {
	select {
	case b.inbound <- msg:
	default:
		logger.WarnC("bus", fmt.Sprintf("Inbound queue full, dropping message from %s", msg.SenderID))
	}
}

// ConsumeInbound blocks until a message arrives or ctx ends.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	select {
	case <-ctx.Done():
		return InboundMessage{}, false
	case msg := <-b.inbound:
		return msg, true
	}
}

func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	select {
	case b.outbound <- msg:
	default:
		logger.WarnC("bus", fmt.Sprintf("Outbound queue full, dropping reply for chat %s", msg.ChatID))
	}
}

// ConsumeOutbound blocks until a reply arrives or ctx ends.
func (b *MessageBus) ConsumeOutbound(ctx context.Context) (OutboundMessage, bool) {
	select {
	case <-ctx.Done():
		return OutboundMessage{}, false
	case msg := <-b.outbound:
		return msg, true
	}
}
