package channels

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/Champion2005/amicooked/pkg/bus"
	"github.com/Champion2005/amicooked/pkg/config"
	"github.com/Champion2005/amicooked/pkg/logger"
)

// DiscordChannel mirrors the Telegram surface with bang commands, since
// slash command registration needs an application setup this bot skips.
type DiscordChannel struct {
	*BaseChannel
	session *discordgo.Session
	config  config.DiscordConfig
}

func NewDiscordChannel(cfg config.DiscordConfig, b *bus.MessageBus) (*DiscordChannel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	return &DiscordChannel{
		BaseChannel: NewBaseChannel("discord", b, cfg.AllowFrom),
		session:     session,
		config:      cfg,
	}, nil
}

func (c *DiscordChannel) Start(ctx context.Context) error {
	c.session.AddHandler(c.onMessage)
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	c.setRunning(true)
	logger.InfoC("discord", fmt.Sprintf("Bot %s connected", c.session.State.User.Username))
	return nil
}

func (c *DiscordChannel) Stop(ctx context.Context) error {
	c.setRunning(false)
	if err := c.session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	logger.InfoC("discord", "Bot stopped")
	return nil
}

// Send delivers one reply, chunked under Discord's 2000 char limit.
func (c *DiscordChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("discord bot not running")
	}
	const maxLen = 1900
	for _, chunk := range splitMessage(msg.Content, maxLen) {
		if _, err := c.session.ChannelMessageSend(msg.ChatID, chunk); err != nil {
			logger.WarnC("discord", fmt.Sprintf("Failed to send chunk: %v", err))
		}
	}
	return nil
}

func (c *DiscordChannel) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	senderID := m.Author.ID
	if m.Author.Username != "" {
		senderID = m.Author.ID + "|" + m.Author.Username
	}
	chatID := m.ChannelID
	text := strings.TrimSpace(m.Content)
	if text == "" {
		return
	}

	meta := map[string]string{
		"user_id":  m.Author.ID,
		"username": m.Author.Username,
	}

	if strings.HasPrefix(text, "!") {
		c.handleCommand(s, m, senderID, chatID, text, meta)
		return
	}

	s.ChannelTyping(chatID)
	c.Publish(senderID, chatID, text, "", "", meta)
}

func (c *DiscordChannel) handleCommand(s *discordgo.Session, m *discordgo.MessageCreate, senderID, chatID, text string, meta map[string]string) {
	cmd, args, _ := strings.Cut(strings.TrimPrefix(text, "!"), " ")
	args = strings.TrimSpace(args)

	switch strings.ToLower(cmd) {
	case "help":
		c.reply(chatID, strings.Join([]string{
			"!analyze - run a fresh skill assessment",
			"!roast [topic] - get roasted, optionally about something specific",
			"!level - your current level and verdict",
			"!memory [on|off] - show or toggle agent memory",
			"!reset - end the session (memory extraction runs)",
			"Anything else is a normal chat message.",
		}, "\n"))
	case "analyze":
		s.ChannelTyping(chatID)
		c.Publish(senderID, chatID, "", "", "analyze", meta)
	case "roast":
		if args == "" {
			args = "Roast my developer habits."
		}
		s.ChannelTyping(chatID)
		c.Publish(senderID, chatID, args, "roast", "", meta)
	case "level":
		c.Publish(senderID, chatID, "", "", "level", meta)
	case "memory":
		c.Publish(senderID, chatID, strings.ToLower(args), "", "memory", meta)
	case "reset":
		c.Publish(senderID, chatID, "", "", "reset", meta)
	default:
		c.reply(chatID, fmt.Sprintf("Unknown command: !%s\nType !help for the list.", cmd))
	}
}

func (c *DiscordChannel) reply(chatID, text string) {
	if _, err := c.session.ChannelMessageSend(chatID, text); err != nil {
		logger.WarnC("discord", fmt.Sprintf("Failed to send command reply: %v", err))
	}
}
