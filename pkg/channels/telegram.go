// amicooked - developer skill assessment with a coaching agent
// License: MIT
//
// Copyright (c) 2026 amicooked contributors

package channels

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Champion2005/amicooked/pkg/bus"
	"github.com/Champion2005/amicooked/pkg/config"
	"github.com/Champion2005/amicooked/pkg/logger"
)

// TelegramChannel runs the bot in polling mode. Commands that only need
// static text answer locally; everything else goes through the bus.
type TelegramChannel struct {
	*BaseChannel
	bot          *tgbotapi.BotAPI
	config       config.TelegramConfig
	updates      tgbotapi.UpdatesChannel
	stopThinking sync.Map // chatID -> chan struct{}
}

func NewTelegramChannel(cfg config.TelegramConfig, b *bus.MessageBus) (*TelegramChannel, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramChannel{
		BaseChannel: NewBaseChannel("telegram", b, cfg.AllowFrom),
		bot:         bot,
		config:      cfg,
	}, nil
}

func (c *TelegramChannel) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	c.updates = c.bot.GetUpdatesChan(u)
	c.setRunning(true)

	botInfo, err := c.bot.GetMe()
	if err != nil {
		return fmt.Errorf("get bot info: %w", err)
	}
	logger.InfoC("telegram", fmt.Sprintf("Bot @%s connected", botInfo.UserName))

	commands := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Start the bot"},
		tgbotapi.BotCommand{Command: "help", Description: "Show available commands"},
		tgbotapi.BotCommand{Command: "analyze", Description: "Run a fresh skill assessment"},
		tgbotapi.BotCommand{Command: "roast", Description: "Get roasted about your habits"},
		tgbotapi.BotCommand{Command: "level", Description: "Show your current level"},
		tgbotapi.BotCommand{Command: "memory", Description: "Show or toggle agent memory"},
		tgbotapi.BotCommand{Command: "reset", Description: "End the current session"},
	)
	if _, err := c.bot.Request(commands); err != nil {
		logger.WarnC("telegram", fmt.Sprintf("Failed to register command menu: %v", err))
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-c.updates:
				if !ok {
					logger.WarnC("telegram", "Updates channel closed")
					return
				}
				if update.Message != nil {
					c.handleMessage(update.Message)
				}
			}
		}
	}()

	return nil
}

func (c *TelegramChannel) Stop(ctx context.Context) error {
	c.setRunning(false)
	if c.updates != nil {
		c.bot.StopReceivingUpdates()
		c.updates = nil
	}
	logger.InfoC("telegram", "Bot stopped")
	return nil
}

// Send delivers one reply, chunked under Telegram's message size limit.
func (c *TelegramChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("telegram bot not running")
	}

	chatID, err := parseChatID(msg.ChatID)
	if err != nil {
		return fmt.Errorf("invalid chat ID: %w", err)
	}

	if stop, ok := c.stopThinking.Load(msg.ChatID); ok {
		close(stop.(chan struct{}))
		c.stopThinking.Delete(msg.ChatID)
	}

	const maxLen = 4000
	for i, chunk := range splitMessage(msg.Content, maxLen) {
		if i > 0 {
			time.Sleep(500 * time.Millisecond)
		}
		if err := c.sendWithRetry(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			logger.WarnC("telegram", fmt.Sprintf("Failed to send chunk: %v", err))
		}
	}

	return nil
}

// sendWithRetry retries once Telegram reports Too Many Requests, honoring
// the suggested wait up to 10 seconds.
func (c *TelegramChannel) sendWithRetry(msg tgbotapi.Chattable) error {
	const maxRetries = 2
	for attempt := 0; attempt <= maxRetries; attempt++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}

		errStr := err.Error()
		if !strings.Contains(errStr, "Too Many Requests") && !strings.Contains(errStr, "retry after") {
			return err
		}

		waitSeconds := 3
		if idx := strings.Index(errStr, "retry after "); idx >= 0 {
			fmt.Sscanf(errStr[idx+len("retry after "):], "%d", &waitSeconds)
		}
		if waitSeconds > 10 {
			waitSeconds = 10
		}
		logger.WarnC("telegram", fmt.Sprintf("Rate limited, waiting %ds (attempt %d/%d)", waitSeconds, attempt+1, maxRetries))
		time.Sleep(time.Duration(waitSeconds) * time.Second)
	}
	return fmt.Errorf("gave up after %d rate limit retries", maxRetries)
}

func (c *TelegramChannel) handleMessage(message *tgbotapi.Message) {
	user := message.From
	if user == nil {
		return
	}

	senderID := fmt.Sprintf("%d", user.ID)
	if user.UserName != "" {
		senderID = fmt.Sprintf("%d|%s", user.ID, user.UserName)
	}
	chatID := fmt.Sprintf("%d", message.Chat.ID)

	if message.IsCommand() {
		c.handleCommand(message, senderID, chatID)
		return
	}

	text := strings.TrimSpace(message.Text)
	if text == "" {
		return
	}

	c.startTyping(message.Chat.ID, chatID)
	c.Publish(senderID, chatID, text, "", "", c.metadata(message))
}

func (c *TelegramChannel) handleCommand(message *tgbotapi.Message, senderID, chatID string) {
	args := strings.TrimSpace(message.CommandArguments())

	switch message.Command() {
	case "start":
		c.reply(message.Chat.ID, "amicooked checks how cooked you are as a developer.\n\nSend any message to talk to the coach, or /analyze to get scored. /help lists everything.")
	case "help":
		c.reply(message.Chat.ID, strings.Join([]string{
			"/analyze - run a fresh skill assessment",
			"/roast [topic] - get roasted, optionally about something specific",
			"/level - your current level and verdict",
			"/memory [on|off] - show or toggle agent memory",
			"/reset - end the session (memory extraction runs)",
			"Anything else is a normal chat message.",
		}, "\n"))
	case "analyze":
		c.startTyping(message.Chat.ID, chatID)
		c.Publish(senderID, chatID, "", "", "analyze", c.metadata(message))
	case "roast":
		if args == "" {
			args = "Roast my developer habits."
		}
		c.startTyping(message.Chat.ID, chatID)
		c.Publish(senderID, chatID, args, "roast", "", c.metadata(message))
	case "level":
		c.Publish(senderID, chatID, "", "", "level", c.metadata(message))
	case "memory":
		c.Publish(senderID, chatID, strings.ToLower(args), "", "memory", c.metadata(message))
	case "reset":
		c.Publish(senderID, chatID, "", "", "reset", c.metadata(message))
	default:
		c.reply(message.Chat.ID, fmt.Sprintf("Unknown command: /%s\nType /help for the list.", message.Command()))
	}
}

func (c *TelegramChannel) metadata(message *tgbotapi.Message) map[string]string {
	user := message.From
	return map[string]string{
		"user_id":    fmt.Sprintf("%d", user.ID),
		"username":   user.UserName,
		"first_name": user.FirstName,
	}
}

func (c *TelegramChannel) reply(chatID int64, text string) {
	if err := c.sendWithRetry(tgbotapi.NewMessage(chatID, text)); err != nil {
		logger.WarnC("telegram", fmt.Sprintf("Failed to send command reply: %v", err))
	}
}

// startTyping keeps the typing indicator alive until the reply lands.
func (c *TelegramChannel) startTyping(chatID int64, chatKey string) {
	c.bot.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))

	stopChan := make(chan struct{})
	if prev, loaded := c.stopThinking.Swap(chatKey, stopChan); loaded {
		close(prev.(chan struct{}))
	}

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stopChan:
				return
			case <-ticker.C:
				c.bot.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
			}
		}
	}()
}

func parseChatID(chatIDStr string) (int64, error) {
	var id int64
	_, err := fmt.Sscanf(chatIDStr, "%d", &id)
	return id, err
}

// splitMessage splits text into chunks of maxLen, preferring newlines.
func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}

		splitAt := maxLen
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > maxLen/2 {
			splitAt = idx + 1
		}

		chunks = append(chunks, strings.TrimRight(text[:splitAt], "\n "))
		text = text[splitAt:]
	}

	return chunks
}
