package notify

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/go-telegram/bot"
)

// TelegramSink sends digests to one Telegram chat. The bot client is built
// on first send because construction talks to the Telegram API.
type TelegramSink struct {
	token  string
	chatID any

	once    sync.Once
	bot     *bot.Bot
	initErr error
}

func NewTelegramSink(token, chat string) (*TelegramSink, error) {
	if token == "" {
		token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if chat == "" {
		chat = os.Getenv("TELEGRAM_CHAT_ID")
	}
	if token == "" || chat == "" {
		return nil, fmt.Errorf("telegram: bot token and chat id required (set TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID)")
	}

	// numeric ids go over the wire as integers, @channel names as strings
	var chatID any = chat
	if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
		chatID = id
	}

	return &TelegramSink{token: token, chatID: chatID}, nil
}

func (s *TelegramSink) Name() string { return "telegram" }

func (s *TelegramSink) Send(ctx context.Context, n Notification) error {
	s.once.Do(func() {
		s.bot, s.initErr = bot.New(s.token)
	})
	if s.initErr != nil {
		return fmt.Errorf("telegram: creating bot: %w", s.initErr)
	}

	for _, chunk := range SplitMessage(n.Render(), telegramMaxMessageLen) {
		_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: s.chatID,
			Text:   chunk,
		})
		if err != nil {
			return fmt.Errorf("telegram: sending message: %w", err)
		}
	}
	return nil
}
