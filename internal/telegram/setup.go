package telegram

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Verify checks a bot token and returns the bot's username.
func Verify(ctx context.Context, token string, opts Options) (string, error) {
	b, err := bot.New(token, opts.botOptions()...)
	if err != nil {
		return "", fmt.Errorf("telegram: create bot: %w", err)
	}
	me, err := b.GetMe(ctx)
	if err != nil {
		return "", fmt.Errorf("telegram: verify token: %w", err)
	}
	return me.Username, nil
}

// ChatInfo identifies the chat a message came from.
type ChatInfo struct {
	ID   int64
	Name string
}

// DetectChatID waits for any message sent to the bot and returns the chat
// it came from. The caller bounds the wait through ctx.
func DetectChatID(ctx context.Context, token string, opts Options) (ChatInfo, error) {
	found := make(chan ChatInfo, 1)

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	b, err := bot.New(token, append(opts.botOptions(),
		bot.WithAllowedUpdates(bot.AllowedUpdates{"message"}),
		bot.WithDefaultHandler(func(_ context.Context, _ *bot.Bot, update *models.Update) {
			if update.Message == nil {
				return
			}
			chat := update.Message.Chat
			name := chat.Title
			if name == "" {
				name = chat.Username
			}
			if name == "" {
				name = chat.FirstName
			}
			select {
			case found <- ChatInfo{ID: chat.ID, Name: name}:
			default:
			}
		}),
	)...)
	if err != nil {
		return ChatInfo{}, fmt.Errorf("telegram: create bot: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Start(pollCtx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	select {
	case info := <-found:
		return info, nil
	case <-ctx.Done():
		return ChatInfo{}, fmt.Errorf("telegram: no message received: %w", ctx.Err())
	}
}

// SendTest posts a plain message to chatID.
func SendTest(ctx context.Context, token, chatID, text string, opts Options) error {
	b, err := bot.New(token, opts.botOptions()...)
	if err != nil {
		return fmt.Errorf("telegram: create bot: %w", err)
	}
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}
	return nil
}

// FormatChatID renders a chat id the way it is stored.
func FormatChatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
