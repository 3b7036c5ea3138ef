// Package telegram implements the approval channel on a Telegram bot:
// notices are chat messages with inline approve and reject buttons, and
// decisions arrive as callback queries over long polling.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/xdg/gh-gate/internal/approval"
	"github.com/xdg/gh-gate/internal/clog"
)

const (
	callbackBuffer = 32
	// noopCallback is attached to the status label left after settling so
	// stray taps parse as nothing.
	noopCallback = "noop"
)

// Options configures the bot client.
type Options struct {
	// ServerURL overrides https://api.telegram.org.
	ServerURL string
	// PollWait is the long-poll window requested from the server.
	PollWait time.Duration
}

func (o Options) botOptions() []bot.Option {
	wait := o.PollWait
	if wait <= 0 {
		wait = approval.DefaultPollWait
	}
	opts := []bot.Option{
		bot.WithSkipGetMe(),
		bot.WithHTTPClient(wait, &http.Client{Timeout: wait + 10*time.Second}),
	}
	if o.ServerURL != "" {
		opts = append(opts, bot.WithServerURL(strings.TrimRight(o.ServerURL, "/")))
	}
	return opts
}

// Channel is an approval.Channel backed by one bot and one chat.
type Channel struct {
	bot    *bot.Bot
	chatID string

	callbacks chan approval.Callback
	pollErrs  chan error

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

var _ approval.Channel = (*Channel)(nil)

// NewChannel returns a Channel that posts to chatID using the bot token.
// Polling starts on the first Fetch.
func NewChannel(token, chatID string, opts Options) (*Channel, error) {
	if token == "" || chatID == "" {
		return nil, errors.New("telegram: bot token and chat id are required")
	}

	c := &Channel{
		chatID:    chatID,
		callbacks: make(chan approval.Callback, callbackBuffer),
		pollErrs:  make(chan error, 1),
	}

	b, err := bot.New(token, append(opts.botOptions(),
		bot.WithAllowedUpdates(bot.AllowedUpdates{"callback_query"}),
		bot.WithDefaultHandler(c.handleUpdate),
		bot.WithErrorsHandler(c.handleError),
		bot.WithNotAsyncHandlers(),
	)...)
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}
	c.bot = b
	return c, nil
}

// Publish sends the rendered notice with its decision buttons.
func (c *Channel) Publish(ctx context.Context, n approval.Notice) (approval.MessageRef, error) {
	msg, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      c.chatID,
		Text:        RenderHTML(n),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: decisionKeyboard(n.RequestID),
	})
	if err != nil {
		return approval.MessageRef{}, fmt.Errorf("telegram: send message: %w", err)
	}
	return approval.MessageRef{ID: msg.ID}, nil
}

// Fetch returns the callbacks received since the last call, waiting up
// to wait for the first one.
func (c *Channel) Fetch(ctx context.Context, wait time.Duration) ([]approval.Callback, error) {
	c.startOnce.Do(c.start)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-c.pollErrs:
		return nil, fmt.Errorf("telegram: poll updates: %w", err)
	case <-timer.C:
		return nil, nil
	case cb := <-c.callbacks:
		batch := []approval.Callback{cb}
		for {
			select {
			case more := <-c.callbacks:
				batch = append(batch, more)
			default:
				return batch, nil
			}
		}
	}
}

// Acknowledge answers the callback query so the client stops waiting.
func (c *Channel) Acknowledge(ctx context.Context, cb approval.Callback, text string) error {
	_, err := c.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: cb.ID,
		Text:            text,
	})
	if err != nil {
		return fmt.Errorf("telegram: answer callback: %w", err)
	}
	return nil
}

// Settle swaps the decision buttons for an inert status label.
func (c *Channel) Settle(ctx context.Context, ref approval.MessageRef, label string) error {
	_, err := c.bot.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:    c.chatID,
		MessageID: ref.ID,
		ReplyMarkup: &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{{Text: label, CallbackData: noopCallback}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("telegram: edit reply markup: %w", err)
	}
	return nil
}

// Close stops polling and waits for the poller to exit.
func (c *Channel) Close() error {
	c.startOnce.Do(func() {})
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
	return nil
}

func (c *Channel) start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		c.bot.Start(ctx)
	}()
}

func (c *Channel) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	q := update.CallbackQuery
	if q == nil {
		return
	}
	cb := approval.Callback{ID: q.ID, Data: q.Data, From: displayName(q.From)}
	select {
	case c.callbacks <- cb:
	case <-ctx.Done():
	}
}

// handleError reports polling failures to the waiting Fetch. The bot keeps
// retrying on its own; only the most recent error is kept.
func (c *Channel) handleError(err error) {
	clog.Debug("telegram: %v", err)
	select {
	case c.pollErrs <- err:
	default:
	}
}

func decisionKeyboard(id string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "✅ Approve", CallbackData: approval.EncodeCallback(approval.Approve, id)},
			{Text: "❌ Reject", CallbackData: approval.EncodeCallback(approval.Reject, id)},
		}},
	}
}

func displayName(u models.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
