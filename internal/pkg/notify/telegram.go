// Package notify delivers run alerts to an operator chat.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Min interval between any two Telegram messages to the same chat to avoid 429 Too Many Requests (~30/min limit).
const telegramSendInterval = 2 * time.Second

var ErrQueueFull = errors.New("message queue is full")

// Notifier accepts alert text. Implementations must not block the caller on delivery.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Nop discards every message.
type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }

// sender is the part of *tgbotapi.BotAPI the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram queues messages and sends them from a background worker, spaced by
// the send interval.
type Telegram struct {
	bot      sender
	chatID   int64
	interval time.Duration

	queue  chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ Notifier = (*Telegram)(nil)

// NewTelegram connects the bot and starts the send worker.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = false

	n := newTelegram(bot, chatID, telegramSendInterval)
	slog.Info("Telegram notifier initialized", "chat_id", chatID, "bot", bot.Self.UserName)
	return n, nil
}

func newTelegram(bot sender, chatID int64, interval time.Duration) *Telegram {
	ctx, cancel := context.WithCancel(context.Background())
	n := &Telegram{
		bot:      bot,
		chatID:   chatID,
		interval: interval,
		queue:    make(chan string, 100),
		ctx:      ctx,
		cancel:   cancel,
	}
	n.wg.Add(1)
	go n.run()
	return n
}

// Notify queues text for delivery. It fails fast when the queue is full.
func (n *Telegram) Notify(ctx context.Context, text string) error {
	if n.ctx.Err() != nil {
		return fmt.Errorf("notifier stopped")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case n.queue <- text:
		return nil
	default:
		slog.Warn("Telegram queue full, dropping message", "preview", truncate(text, 50))
		return ErrQueueFull
	}
}

func (n *Telegram) run() {
	defer n.wg.Done()

	var lastSend time.Time
	for {
		select {
		case <-n.ctx.Done():
			return
		case text := <-n.queue:
			if wait := n.interval - time.Since(lastSend); wait > 0 {
				select {
				case <-n.ctx.Done():
					return
				case <-time.After(wait):
				}
			}

			lastSend = time.Now()
			msg := tgbotapi.NewMessage(n.chatID, text)
			if _, err := n.bot.Send(msg); err != nil {
				slog.Error("Telegram send failed", "error", err, "preview", truncate(text, 50))
				continue
			}
			slog.Debug("Telegram message sent", "queue_length", len(n.queue))
		}
	}
}

// Stop ends the worker. Messages still queued are dropped.
func (n *Telegram) Stop() {
	n.cancel()
	n.wg.Wait()
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
