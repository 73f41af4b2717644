package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// CommandFunc answers a chat command; args is the text after the command.
type CommandFunc func(ctx context.Context, args string) string

// outboxSize bounds the messages waiting for delivery.
const outboxSize = 64

type sender interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
}

// Telegram pushes alerts to one chat and answers a few operator commands.
// Delivery runs on its own goroutine, so Send never waits on the Bot API.
type Telegram struct {
	bot    *tgbot.BotAPI
	out    sender
	chatID int64
	log    *zap.Logger

	mu       sync.RWMutex
	commands map[string]CommandFunc

	outMu  sync.RWMutex
	closed bool
	outbox chan string
	done   chan struct{}
}

func NewTelegram(token string, chatID int64, log *zap.Logger) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	t := newTelegram(b, chatID, log)
	t.bot = b
	return t, nil
}

func newTelegram(out sender, chatID int64, log *zap.Logger) *Telegram {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Telegram{
		out:      out,
		chatID:   chatID,
		log:      log,
		commands: make(map[string]CommandFunc),
		outbox:   make(chan string, outboxSize),
		done:     make(chan struct{}),
	}
	go t.drain()
	return t
}

func (t *Telegram) drain() {
	defer close(t.done)
	for msg := range t.outbox {
		if _, err := t.out.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
			t.log.Warn("telegram send failed", zap.Error(err))
		}
	}
}

// Send queues msg for delivery. A full queue drops msg with a warning.
func (t *Telegram) Send(msg string) {
	if t == nil || t.out == nil || t.chatID == 0 {
		return
	}
	t.outMu.RLock()
	defer t.outMu.RUnlock()
	if t.closed {
		return
	}
	select {
	case t.outbox <- msg:
	default:
		t.log.Warn("telegram outbox full, message dropped", zap.String("msg", msg))
	}
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// Handle registers fn for /name.
func (t *Telegram) Handle(name string, fn CommandFunc) {
	t.mu.Lock()
	t.commands[strings.ToLower(name)] = fn
	t.mu.Unlock()
}

func (t *Telegram) dispatch(ctx context.Context, msg *tgbot.Message) {
	t.mu.RLock()
	fn, ok := t.commands[strings.ToLower(msg.Command())]
	t.mu.RUnlock()
	if !ok {
		t.Send("unknown command")
		return
	}
	if reply := fn(ctx, msg.CommandArguments()); reply != "" {
		t.Send(reply)
	}
}

// Start: long-polling for commands from the configured chat.
func (t *Telegram) Start(ctx context.Context) error {
	if t == nil || t.bot == nil {
		return nil
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-updates:
				if !ok {
					return
				}
				if upd.Message != nil && upd.Message.Chat != nil &&
					upd.Message.Chat.ID == t.chatID && upd.Message.IsCommand() {
					go t.dispatch(ctx, upd.Message)
				}
			}
		}
	}()
	return nil
}

// Stop ends command polling and flushes queued messages until ctx is done.
func (t *Telegram) Stop(ctx context.Context) {
	if t == nil {
		return
	}
	if t.bot != nil {
		t.bot.StopReceivingUpdates()
	}
	if t.outbox == nil {
		return
	}

	t.outMu.Lock()
	if !t.closed {
		t.closed = true
		close(t.outbox)
	}
	t.outMu.Unlock()

	select {
	case <-t.done:
	case <-ctx.Done():
		t.log.Warn("telegram outbox not flushed", zap.Error(ctx.Err()))
	}
}

// Log writes notifications to the service log.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	if log == nil {
		log = zap.NewNop()
	}
	return &Log{log: log.Named("notify")}
}

func (l *Log) Send(msg string)                  { l.log.Info(msg) }
func (l *Log) Sendf(format string, args ...any) { l.log.Info(fmt.Sprintf(format, args...)) }
