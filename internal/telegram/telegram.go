// Package telegram adapts gopkg.in/telebot.v4 to the notifier's transport
// contract and hosts the optional interactive command channel.
package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/Alex-Volkov-ru/yandex-rab/internal/notify"
	"github.com/Alex-Volkov-ru/yandex-rab/pkg/logx"
)

const statusButton = "Проверить статус домашнего задания"

type Config struct {
	Token string
	// ChatID is the single destination for scheduled notifications.
	ChatID int64
	// PollTimeout is the long-poll timeout for the interactive listener.
	PollTimeout time.Duration
}

// Reporter produces an on-demand status summary for interactive commands.
type Reporter func(ctx context.Context) string

type Adapter struct {
	cfg Config
	log logx.Logger

	bot  *tele.Bot
	chat *tele.Chat

	runMu     sync.Mutex
	running   bool
	runCancel context.CancelFunc
	runWG     sync.WaitGroup
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat id is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	return &Adapter{
		cfg:  cfg,
		log:  log,
		bot:  b,
		chat: &tele.Chat{ID: cfg.ChatID},
	}, nil
}

// SendText delivers to the configured destination chat.
func (a *Adapter) SendText(ctx context.Context, text string) (notify.MessageRef, error) {
	msg, err := a.bot.Send(a.chat, text)
	if err != nil {
		return notify.MessageRef{}, err
	}
	return notify.MessageRef{ChatID: a.cfg.ChatID, MessageID: msg.ID}, nil
}

// EditText rewrites a previously delivered message in place.
func (a *Adapter) EditText(ctx context.Context, ref notify.MessageRef, text string) error {
	m := &tele.Message{ID: ref.MessageID, Chat: &tele.Chat{ID: ref.ChatID}}
	_, err := a.bot.Edit(m, text)
	return err
}

// HandleCommands registers the interactive command set: /status and the
// reply-keyboard button run an on-demand check; anything else answers with
// the keyboard. Must be called before Start.
func (a *Adapter) HandleCommands(report Reporter) {
	menu := &tele.ReplyMarkup{ResizeKeyboard: true}
	btnStatus := menu.Text(statusButton)
	menu.Reply(menu.Row(btnStatus))

	sendReport := func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return c.Send(report(ctx), menu)
	}

	a.bot.Handle("/status", sendReport)
	a.bot.Handle(&btnStatus, sendReport)
	a.bot.Handle("/start", func(c tele.Context) error {
		return c.Send("Нажмите кнопку, чтобы проверить статус домашнего задания.", menu)
	})
	a.bot.Handle(tele.OnText, func(c tele.Context) error {
		return c.Send("Нажмите кнопку, чтобы проверить статус домашнего задания.", menu)
	})
}

// Start begins the long-poll loop for interactive commands. Not needed for
// the single-activity deployment shape; SendText/EditText work without it.
func (a *Adapter) Start(ctx context.Context) {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return
	}
	a.running = true
	rctx, cancel := context.WithCancel(ctx)
	a.runCancel = cancel
	a.runWG.Add(1)
	a.runMu.Unlock()

	go func() {
		defer a.runWG.Done()
		go func() {
			<-rctx.Done()
			a.bot.Stop()
		}()
		a.log.Info("telegram polling started")
		a.bot.Start() // blocks until Stop() called
	}()
}

// Stop is a best-effort graceful stop. It never blocks shutdown for longer
// than a short grace window: a pending getUpdates long-poll may outlive us.
func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	cancel := a.runCancel
	a.runCancel = nil
	wasRunning := a.running
	a.running = false
	a.runMu.Unlock()

	if !wasRunning {
		return nil
	}
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		a.runWG.Wait()
		close(done)
	}()

	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		rem := time.Until(dl)
		if rem > 0 && rem < grace {
			grace = rem
		}
	}
	t := time.NewTimer(grace)
	defer t.Stop()

	select {
	case <-done:
		a.log.Info("telegram polling stopped")
		return nil
	case <-ctx.Done():
		a.log.Warn("telegram stop cancelled", logx.Err(ctx.Err()))
		return ctx.Err()
	case <-t.C:
		a.log.Warn("telegram stop grace elapsed; continuing shutdown")
		return nil
	}
}
