// Package notify owns every piece of mutable notification state: the last
// delivered text and verdict per homework, and the last delivered error.
//
// Both the scheduler loop and the interactive Telegram listener call into it
// concurrently; one mutex guards all state and serializes deliveries. A
// transport failure never escapes a notify call; it is logged and surfaces
// only as a false return.
package notify

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Alex-Volkov-ru/yandex-rab/internal/homework"
	"github.com/Alex-Volkov-ru/yandex-rab/pkg/logx"
)

// MessageRef identifies a delivered message so it can be edited later.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Transport delivers text to the single destination chat.
// Implemented by the telegram adapter.
type Transport interface {
	SendText(ctx context.Context, text string) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string) error
}

// HistoryEntry is one delivered notification, recorded for operator
// inspection only. Dedup state never reads history back.
type HistoryEntry struct {
	At      time.Time
	Stream  string // "status" | "error" | "reply"
	Subject string
	Text    string
	Edited  bool
}

// History is an optional sink for delivered notifications.
type History interface {
	AppendHistory(ctx context.Context, e HistoryEntry) error
}

type Notifier struct {
	transport Transport
	log       logx.Logger
	limiter   *rate.Limiter
	hist      History

	// mu guards all dedup state below and serializes deliveries from the
	// scheduler loop and the interactive listener.
	mu          sync.Mutex
	lastText    map[string]string
	lastVerdict map[string]homework.Verdict
	lastErrText string
	lastErrRef  *MessageRef
}

type Option func(*Notifier)

// WithRate caps outgoing sends per second (token bucket, burst = rate).
func WithRate(perSec int) Option {
	return func(n *Notifier) {
		if perSec > 0 {
			n.limiter = rate.NewLimiter(rate.Limit(perSec), perSec)
		}
	}
}

// WithHistory attaches a delivered-notification sink.
func WithHistory(h History) Option {
	return func(n *Notifier) { n.hist = h }
}

func New(tr Transport, log logx.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		transport:   tr,
		log:         log,
		limiter:     rate.NewLimiter(rate.Limit(3), 3),
		lastText:    make(map[string]string),
		lastVerdict: make(map[string]homework.Verdict),
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// StatusChange delivers a status-change notification unless the exact same
// text was already delivered for this homework. Dedup state advances only on
// successful delivery, so a failed send is retried by the next cycle that
// still sees a differing verdict.
func (n *Notifier) StatusChange(ctx context.Context, subject string, v homework.Verdict, text string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.lastText[subject] == text {
		n.log.Debug("status notification suppressed (already delivered)", logx.String("homework", subject))
		return false
	}

	if _, ok := n.send(ctx, text); !ok {
		return false
	}
	n.lastText[subject] = text
	n.lastVerdict[subject] = v
	n.appendHistory(ctx, HistoryEntry{Stream: "status", Subject: subject, Text: text})
	return true
}

// LastVerdict reports the verdict most recently delivered for a homework.
func (n *Notifier) LastVerdict(subject string) (homework.Verdict, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.lastVerdict[subject]
	return v, ok
}

// Error delivers an error notification unless it repeats the previously
// delivered error text.
//
// Policy: edit-in-place. The first error after a healthy cycle is a fresh
// message whose handle is retained; a subsequent different error edits that
// message. If no handle exists or the edit fails, fall back to a fresh send.
func (n *Notifier) Error(ctx context.Context, text string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if text == n.lastErrText {
		n.log.Debug("error notification suppressed (already delivered)")
		return false
	}

	if n.lastErrRef != nil {
		if err := n.edit(ctx, *n.lastErrRef, text); err == nil {
			n.lastErrText = text
			n.appendHistory(ctx, HistoryEntry{Stream: "error", Text: text, Edited: true})
			return true
		}
		// Stale or deleted message; start a fresh one.
		n.lastErrRef = nil
	}

	ref, ok := n.send(ctx, text)
	if !ok {
		return false
	}
	n.lastErrText = text
	n.lastErrRef = &ref
	n.appendHistory(ctx, HistoryEntry{Stream: "error", Text: text})
	return true
}

// ClearError resets the error stream after a successful cycle, so the next
// future error is treated as new rather than suppressed as a stale duplicate.
func (n *Notifier) ClearError() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lastErrText != "" {
		n.log.Debug("error state cleared")
	}
	n.lastErrText = ""
	n.lastErrRef = nil
}

// Send delivers text without any dedup. Used by the interactive channel for
// direct replies.
func (n *Notifier) Send(ctx context.Context, text string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	_, ok := n.send(ctx, text)
	if ok {
		n.appendHistory(ctx, HistoryEntry{Stream: "reply", Text: text})
	}
	return ok
}

// send performs one rate-limited delivery. Caller holds mu.
func (n *Notifier) send(ctx context.Context, text string) (MessageRef, bool) {
	if err := n.limiter.Wait(ctx); err != nil {
		n.log.Warn("notification cancelled before send", logx.Err(err))
		return MessageRef{}, false
	}
	ref, err := n.transport.SendText(ctx, text)
	if err != nil {
		n.log.Error("notification send failed", logx.Err(err), logx.String("text", text))
		return MessageRef{}, false
	}
	n.log.Info("notification sent", logx.Int("message_id", ref.MessageID))
	return ref, true
}

// edit performs one rate-limited edit. Caller holds mu.
func (n *Notifier) edit(ctx context.Context, ref MessageRef, text string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := n.transport.EditText(ctx, ref, text); err != nil {
		n.log.Warn("notification edit failed; will send fresh", logx.Err(err), logx.Int("message_id", ref.MessageID))
		return err
	}
	n.log.Info("notification edited", logx.Int("message_id", ref.MessageID))
	return nil
}

func (n *Notifier) appendHistory(ctx context.Context, e HistoryEntry) {
	if n.hist == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	if err := n.hist.AppendHistory(ctx, e); err != nil {
		n.log.Debug("history append failed", logx.Err(err))
	}
}
