// Package poller drives the poll loop: one cycle fetches the latest review
// statuses, interprets them, and routes detected changes through the
// notifier; the loop repeats forever on a fixed schedule.
//
// Failure isolation is the loop's main job. Every error raised inside a
// cycle (transport, envelope, interpretation) is caught at the cycle
// boundary, converted to a deduplicated error notification, and the loop
// sleeps and retries. No in-cycle retries: recovery is purely the next tick.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/Alex-Volkov-ru/yandex-rab/internal/homework"
	"github.com/Alex-Volkov-ru/yandex-rab/pkg/logx"
)

// DefaultSchedule matches the original product's retry period.
const DefaultSchedule = "600s"

// Fetcher is the remote status-tracking API.
type Fetcher interface {
	HomeworkStatuses(ctx context.Context, from int64) (any, error)
}

// Notifier is the delivery side of the loop; implementations must be safe
// for concurrent use by the loop and the interactive listener.
type Notifier interface {
	StatusChange(ctx context.Context, subject string, v homework.Verdict, text string) bool
	LastVerdict(subject string) (homework.Verdict, bool)
	Error(ctx context.Context, text string) bool
	ClearError()
}

type Config struct {
	// Schedule is a poll schedule spec (see ParseSchedule). Default "600s".
	Schedule string
	// CycleTimeout bounds one fetch-interpret-notify cycle. Default 30s.
	CycleTimeout time.Duration
	// ReportWindow is how far back an on-demand report looks. Default 1h.
	ReportWindow time.Duration
}

type Poller struct {
	fetch Fetcher
	notif Notifier
	log   logx.Logger

	mu           sync.Mutex
	spec         ParsedSpec
	cycleTimeout time.Duration
	reportWindow time.Duration
}

func New(cfg Config, fetch Fetcher, notif Notifier, log logx.Logger) (*Poller, error) {
	p := &Poller{fetch: fetch, notif: notif, log: log}
	if err := p.Apply(cfg); err != nil {
		return nil, err
	}
	return p, nil
}

// Apply updates the poll schedule and timeouts. Safe to call while Run is
// active; the new schedule takes effect at the next tick.
func (p *Poller) Apply(cfg Config) error {
	raw := cfg.Schedule
	if raw == "" {
		raw = DefaultSchedule
	}
	spec, err := ParseSchedule(raw)
	if err != nil {
		return err
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = 30 * time.Second
	}
	if cfg.ReportWindow <= 0 {
		cfg.ReportWindow = time.Hour
	}

	p.mu.Lock()
	p.spec = spec
	p.cycleTimeout = cfg.CycleTimeout
	p.reportWindow = cfg.ReportWindow
	p.mu.Unlock()
	return nil
}

// RunOnce performs one poll cycle and returns the next cursor.
//
// The cursor only advances on a fully successful cycle, and only to the
// server-reported current_date, never to local wall-clock and never
// backward. On any failure the incoming cursor is returned unchanged, the
// error is routed to the notifier, and nothing else happens until the next
// tick.
func (p *Poller) RunOnce(ctx context.Context, cursor int64) int64 {
	raw, err := p.fetch.HomeworkStatuses(ctx, cursor)
	if err != nil {
		return p.failCycle(ctx, cursor, err)
	}

	recs, err := homework.Records(raw)
	if err != nil {
		return p.failCycle(ctx, cursor, err)
	}

	next := cursor
	if cd, ok := homework.CurrentDate(raw); ok && cd >= cursor {
		next = cd
	}

	if len(recs) == 0 {
		p.log.Debug("no homework updates", logx.Int64("cursor", cursor))
		p.notif.ClearError()
		return next
	}

	rec, _ := homework.Latest(recs)
	st, err := homework.ParseStatus(rec)
	if err != nil {
		return p.failCycle(ctx, cursor, err)
	}

	// Healthy cycle: future errors must not be suppressed as stale.
	p.notif.ClearError()

	if last, ok := p.notif.LastVerdict(st.Name); ok && last == st.Verdict {
		p.log.Debug("verdict unchanged", logx.String("homework", st.Name), logx.String("verdict", string(st.Verdict)))
		return next
	}
	p.notif.StatusChange(ctx, st.Name, st.Verdict, st.Message())
	return next
}

func (p *Poller) failCycle(ctx context.Context, cursor int64, err error) int64 {
	p.log.Error("poll cycle failed", logx.Err(err), logx.Int64("cursor", cursor))
	p.notif.Error(ctx, "Сбой в работе программы: "+err.Error())
	return cursor
}

// Run drives poll cycles until ctx is cancelled.
//
// Cancellation stops scheduling new ticks but never aborts a cycle already
// in flight: each cycle runs on a detached context bounded only by the cycle
// timeout.
func (p *Poller) Run(ctx context.Context) {
	cursor := time.Now().Unix()
	p.log.Info("poll loop started", logx.Int64("cursor", cursor), logx.String("schedule", p.scheduleString()))

	for {
		cycleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout())
		cursor = p.RunOnce(cycleCtx, cursor)
		cancel()

		p.mu.Lock()
		next := p.spec.Next(time.Now())
		p.mu.Unlock()

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			p.log.Info("poll loop stopped", logx.Int64("cursor", cursor))
			return
		case <-timer.C:
		}
	}
}

// Report runs an on-demand status check for the interactive channel and
// returns a human-readable summary. Change detection still flows through
// the shared notifier state, so an interactive check and the loop never
// double-report the same change.
func (p *Poller) Report(ctx context.Context) string {
	p.mu.Lock()
	window := p.reportWindow
	p.mu.Unlock()

	from := time.Now().Add(-window).Unix()
	raw, err := p.fetch.HomeworkStatuses(ctx, from)
	if err != nil {
		return "Ошибка при получении статуса: " + err.Error()
	}
	recs, err := homework.Records(raw)
	if err != nil {
		return "Ошибка при получении статуса: " + err.Error()
	}
	if len(recs) == 0 {
		return "Данные о домашней работе ещё не получены. Попробуйте позже."
	}

	rec, _ := homework.Latest(recs)
	st, err := homework.ParseStatus(rec)
	if err != nil {
		return "Ошибка при получении статуса: " + err.Error()
	}

	if last, ok := p.notif.LastVerdict(st.Name); !ok || last != st.Verdict {
		p.notif.StatusChange(ctx, st.Name, st.Verdict, st.Message())
	}

	text, _ := st.Verdict.Text()
	report := "Работа: " + st.Name + "\nСтатус: " + text
	if st.DateUpdated > 0 {
		report += "\nПоследнее обновление: " + time.Unix(st.DateUpdated, 0).Format("02.01.2006 15:04")
	}
	return report
}

func (p *Poller) timeout() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cycleTimeout
}

func (p *Poller) scheduleString() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.spec.Kind == SpecCron {
		return p.spec.Cron
	}
	return p.spec.Every.String()
}
