package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Alex-Volkov-ru/yandex-rab/internal/homework"
	"github.com/Alex-Volkov-ru/yandex-rab/pkg/logx"
)

type fakeTransport struct {
	mu      sync.Mutex
	nextID  int
	sent    []string
	edits   []string
	sendErr error
	editErr error
}

func (f *fakeTransport) SendText(ctx context.Context, text string) (MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return MessageRef{}, f.sendErr
	}
	f.nextID++
	f.sent = append(f.sent, text)
	return MessageRef{ChatID: 1, MessageID: f.nextID}, nil
}

func (f *fakeTransport) EditText(ctx context.Context, ref MessageRef, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newTestNotifier(tr Transport) *Notifier {
	// High rate so tests never wait on the limiter.
	return New(tr, logx.Nop(), WithRate(1000))
}

func TestStatusChangeDedupIdempotence(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{}
	n := newTestNotifier(tr)
	ctx := context.Background()

	if !n.StatusChange(ctx, "hw1", homework.VerdictReviewing, "text-1") {
		t.Fatal("first delivery must succeed")
	}
	if n.StatusChange(ctx, "hw1", homework.VerdictReviewing, "text-1") {
		t.Fatal("identical repeat must be suppressed")
	}
	if tr.sentCount() != 1 {
		t.Fatalf("sent %d messages, want 1", tr.sentCount())
	}

	if v, ok := n.LastVerdict("hw1"); !ok || v != homework.VerdictReviewing {
		t.Fatalf("LastVerdict = (%v, %v)", v, ok)
	}

	// A different text for the same homework goes through.
	if !n.StatusChange(ctx, "hw1", homework.VerdictApproved, "text-2") {
		t.Fatal("changed text must be delivered")
	}
	if tr.sentCount() != 2 {
		t.Fatalf("sent %d messages, want 2", tr.sentCount())
	}
}

func TestStatusChangeFailureLeavesStateForRetry(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{sendErr: errors.New("telegram down")}
	n := newTestNotifier(tr)
	ctx := context.Background()

	if n.StatusChange(ctx, "hw1", homework.VerdictApproved, "text") {
		t.Fatal("failed delivery must report false")
	}
	if _, ok := n.LastVerdict("hw1"); ok {
		t.Fatal("failed delivery must not advance verdict state")
	}

	// Transport recovers: the same message is retried and delivered.
	tr.mu.Lock()
	tr.sendErr = nil
	tr.mu.Unlock()
	if !n.StatusChange(ctx, "hw1", homework.VerdictApproved, "text") {
		t.Fatal("retry after recovery must deliver")
	}
}

func TestErrorEditInPlace(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{}
	n := newTestNotifier(tr)
	ctx := context.Background()

	if !n.Error(ctx, "err-1") {
		t.Fatal("first error must be a fresh send")
	}
	if n.Error(ctx, "err-1") {
		t.Fatal("repeated identical error must be suppressed")
	}
	if !n.Error(ctx, "err-2") {
		t.Fatal("different error must be delivered")
	}

	if got := tr.sentCount(); got != 1 {
		t.Fatalf("fresh sends = %d, want 1", got)
	}
	tr.mu.Lock()
	edits := len(tr.edits)
	tr.mu.Unlock()
	if edits != 1 {
		t.Fatalf("edits = %d, want 1", edits)
	}
}

func TestErrorEditFailureFallsBackToSend(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{}
	n := newTestNotifier(tr)
	ctx := context.Background()

	n.Error(ctx, "err-1")

	tr.mu.Lock()
	tr.editErr = errors.New("message to edit not found")
	tr.mu.Unlock()

	if !n.Error(ctx, "err-2") {
		t.Fatal("edit failure must fall back to a fresh send")
	}
	if got := tr.sentCount(); got != 2 {
		t.Fatalf("fresh sends = %d, want 2", got)
	}
}

func TestErrorStateReset(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{}
	n := newTestNotifier(tr)
	ctx := context.Background()

	n.Error(ctx, "err-1")
	n.ClearError()

	// After a healthy cycle even the same error text is new again,
	// and it starts a fresh message rather than editing the old one.
	if !n.Error(ctx, "err-1") {
		t.Fatal("post-reset error must be delivered")
	}
	if got := tr.sentCount(); got != 2 {
		t.Fatalf("fresh sends = %d, want 2", got)
	}
}

func TestConcurrentCallSites(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{}
	n := newTestNotifier(tr)
	ctx := context.Background()

	// Scheduler loop and interactive listener racing on the same state.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.StatusChange(ctx, "hw1", homework.VerdictReviewing, "same-text")
			n.Error(ctx, "same-err")
		}()
	}
	wg.Wait()

	// Exactly one delivery per stream regardless of interleaving.
	if got := tr.sentCount(); got != 2 {
		t.Fatalf("sends = %d, want 2 (one status, one error)", got)
	}
}

type countingHistory struct {
	mu      sync.Mutex
	entries []HistoryEntry
}

func (h *countingHistory) AppendHistory(ctx context.Context, e HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	return nil
}

func TestHistoryRecordsDeliveriesOnly(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{}
	h := &countingHistory{}
	n := New(tr, logx.Nop(), WithRate(1000), WithHistory(h))
	ctx := context.Background()

	n.StatusChange(ctx, "hw1", homework.VerdictApproved, "text")
	n.StatusChange(ctx, "hw1", homework.VerdictApproved, "text") // suppressed
	n.Send(ctx, "manual reply")

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) != 2 {
		t.Fatalf("history entries = %d, want 2", len(h.entries))
	}
	if h.entries[0].Stream != "status" || h.entries[1].Stream != "reply" {
		t.Fatalf("unexpected streams: %q, %q", h.entries[0].Stream, h.entries[1].Stream)
	}
}
