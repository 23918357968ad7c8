// Package requestlog synchronizes one bucket's captured-request history for
// user inspection. The history is append-only on the server and never
// reordered or deduplicated here, so an ordinal index into the sequence stays
// valid across polls until an explicit clear.
//
// A Log is scoped to a single bucket. Opening a different bucket means
// cancelling the old Log's context and creating a new Log; a refresh still in
// flight for the old bucket resolves under a superseded polling identity and
// is discarded.
package requestlog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ajoealex/data-bucket-ui/pkg/api"
	"github.com/ajoealex/data-bucket-ui/pkg/client"
)

// DefaultInterval is the auto-refresh polling interval.
const DefaultInterval = 3 * time.Second

// noSelection marks an unset selection pointer.
const noSelection = -1

// ConfirmFunc is a synchronous yes/no gate consulted before clearing.
type ConfirmFunc func(prompt string) bool

// Log synchronizes the captured-request sequence of one bucket.
type Log struct {
	client   client.Client
	logger   *slog.Logger
	bucketID string
	interval time.Duration
	confirm  ConfirmFunc
	onUpdate func([]*api.CapturedRequest)

	mu        sync.Mutex
	entries   []*api.CapturedRequest
	selection int
	auto      bool
	// pollCtx identifies the active polling context; rotated whenever the
	// schedule changes so stale in-flight responses are discarded.
	pollCtx uuid.UUID

	// restart wakes the Run loop to rebuild its timer after an auto-refresh
	// toggle. Buffered so toggling never blocks.
	restart chan struct{}
}

// Option configures a Log.
type Option func(*Log)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(lg *Log) { lg.logger = l }
}

// WithInterval overrides the auto-refresh interval.
func WithInterval(d time.Duration) Option {
	return func(lg *Log) { lg.interval = d }
}

// WithConfirm sets the confirmation gate for Clear.
func WithConfirm(f ConfirmFunc) Option {
	return func(lg *Log) { lg.confirm = f }
}

// WithAutoRefresh sets the initial auto-refresh state. Defaults to enabled.
func WithAutoRefresh(enabled bool) Option {
	return func(lg *Log) { lg.auto = enabled }
}

// WithOnUpdate registers a callback invoked with a snapshot after every
// successful poll. Called from the polling goroutine.
func WithOnUpdate(f func([]*api.CapturedRequest)) Option {
	return func(lg *Log) { lg.onUpdate = f }
}

// New creates a request log synchronizer for the given bucket.
func New(c client.Client, bucketID string, opts ...Option) *Log {
	l := &Log{
		client:    c,
		logger:    slog.Default(),
		bucketID:  bucketID,
		interval:  DefaultInterval,
		selection: noSelection,
		auto:      true,
		pollCtx:   uuid.New(),
		restart:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// BucketID returns the bucket this log is scoped to.
func (l *Log) BucketID() string {
	return l.bucketID
}

// Refresh fetches the bucket's captured requests non-destructively and
// replaces the local sequence. A failed poll keeps the last-known sequence
// and the selection. Entries already observed keep their ordinal positions
// because the server log is append-only.
func (l *Log) Refresh(ctx context.Context) ([]*api.CapturedRequest, error) {
	l.mu.Lock()
	issuedUnder := l.pollCtx
	l.mu.Unlock()

	entries, err := l.client.BucketData(ctx, l.bucketID)
	if err != nil {
		l.logger.Warn("request log poll failed", "bucket", l.bucketID, "error", err)
		return l.Entries(), err
	}

	l.mu.Lock()
	if l.pollCtx != issuedUnder {
		snapshot := copyEntries(l.entries)
		l.mu.Unlock()
		return snapshot, nil
	}
	l.entries = entries
	snapshot := copyEntries(l.entries)
	l.mu.Unlock()

	if l.onUpdate != nil {
		l.onUpdate(snapshot)
	}
	return snapshot, nil
}

// Entries returns a snapshot of the synchronized sequence in arrival order.
func (l *Log) Entries() []*api.CapturedRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyEntries(l.entries)
}

// Len returns the number of synchronized entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Select points the selection at the given ordinal index.
func (l *Log) Select(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.entries) {
		return fmt.Errorf("selection index %d out of range (0-%d)", index, len(l.entries)-1)
	}
	l.selection = index
	return nil
}

// Selection returns the selected ordinal index, if any.
func (l *Log) Selection() (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.selection == noSelection {
		return 0, false
	}
	return l.selection, true
}

// Selected returns the selected entry, if any.
func (l *Log) Selected() (*api.CapturedRequest, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.selection == noSelection || l.selection >= len(l.entries) {
		return nil, false
	}
	return l.entries[l.selection], true
}

// ClearSelection unsets the selection pointer.
func (l *Log) ClearSelection() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.selection = noSelection
}

// Clear asks the confirmation gate, issues the destructive call, and empties
// the local sequence and the selection pointer.
func (l *Log) Clear(ctx context.Context) error {
	if l.confirm != nil && !l.confirm(fmt.Sprintf("Clear all data from bucket %s?", l.bucketID)) {
		return ErrDeclined
	}

	if err := l.client.ClearBucketData(ctx, l.bucketID); err != nil {
		return &ActionError{Op: "clear", Err: err}
	}

	l.mu.Lock()
	l.entries = nil
	l.selection = noSelection
	l.mu.Unlock()

	l.logger.Info("bucket data cleared", "bucket", l.bucketID)
	return nil
}

// AutoRefresh reports whether interval polling is enabled.
func (l *Log) AutoRefresh() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.auto
}

// SetAutoRefresh toggles interval polling. The previously scheduled poll is
// cancelled before a new one is scheduled, so there is never more than one
// active timer, and in-flight responses from the old schedule are discarded.
func (l *Log) SetAutoRefresh(enabled bool) {
	l.mu.Lock()
	changed := l.auto != enabled
	l.auto = enabled
	if changed {
		l.pollCtx = uuid.New()
	}
	l.mu.Unlock()

	if changed {
		select {
		case l.restart <- struct{}{}:
		default:
		}
	}
}

// Run refreshes immediately and then polls on the interval while auto-refresh
// is enabled, until ctx is cancelled. Starting a run supersedes any previous
// polling context.
func (l *Log) Run(ctx context.Context) {
	l.mu.Lock()
	l.pollCtx = uuid.New()
	l.mu.Unlock()

	_, _ = l.Refresh(ctx)

	for {
		if !l.AutoRefresh() {
			// Parked: no timer exists until re-enabled.
			select {
			case <-ctx.Done():
				return
			case <-l.restart:
				continue
			}
		}

		ticker := time.NewTicker(l.interval)
	poll:
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-l.restart:
				ticker.Stop()
				break poll
			case <-ticker.C:
				_, _ = l.Refresh(ctx)
			}
		}
	}
}

func copyEntries(in []*api.CapturedRequest) []*api.CapturedRequest {
	out := make([]*api.CapturedRequest, len(in))
	copy(out, in)
	return out
}
