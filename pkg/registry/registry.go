// Package registry keeps a local view of a capture server's buckets
// synchronized with server state. Polls replace the whole local mapping;
// create/update/delete apply optimistically once the server acknowledges.
// The mapping is owned by the Registry and mutated only by its own
// operations.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ajoealex/data-bucket-ui/pkg/api"
	"github.com/ajoealex/data-bucket-ui/pkg/client"
)

// DefaultInterval is the bucket list polling interval.
const DefaultInterval = 10 * time.Second

// ErrDeclined is returned when the confirmation gate rejects a destructive
// operation. No network call is made.
var ErrDeclined = errors.New("operation declined")

// ActionError reports a failed mutation. Local state is left unchanged; the
// next poll reconciles any divergence.
type ActionError struct {
	Op  string // "create", "update" or "delete"
	Err error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s bucket failed: %v", e.Op, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// ConfirmFunc is a synchronous yes/no gate consulted before destructive
// operations.
type ConfirmFunc func(prompt string) bool

// Registry synchronizes the bucket mapping for one connection.
type Registry struct {
	client   client.Client
	logger   *slog.Logger
	interval time.Duration
	confirm  ConfirmFunc
	onUpdate func(map[string]*api.Bucket)

	mu      sync.Mutex
	buckets map[string]*api.Bucket
	// pollCtx identifies the active polling context. A refresh resolved
	// under a superseded identity is discarded so a stale response cannot
	// clobber newer state.
	pollCtx uuid.UUID
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithInterval overrides the polling interval.
func WithInterval(d time.Duration) Option {
	return func(r *Registry) { r.interval = d }
}

// WithConfirm sets the confirmation gate for destructive operations.
// Without one, destructive operations proceed.
func WithConfirm(f ConfirmFunc) Option {
	return func(r *Registry) { r.confirm = f }
}

// WithOnUpdate registers a callback invoked with a snapshot after every
// successful poll. Called from the polling goroutine.
func WithOnUpdate(f func(map[string]*api.Bucket)) Option {
	return func(r *Registry) { r.onUpdate = f }
}

// New creates a registry synchronizer over the given client.
func New(c client.Client, opts ...Option) *Registry {
	r := &Registry{
		client:   c,
		logger:   slog.Default(),
		interval: DefaultInterval,
		buckets:  map[string]*api.Bucket{},
		pollCtx:  uuid.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh polls the bucket list and replaces the local mapping with the
// server's response. On failure the last-known mapping is kept and the error
// returned. Overlapping refreshes within the same polling context are not
// ordered; the last to resolve wins.
func (r *Registry) Refresh(ctx context.Context) (map[string]*api.Bucket, error) {
	r.mu.Lock()
	issuedUnder := r.pollCtx
	r.mu.Unlock()

	buckets, err := r.client.ListBuckets(ctx)
	if err != nil {
		r.logger.Warn("bucket list poll failed", "error", err)
		return r.Buckets(), err
	}

	r.mu.Lock()
	if r.pollCtx != issuedUnder {
		// Poller restarted while this call was in flight; discard.
		snapshot := copyBuckets(r.buckets)
		r.mu.Unlock()
		return snapshot, nil
	}
	r.buckets = buckets
	snapshot := copyBuckets(r.buckets)
	r.mu.Unlock()

	if r.onUpdate != nil {
		r.onUpdate(snapshot)
	}
	return snapshot, nil
}

// Buckets returns a snapshot of the current local mapping.
func (r *Registry) Buckets() map[string]*api.Bucket {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyBuckets(r.buckets)
}

// Get returns the bucket with the given id from the local mapping.
func (r *Registry) Get(id string) (*api.Bucket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buckets[id]
	return b, ok
}

// NameInUse reports whether name belongs to a bucket other than excludeID in
// the local mapping. The edited bucket keeps its own name without colliding
// with itself; no other exclusion applies.
func (r *Registry) NameInUse(name, excludeID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, b := range r.buckets {
		if id != excludeID && b.Name == name {
			return true
		}
	}
	return false
}

// Create submits a new bucket and, once the server acknowledges with an
// assigned id, inserts it into the local mapping. Server-assigned fields are
// never predicted locally.
func (r *Registry) Create(ctx context.Context, b *api.Bucket) (string, error) {
	id, err := r.client.CreateBucket(ctx, b)
	if err != nil {
		return "", &ActionError{Op: "create", Err: err}
	}

	created := *b
	created.ID = id

	r.mu.Lock()
	r.buckets[id] = &created
	r.mu.Unlock()

	r.logger.Info("bucket created", "id", id, "name", b.Name)
	return id, nil
}

// Update submits a configuration change and applies it locally once
// acknowledged. Unspecified fields keep their last-known values.
func (r *Registry) Update(ctx context.Context, id string, b *api.Bucket) error {
	if err := r.client.UpdateBucket(ctx, id, b); err != nil {
		return &ActionError{Op: "update", Err: err}
	}

	r.mu.Lock()
	if existing, ok := r.buckets[id]; ok {
		merged := *existing
		merged.Name = b.Name
		merged.MockResponse = b.MockResponse
		merged.MockResponseType = b.MockResponseType
		merged.MockHeaders = b.MockHeaders
		merged.MockStatusCode = b.MockStatusCode
		r.buckets[id] = &merged
	} else {
		updated := *b
		updated.ID = id
		r.buckets[id] = &updated
	}
	r.mu.Unlock()

	r.logger.Info("bucket updated", "id", id)
	return nil
}

// Delete asks the confirmation gate, issues the destructive call, and
// removes the entry locally only after server acknowledgement.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if r.confirm != nil && !r.confirm(fmt.Sprintf("Delete bucket %s?", id)) {
		return ErrDeclined
	}

	if err := r.client.DeleteBucket(ctx, id); err != nil {
		return &ActionError{Op: "delete", Err: err}
	}

	r.mu.Lock()
	delete(r.buckets, id)
	r.mu.Unlock()

	r.logger.Info("bucket deleted", "id", id)
	return nil
}

// Run refreshes immediately and then on every interval tick until ctx is
// cancelled. Starting a run supersedes the previous polling context, so a
// refresh still in flight from before the restart cannot overwrite newer
// state.
func (r *Registry) Run(ctx context.Context) {
	r.mu.Lock()
	r.pollCtx = uuid.New()
	r.mu.Unlock()

	_, _ = r.Refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = r.Refresh(ctx)
		}
	}
}

func copyBuckets(in map[string]*api.Bucket) map[string]*api.Bucket {
	out := make(map[string]*api.Bucket, len(in))
	for id, b := range in {
		out[id] = b
	}
	return out
}
