package sessions

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one active streaming session. It is created when a byte-proxy
// request begins and owned exclusively by the Registry; readers get copies.
type Record struct {
	ID               string    `json:"id"`
	ItemID           string    `json:"itemId"`
	ItemName         string    `json:"itemName"`
	Quality          string    `json:"quality"`
	BitrateLimit     int64     `json:"bitrateLimit"`
	UserAgent        string    `json:"userAgent"`
	RemoteAddr       string    `json:"remoteAddr"`
	DirectPlay       bool      `json:"directPlay"`
	TranscodeReasons []string  `json:"transcodeReasons"`
	PlaySessionID    string    `json:"playSessionId"`
	MediaSourceID    string    `json:"mediaSourceId"`
	StartedAt        time.Time `json:"startedAt"`
	Bytes            int64     `json:"bytes"`
}

// DefaultMaxAge is the staleness threshold for the sweep: records older than
// this are evicted even if their connection never deregistered.
const DefaultMaxAge = 6 * time.Hour

const defaultSweepInterval = time.Minute

// Registry is the shared table of active streaming sessions plus
// process-lifetime aggregate counters. Safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	active       map[string]*Record
	totalBytes   int64
	totalStreams int64

	subMu       sync.Mutex
	subscribers map[chan []Record]struct{}

	maxAge        time.Duration
	sweepInterval time.Duration
}

type Option func(*Registry)

func WithMaxAge(d time.Duration) Option {
	return func(r *Registry) { r.maxAge = d }
}

func WithSweepInterval(d time.Duration) Option {
	return func(r *Registry) { r.sweepInterval = d }
}

func New(opts ...Option) *Registry {
	r := &Registry{
		active:        make(map[string]*Record),
		subscribers:   make(map[chan []Record]struct{}),
		maxAge:        DefaultMaxAge,
		sweepInterval: defaultSweepInterval,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register inserts a new session record, assigning it a generated id, and
// increments the streams-started counter. The assigned id is returned.
func (r *Registry) Register(rec Record) string {
	rec.ID = uuid.NewString()
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}
	r.mu.Lock()
	r.active[rec.ID] = &rec
	r.totalStreams++
	r.mu.Unlock()
	r.notify()
	return rec.ID
}

// Touch adds transferred bytes to a session record and the global bandwidth
// counter. Unknown ids still count toward the global total, since the bytes
// did move even if the record was already swept.
func (r *Registry) Touch(id string, bytes int64) {
	r.mu.Lock()
	r.totalBytes += bytes
	if rec, ok := r.active[id]; ok {
		rec.Bytes += bytes
	}
	r.mu.Unlock()
}

// Deregister removes a session record. Removing an unknown id is a no-op, so
// cleanup paths may race with the sweep safely.
func (r *Registry) Deregister(id string) {
	r.mu.Lock()
	_, existed := r.active[id]
	delete(r.active, id)
	r.mu.Unlock()
	if existed {
		r.notify()
	}
}

// Get returns a copy of one active record.
func (r *Registry) Get(id string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.active[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// ListActive returns copies of all active session records.
func (r *Registry) ListActive() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, 0, len(r.active))
	for _, rec := range r.active {
		out = append(out, *rec)
	}
	return out
}

// TotalBytes returns the process-lifetime bytes-transferred counter.
func (r *Registry) TotalBytes() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.totalBytes
}

// TotalStreams returns the process-lifetime streams-started counter.
func (r *Registry) TotalStreams() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.totalStreams
}

// SweepStale evicts records whose start time is older than maxAge,
// regardless of whether their connection closed. Returns the eviction count.
func (r *Registry) SweepStale(maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)
	r.mu.Lock()
	var removed int
	for id, rec := range r.active {
		if rec.StartedAt.Before(cutoff) {
			delete(r.active, id)
			removed++
		}
	}
	r.mu.Unlock()
	if removed > 0 {
		r.notify()
	}
	return removed
}

// Run sweeps on a fixed interval until ctx is cancelled. This is a backstop
// against any code path that failed to deregister.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.SweepStale(r.maxAge); n > 0 {
				log.Printf("sessions: swept %d stale session(s)", n)
			}
		}
	}
}

// Subscribe returns a channel receiving active-session snapshots whenever the
// table changes. Slow consumers miss snapshots rather than blocking streams.
func (r *Registry) Subscribe() chan []Record {
	ch := make(chan []Record, 4)
	r.subMu.Lock()
	r.subscribers[ch] = struct{}{}
	r.subMu.Unlock()
	return ch
}

func (r *Registry) Unsubscribe(ch chan []Record) {
	r.subMu.Lock()
	delete(r.subscribers, ch)
	r.subMu.Unlock()
}

func (r *Registry) notify() {
	snapshot := r.ListActive()
	r.subMu.Lock()
	for ch := range r.subscribers {
		select {
		case ch <- snapshot:
		default:
		}
	}
	r.subMu.Unlock()
}
