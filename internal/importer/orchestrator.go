package importer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"spinsoul/internal/discogs"
)

// DefaultQuietPeriod is how long the query must stay unchanged before a
// search is sent.
const DefaultQuietPeriod = 400 * time.Millisecond

var (
	ErrImportInFlight = errors.New("an import is already in progress")
	ErrClosed         = errors.New("importer closed")
	ErrEmptyID        = errors.New("release id required")
)

type State int

const (
	Idle State = iota
	Searching
	Results
	Importing
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Searching:
		return "searching"
	case Results:
		return "results"
	case Importing:
		return "importing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Source is where candidates and release details come from: the Discogs
// client directly, or the spinsoul proxy via APIClient.
type Source interface {
	Search(ctx context.Context, q string) ([]discogs.SearchResult, error)
	Release(ctx context.Context, id string) (discogs.ReleaseDetail, error)
}

// Snapshot is a copy of the orchestrator state handed to observers.
type Snapshot struct {
	State     State
	Query     string
	Results   []discogs.SearchResult
	LastError string
	// ImportingID is the candidate currently being imported, "" when none.
	ImportingID string
}

type Option func(*Orchestrator)

func WithQuietPeriod(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.quiet = d
		}
	}
}

// WithPrefillSink sets the collaborator that receives each successful
// import, typically the record creation form.
func WithPrefillSink(fn func(RecordPrefill)) Option {
	return func(o *Orchestrator) { o.sink = fn }
}

// OnChange registers an observer called after every state transition,
// outside the orchestrator lock.
func OnChange(fn func(Snapshot)) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.listeners = append(o.listeners, fn)
		}
	}
}

// Orchestrator drives the import screen: debounced search, pick one
// candidate, look it up, hand a prefill on.
//
// Every query edit bumps a generation counter. Pending timers and search
// responses from an older generation are dropped, so a slow stale search
// can never overwrite newer results. At most one import runs at a time.
type Orchestrator struct {
	source    Source
	sink      func(RecordPrefill)
	quiet     time.Duration
	listeners []func(Snapshot)

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	state      State
	query      string
	results    []discogs.SearchResult
	lastError  string
	importing  string
	timer      *time.Timer
	generation uint64
	closed     bool
}

func New(source Source, opts ...Option) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		source:  source,
		quiet:   DefaultQuietPeriod,
		ctx:     ctx,
		cancel:  cancel,
		results: []discogs.SearchResult{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SetQuery records a keystroke. A blank query resets to Idle at once;
// anything else (re)schedules a search after the quiet period, cancelling
// whatever was scheduled before.
func (o *Orchestrator) SetQuery(q string) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}

	o.query = q
	o.generation++
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}

	trimmed := strings.TrimSpace(q)
	if trimmed == "" {
		o.setState(Idle)
		o.results = []discogs.SearchResult{}
		o.lastError = ""
		o.emitAndUnlock()
		return
	}

	gen := o.generation
	o.timer = time.AfterFunc(o.quiet, func() { o.runSearch(gen, trimmed) })
	o.mu.Unlock()
}

func (o *Orchestrator) runSearch(gen uint64, q string) {
	o.mu.Lock()
	if o.closed || gen != o.generation {
		o.mu.Unlock()
		return
	}
	o.timer = nil
	o.setState(Searching)
	o.lastError = ""
	o.emitAndUnlock()

	results, err := o.source.Search(o.ctx, q)

	o.mu.Lock()
	if o.closed || gen != o.generation {
		o.mu.Unlock()
		return
	}
	if err != nil {
		o.setState(Failed)
		o.lastError = errorText(err, "Search failed")
		o.results = []discogs.SearchResult{}
	} else {
		if results == nil {
			results = []discogs.SearchResult{}
		}
		o.setState(Results)
		o.results = results
	}
	o.emitAndUnlock()
}

// setState moves to s unless an import is running, in which case the state
// stays Importing until Select finishes. Must be called with o.mu held.
func (o *Orchestrator) setState(s State) {
	if o.importing != "" {
		return
	}
	o.state = s
}

// Select imports one candidate and blocks until the lookup finishes. It
// fails fast with ErrImportInFlight while another import is running. On
// success the prefill is passed to the sink and returned; on failure the
// current results are kept so the user can retry.
func (o *Orchestrator) Select(ctx context.Context, id string) (RecordPrefill, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return RecordPrefill{}, ErrEmptyID
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return RecordPrefill{}, ErrClosed
	}
	if o.importing != "" {
		o.mu.Unlock()
		return RecordPrefill{}, ErrImportInFlight
	}
	o.importing = id
	o.state = Importing
	o.lastError = ""
	o.emitAndUnlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(o.ctx, cancel)
	defer stop()

	detail, err := o.source.Release(ctx, id)

	o.mu.Lock()
	o.importing = ""
	if o.closed {
		o.mu.Unlock()
		return RecordPrefill{}, ErrClosed
	}
	if err != nil {
		o.state = Failed
		o.lastError = errorText(err, "Release fetch failed")
		o.emitAndUnlock()
		return RecordPrefill{}, err
	}

	prefill := NewPrefill(detail)
	o.state = Done
	sink := o.sink
	o.emitAndUnlock()

	if sink != nil {
		sink(prefill)
	}
	return prefill, nil
}

// Close discards the orchestrator: pending searches are cancelled, in-flight
// requests are aborted and any late result is dropped.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.cancel()
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	results := make([]discogs.SearchResult, len(o.results))
	copy(results, o.results)
	return Snapshot{
		State:       o.state,
		Query:       o.query,
		Results:     results,
		LastError:   o.lastError,
		ImportingID: o.importing,
	}
}

// emitAndUnlock must be called with o.mu held.
func (o *Orchestrator) emitAndUnlock() {
	if len(o.listeners) == 0 {
		o.mu.Unlock()
		return
	}
	snap := o.snapshotLocked()
	o.mu.Unlock()
	for _, fn := range o.listeners {
		fn(snap)
	}
}

func errorText(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallback
}
