// Package query is an in-process cache of server state keyed by string tuples.
// Loads are de-duplicated per key, entries carry a staleness policy, and
// writes are broadcast to subscribed views.
package query

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	json "github.com/json-iterator/go"
	"github.com/zfogg/threadline/pkg/logger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const defaultRetryDelay = 250 * time.Millisecond

// Loader produces the value of a query
type Loader func(ctx context.Context) (interface{}, error)

// Observer is called after every write to a subscribed key
type Observer func(Entry)

// Options controls one Fetch
type Options struct {
	// StaleTime is how long loaded data counts as fresh. Zero means data is
	// always stale; a negative value means it never goes stale on its own.
	StaleTime time.Duration
	// Force skips the freshness check
	Force bool
	// Retry is the number of extra attempts after a failed load
	Retry      int
	RetryDelay time.Duration
	// Source names what the loader reads when several loaders share a key.
	// Data recorded under another source, or under none, is never served.
	Source string
}

// Entry is a snapshot of one cached query
type Entry struct {
	Key         Key
	Value       interface{}
	Err         error
	HasData     bool
	UpdatedAt   time.Time
	Invalidated bool
	FetchCount  int
	IsFetching  bool
	// Source is the Options.Source of the load that produced Value
	Source string
}

// IsStale reports whether the entry should be reloaded under staleTime
func (e Entry) IsStale(staleTime time.Duration, now time.Time) bool {
	switch {
	case !e.HasData || e.Invalidated:
		return true
	case staleTime < 0:
		return false
	case staleTime == 0:
		return true
	default:
		return now.Sub(e.UpdatedAt) >= staleTime
	}
}

type entry struct {
	Entry
	loader Loader
	opts   Options
	// gen changes on every Invalidate; loads started under an older gen
	// are not written back
	gen      uint64
	inflight int
}

// ticket ties a load to the entry and generation it was started for
type ticket struct {
	e   *entry
	gen uint64
}

// Store holds query entries for the lifetime of a session
type Store struct {
	mu           sync.Mutex
	entries      map[string]*entry
	observers    map[string]map[uint64]Observer
	nextObserver uint64
	generation   uint64

	group     singleflight.Group
	persister Persister
	metrics   *Metrics
	now       func() time.Time
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithPersister adds a second-level cache
func WithPersister(p Persister) StoreOption {
	return func(s *Store) {
		s.persister = p
	}
}

// WithClock overrides time.Now, for tests
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty store
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		entries:   make(map[string]*entry),
		observers: make(map[string]map[uint64]Observer),
		metrics:   newMetrics(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Metrics returns the store's collectors
func (s *Store) Metrics() *Metrics {
	return s.metrics
}

// Close releases the persister, if any
func (s *Store) Close() error {
	if s.persister == nil {
		return nil
	}
	return s.persister.Close()
}

func metricLabel(key Key) string {
	if len(key) == 0 {
		return "root"
	}
	return key[0]
}

// entryLocked returns the entry for key, creating it if needed. s.mu must be held.
func (s *Store) entryLocked(key Key) *entry {
	k := key.String()
	e, ok := s.entries[k]
	if !ok {
		s.generation++
		e = &entry{Entry: Entry{Key: append(Key(nil), key...)}, gen: s.generation}
		s.entries[k] = e
		s.metrics.Entries.Set(float64(len(s.entries)))
	}
	return e
}

// Fetch returns cached data when it is fresh under opts, and otherwise runs
// loader. Concurrent fetches of the same key share a single load; a caller
// whose ctx ends stops waiting without cancelling the shared load for others
// unless it was the one that started it.
func (s *Store) Fetch(ctx context.Context, key Key, loader Loader, opts Options) (interface{}, error) {
	label := metricLabel(key)

	s.mu.Lock()
	e := s.entryLocked(key)
	e.loader, e.opts = loader, opts
	hasData := e.HasData
	fresh := !opts.Force && !e.IsStale(opts.StaleTime, s.now()) && e.servesSource(opts.Source)
	value := e.Value
	t := ticket{e: e, gen: e.gen}
	s.mu.Unlock()

	if fresh {
		s.metrics.HitsTotal.WithLabelValues(label).Inc()
		logger.Debug("Query cache hit", "key", key.String())
		return value, nil
	}

	if !hasData && !opts.Force && s.persister != nil {
		if v, ok := s.hydrate(ctx, key, opts); ok {
			s.metrics.HitsTotal.WithLabelValues(label).Inc()
			logger.Debug("Query cache hit (persisted)", "key", key.String())
			return v, nil
		}
	}

	s.metrics.MissesTotal.WithLabelValues(label).Inc()
	return s.load(ctx, t, loader, opts)
}

func (e *entry) servesSource(source string) bool {
	return source == "" || e.Source == source
}

// hydrate fills an empty entry from the persister and reports whether the
// persisted data is fresh enough to serve
func (s *Store) hydrate(ctx context.Context, key Key, opts Options) (interface{}, bool) {
	snap, err := s.persister.Load(ctx, key.String())
	if err != nil {
		s.metrics.PersistErrorsTotal.WithLabelValues("load").Inc()
		logger.Warn("Failed to read persisted query", "key", key.String(), "error", err)
		return nil, false
	}
	if snap == nil {
		return nil, false
	}
	if opts.Source != "" && snap.Source != opts.Source {
		logger.Debug("Persisted query has another source", "key", key.String(), "source", snap.Source, "want", opts.Source)
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entryLocked(key)
	if !e.HasData {
		e.Value = json.RawMessage(snap.Data)
		e.HasData = true
		e.UpdatedAt = snap.UpdatedAt
		e.Source = snap.Source
	}
	if e.IsStale(opts.StaleTime, s.now()) || !e.servesSource(opts.Source) {
		return nil, false
	}
	return e.Value, true
}

// load runs loader once per key, source and generation. A load started
// before an Invalidate is never joined by the refetch that follows it.
func (s *Store) load(ctx context.Context, t ticket, loader Loader, opts Options) (interface{}, error) {
	key := t.e.Key
	flight := fmt.Sprintf("%s\x00%s\x00%d", key, opts.Source, t.gen)
	ch := s.group.DoChan(flight, func() (interface{}, error) {
		s.beginLoad(t)

		start := time.Now()
		v, err := runLoader(ctx, key, loader, opts)
		s.metrics.LoadDuration.WithLabelValues(metricLabel(key)).Observe(time.Since(start).Seconds())

		s.finishLoad(ctx, t, opts.Source, v, err)
		return v, err
	})

	select {
	case res := <-ch:
		if res.Shared {
			s.metrics.SharedResultsTotal.WithLabelValues(metricLabel(key)).Inc()
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func runLoader(ctx context.Context, key Key, loader Loader, opts Options) (interface{}, error) {
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	for attempt := 0; ; attempt++ {
		v, err := loader(ctx)
		if err == nil || attempt >= opts.Retry || ctx.Err() != nil {
			return v, err
		}

		logger.Debug("Retrying query load", "key", key.String(), "attempt", attempt+1, "error", err)
		select {
		case <-time.After(delay << attempt):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// attachedLocked reports whether e is still the live entry for its key.
// Clear detaches every entry. s.mu must be held.
func (s *Store) attachedLocked(e *entry) bool {
	return s.entries[e.Key.String()] == e
}

func (s *Store) beginLoad(t ticket) {
	s.mu.Lock()
	e := t.e
	e.FetchCount++
	e.inflight++
	e.IsFetching = true
	snap := e.Entry
	attached := s.attachedLocked(e)
	s.mu.Unlock()

	if attached {
		s.notify(snap)
	}
}

func (s *Store) finishLoad(ctx context.Context, t ticket, source string, v interface{}, err error) {
	status := "success"

	s.mu.Lock()
	e := t.e
	e.inflight--
	e.IsFetching = e.inflight > 0
	attached := s.attachedLocked(e)
	switch {
	case !attached || e.gen != t.gen:
		status = "superseded"
	case err != nil:
		status = "error"
		e.Err = err
	default:
		e.Value = v
		e.HasData = true
		e.UpdatedAt = s.now()
		e.Err = nil
		e.Invalidated = false
		e.Source = source
	}
	snap := e.Entry
	s.mu.Unlock()

	s.metrics.LoadsTotal.WithLabelValues(metricLabel(snap.Key), status).Inc()
	if attached {
		s.notify(snap)
	}

	if status == "superseded" {
		logger.Debug("Dropping superseded query load", "key", snap.Key.String())
		return
	}
	if err != nil {
		logger.Debug("Query load failed", "key", snap.Key.String(), "error", err)
		return
	}
	s.persist(context.WithoutCancel(ctx), snap)
}

// Get returns a snapshot of the entry at key
func (s *Store) Get(key Key) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key.String()]
	if !ok {
		return Entry{}, false
	}
	return e.Entry, true
}

// Entries returns snapshots of every entry ordered by key
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Entry)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}

// Set replaces the data at key and notifies subscribers
func (s *Store) Set(key Key, value interface{}) {
	s.mu.Lock()
	e := s.entryLocked(key)
	e.Value = value
	e.HasData = true
	e.UpdatedAt = s.now()
	e.Err = nil
	snap := e.Entry
	s.mu.Unlock()

	s.afterWrite(snap)
}

func (s *Store) afterWrite(snap Entry) {
	s.metrics.SetsTotal.WithLabelValues(metricLabel(snap.Key)).Inc()
	s.notify(snap)
	s.persist(context.Background(), snap)
}

// Invalidate marks every entry under prefix stale and drops its persisted
// copy. Entries with subscribers are reloaded before Invalidate returns; the
// rest reload on their next Fetch.
func (s *Store) Invalidate(ctx context.Context, prefix Key) error {
	type refetch struct {
		t      ticket
		loader Loader
		opts   Options
	}

	s.mu.Lock()
	var matched []Entry
	var active []refetch
	for k, e := range s.entries {
		if !e.Key.HasPrefix(prefix) {
			continue
		}
		s.generation++
		e.gen = s.generation
		e.Invalidated = true
		matched = append(matched, e.Entry)
		if len(s.observers[k]) > 0 && e.loader != nil {
			active = append(active, refetch{t: ticket{e: e, gen: e.gen}, loader: e.loader, opts: e.opts})
		}
	}
	s.mu.Unlock()

	logger.Debug("Invalidating queries", "prefix", prefix.String(), "matched", len(matched), "active", len(active))

	for _, snap := range matched {
		s.metrics.InvalidationsTotal.WithLabelValues(metricLabel(snap.Key)).Inc()
		s.notify(snap)
	}

	if s.persister != nil {
		var err error
		if len(prefix) == 0 {
			err = s.persister.Clear(ctx)
		} else {
			err = s.persister.DeletePrefix(ctx, prefix.String())
		}
		if err != nil {
			s.metrics.PersistErrorsTotal.WithLabelValues("delete").Inc()
			logger.Warn("Failed to drop persisted queries", "prefix", prefix.String(), "error", err)
		}
	}

	var g errgroup.Group
	for _, r := range active {
		g.Go(func() error {
			_, err := s.load(ctx, r.t, r.loader, r.opts)
			return err
		})
	}
	return g.Wait()
}

// Clear drops every entry and the persisted cache. Subscriptions survive.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]*entry)
	s.metrics.Entries.Set(0)
	s.mu.Unlock()

	if s.persister == nil {
		return nil
	}
	return s.persister.Clear(ctx)
}

// Subscribe registers fn for writes to key and returns its cancel function
func (s *Store) Subscribe(key Key, fn Observer) func() {
	k := key.String()

	s.mu.Lock()
	s.nextObserver++
	id := s.nextObserver
	if s.observers[k] == nil {
		s.observers[k] = make(map[uint64]Observer)
	}
	s.observers[k][id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.observers[k], id)
			if len(s.observers[k]) == 0 {
				delete(s.observers, k)
			}
		})
	}
}

func (s *Store) notify(snap Entry) {
	s.mu.Lock()
	subs := s.observers[snap.Key.String()]
	fns := make([]Observer, 0, len(subs))
	for _, fn := range subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) persist(ctx context.Context, snap Entry) {
	if s.persister == nil {
		return
	}

	data, err := json.Marshal(snap.Value)
	if err != nil {
		s.metrics.PersistErrorsTotal.WithLabelValues("encode").Inc()
		logger.Warn("Failed to encode query for persistence", "key", snap.Key.String(), "error", err)
		return
	}

	err = s.persister.Save(ctx, &Snapshot{
		Key:       snap.Key.String(),
		Source:    snap.Source,
		UpdatedAt: snap.UpdatedAt,
		Data:      data,
	})
	if err != nil {
		s.metrics.PersistErrorsTotal.WithLabelValues("save").Inc()
		logger.Warn("Failed to persist query", "key", snap.Key.String(), "error", err)
	}
}

// decodeLocked converts the entry value to T, decoding hydrated JSON once.
// s.mu must be held.
func decodeLocked[T any](e *entry) (T, error) {
	switch v := e.Value.(type) {
	case T:
		return v, nil
	case json.RawMessage:
		var out T
		if err := json.Unmarshal(v, &out); err != nil {
			return out, fmt.Errorf("failed to decode cached %s: %w", e.Key, err)
		}
		e.Value = out
		return out, nil
	}

	var zero T
	if e.Value == nil {
		return zero, nil
	}
	return zero, fmt.Errorf("cached %s holds %T, not %T", e.Key, e.Value, zero)
}

// Fetch is the typed form of Store.Fetch
func Fetch[T any](ctx context.Context, s *Store, key Key, load func(context.Context) (T, error), opts Options) (T, error) {
	v, err := s.Fetch(ctx, key, func(ctx context.Context) (interface{}, error) {
		return load(ctx)
	}, opts)

	var zero T
	if err != nil {
		return zero, err
	}
	if out, ok := v.(T); ok {
		return out, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key.String()]
	if !ok {
		return zero, fmt.Errorf("cached %s vanished", key)
	}
	return decodeLocked[T](e)
}

// GetData returns the data at key as T
func GetData[T any](s *Store, key Key) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	e, ok := s.entries[key.String()]
	if !ok || !e.HasData {
		return zero, false
	}
	v, err := decodeLocked[T](e)
	if err != nil {
		logger.Warn("Cached query has unexpected shape", "key", key.String(), "error", err)
		return zero, false
	}
	return v, true
}

// SetData is the typed form of Store.Set
func SetData[T any](s *Store, key Key, value T) {
	s.Set(key, value)
}

// Update applies fn to the data at key. It does nothing and returns false
// when the key holds no data.
func Update[T any](s *Store, key Key, fn func(T) T) bool {
	s.mu.Lock()
	e, ok := s.entries[key.String()]
	if !ok || !e.HasData {
		s.mu.Unlock()
		return false
	}
	cur, err := decodeLocked[T](e)
	if err != nil {
		s.mu.Unlock()
		logger.Warn("Cached query has unexpected shape", "key", key.String(), "error", err)
		return false
	}
	e.Value = fn(cur)
	e.UpdatedAt = s.now()
	snap := e.Entry
	s.mu.Unlock()

	s.afterWrite(snap)
	return true
}
