// Package query caches service reads by key and tracks their request state.
//
// Fetches for one key are serialized: concurrent callers share a single
// in-flight request. Nothing orders fetches across keys. Mutations go through
// Mutate, which invalidates the keys named for them in Rules once they
// succeed; a fetch that completes after its key was invalidated is dropped.
package query

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type Status int

const (
	Idle Status = iota
	Loading
	Success
	Error
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "idle"
	}
}

// Entry is a snapshot of one key. Data survives a later failed fetch.
type Entry struct {
	Status    Status
	Data      any
	Err       error
	UpdatedAt time.Time
}

type entry struct {
	Entry
	gen uint64
}

// Cache is safe for concurrent use.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*entry
	gen       uint64
	group     singleflight.Group
	rules     Rules
	staleTime time.Duration
	now       func() time.Time

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(string, Entry)
}

type Option func(*Cache)

// WithStaleTime lets Get serve a successful entry younger than d without
// fetching. The default of 0 fetches on every Get.
func WithStaleTime(d time.Duration) Option {
	return func(c *Cache) { c.staleTime = d }
}

// WithRules replaces DefaultRules.
func WithRules(r Rules) Option {
	return func(c *Cache) { c.rules = r }
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries: map[string]*entry{},
		rules:   DefaultRules(),
		now:     time.Now,
		subs:    map[int]func(string, Entry){},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current snapshot of key.
func (c *Cache) State(key string) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.Entry
	}
	return Entry{}
}

// Subscribe calls fn after every state change. The returned function
// removes it.
func (c *Cache) Subscribe(fn func(key string, e Entry)) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Cache) publish(key string, e Entry) {
	c.subMu.Lock()
	fns := make([]func(string, Entry), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()
	for _, fn := range fns {
		fn(key, e)
	}
}

func (c *Cache) fresh(key string) (any, bool) {
	if c.staleTime <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.Status != Success {
		return nil, false
	}
	if c.now().Sub(e.UpdatedAt) >= c.staleTime {
		return nil, false
	}
	return e.Data, true
}

// begin marks key as loading and returns the generation a fetch started now
// must still match when it completes.
func (c *Cache) begin(key string) uint64 {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{gen: c.gen}
		c.entries[key] = e
	}
	e.Status = Loading
	snap, gen := e.Entry, e.gen
	c.mu.Unlock()
	c.publish(key, snap)
	return gen
}

func (c *Cache) finish(key string, gen uint64, v any, err error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || e.gen != gen {
		c.mu.Unlock()
		return
	}
	if err != nil {
		e.Status = Error
		e.Err = err
	} else {
		e.Status = Success
		e.Data = v
		e.Err = nil
		e.UpdatedAt = c.now()
	}
	snap := e.Entry
	c.mu.Unlock()
	c.publish(key, snap)
}

// Invalidate resets every key equal to, or starting with, one of prefixes.
// "*" matches all keys. In-flight fetches for those keys are detached so the
// next Get starts a new request and the old result is dropped.
func (c *Cache) Invalidate(prefixes ...string) {
	if len(prefixes) == 0 {
		return
	}
	c.mu.Lock()
	c.gen++
	var changed []string
	for key, e := range c.entries {
		if !matchAny(key, prefixes) {
			continue
		}
		e.gen = c.gen
		e.Entry = Entry{}
		changed = append(changed, key)
	}
	c.mu.Unlock()
	for _, key := range changed {
		c.group.Forget(key)
		c.publish(key, Entry{})
	}
}

func matchAny(key string, prefixes []string) bool {
	for _, p := range prefixes {
		if p == "*" || key == p || strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// Get returns the value for key, fetching it unless a fresh one is cached.
// ctx bounds only this caller's wait: a shared fetch keeps running for the
// other callers when one of them gives up.
func Get[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := c.fresh(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}
	ch := c.group.DoChan(key, func() (any, error) {
		gen := c.begin(key)
		v, err := fetch(context.WithoutCancel(ctx))
		c.finish(key, gen, v, err)
		return v, err
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		t, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("query: key %q holds %T", key, res.Val)
		}
		return t, nil
	}
}

// Peek returns the last successful value for key without fetching.
func Peek[T any](c *Cache, key string) (T, bool) {
	var zero T
	e := c.State(key)
	if e.Data == nil {
		return zero, false
	}
	t, ok := e.Data.(T)
	return t, ok
}

// Mutate runs fn and, when it succeeds, invalidates the keys Rules lists for
// mutation. A failed mutation leaves the cache untouched.
func Mutate[T any](ctx context.Context, c *Cache, mutation string, fn func(context.Context) (T, error)) (T, error) {
	v, err := fn(ctx)
	if err != nil {
		return v, err
	}
	c.Invalidate(c.rules.KeysFor(mutation)...)
	return v, nil
}
