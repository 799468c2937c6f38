// Package session holds the one signed-in user of a client process and
// mirrors it into Storage. There is no cross-process synchronization: the
// last writer to storage wins.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/orienta/orienta/internal/models"
)

// record is the persisted shape.
type record struct {
	User  models.User `json:"user"`
	Token string      `json:"token,omitempty"`
}

// Holder is safe for concurrent use.
type Holder struct {
	mu      sync.RWMutex
	storage Storage
	logger  *zap.Logger
	user    *models.User
	token   string

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(*models.User)
}

// New builds a Holder and synchronously restores a previously stored
// session. Unreadable or corrupt storage yields an anonymous holder.
func New(storage Storage, logger *zap.Logger) *Holder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if storage == nil {
		storage = &MemoryStorage{}
	}
	h := &Holder{storage: storage, logger: logger, subs: map[int]func(*models.User){}}
	data, err := storage.Load()
	if err != nil {
		logger.Warn("session storage unreadable", zap.Error(err))
		return h
	}
	if len(data) == 0 {
		return h
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil || rec.User.ID == "" {
		logger.Warn("discarding stored session", zap.Error(err))
		return h
	}
	u := rec.User
	h.user = &u
	h.token = rec.Token
	return h
}

// User returns a copy of the current user, or nil.
func (h *Holder) User() *models.User {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.user == nil {
		return nil
	}
	u := *h.user
	return &u
}

// Token is the bearer token of the current session, or "".
func (h *Holder) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

func (h *Holder) Authenticated() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.user != nil
}

// Login persists u and then makes it the current user. When storage fails
// the previous session stays in place.
func (h *Holder) Login(u models.User, token string) error {
	if u.ID == "" {
		return errors.New("session: user id required")
	}
	data, err := json.Marshal(record{User: u, Token: token})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	h.mu.Lock()
	if err := h.storage.Save(data); err != nil {
		h.mu.Unlock()
		return fmt.Errorf("persist session: %w", err)
	}
	h.user = &u
	h.token = token
	h.mu.Unlock()
	h.notify(&u)
	return nil
}

// Logout clears the in-memory user and the stored copy. The in-memory user
// is cleared even when storage fails.
func (h *Holder) Logout() error {
	h.mu.Lock()
	h.user = nil
	h.token = ""
	h.mu.Unlock()
	err := h.storage.Clear()
	h.notify(nil)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Subscribe registers fn to run after every Login and Logout. The returned
// function removes it.
func (h *Holder) Subscribe(fn func(*models.User)) func() {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	return func() {
		h.subMu.Lock()
		delete(h.subs, id)
		h.subMu.Unlock()
	}
}

func (h *Holder) notify(u *models.User) {
	h.subMu.Lock()
	fns := make([]func(*models.User), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.subMu.Unlock()
	for _, fn := range fns {
		var cp *models.User
		if u != nil {
			v := *u
			cp = &v
		}
		fn(cp)
	}
}

type ctxKey int

const holderKey ctxKey = 3

// WithHolder attaches h to ctx.
func WithHolder(ctx context.Context, h *Holder) context.Context {
	return context.WithValue(ctx, holderKey, h)
}

// FromContext returns the Holder attached by WithHolder, or nil.
func FromContext(ctx context.Context) *Holder {
	if h, ok := ctx.Value(holderKey).(*Holder); ok {
		return h
	}
	return nil
}
