// Package session keeps per-visitor data behind a cookie.
package session

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const DefaultCookieName = "reqprof_session"

type ctxKey struct{}

// Session is the data of one visitor.
type Session struct {
	id string

	mu   sync.RWMutex
	data map[string]any
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
}

func (s *Session) Delete(key string) {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
}

// All returns a deep copy of the session data.
func (s *Session) All() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyMap(s.data)
}

// Store keeps sessions in memory.
type Store struct {
	cookie string

	mu       sync.Mutex
	sessions map[string]map[string]any
}

func NewStore(cookieName string) *Store {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Store{cookie: cookieName, sessions: make(map[string]map[string]any)}
}

// Load returns the session named by the request cookie, or a new one.
func (s *Store) Load(r *http.Request) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, err := r.Cookie(s.cookie); err == nil {
		if data, ok := s.sessions[c.Value]; ok {
			return &Session{id: c.Value, data: copyMap(data)}
		}
	}
	return &Session{id: uuid.NewString(), data: make(map[string]any)}
}

func (s *Store) Save(sess *Session) {
	data := sess.All()

	s.mu.Lock()
	s.sessions[sess.id] = data
	s.mu.Unlock()
}

// Cookie returns the cookie that names sess.
func (s *Store) Cookie(sess *Session) *http.Cookie {
	return &http.Cookie{
		Name:     s.cookie,
		Value:    sess.id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(ctxKey{}).(*Session)
	return sess, ok
}

// Hide replaces the value at each dot separated path with mask.
func Hide(data map[string]any, paths []string, mask string) map[string]any {
	out := copyMap(data)
	for _, path := range paths {
		hide(out, strings.Split(path, "."), mask)
	}
	return out
}

func hide(data map[string]any, keys []string, mask string) {
	v, ok := data[keys[0]]
	if !ok {
		return
	}
	if len(keys) == 1 {
		data[keys[0]] = mask
		return
	}
	if nested, ok := v.(map[string]any); ok {
		hide(nested, keys[1:], mask)
	}
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = copyMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}
