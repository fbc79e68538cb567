// Package identity manages the stable per-tab playerId a client uses to
// identify itself to the live-session authority across reconnects. The
// key is scoped to the current tab's lifetime, not the whole browser
// profile: `keyboardia:playerId:<sessionId>`.
package identity

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

// Store resolves a stable playerId for a session id, minting one on
// first access and returning the same value on every subsequent call
// for that session id for as long as the store's backing lifetime
// lasts.
type Store interface {
	PlayerID(sessionID string) (string, error)
}

func keyFor(sessionID string) string {
	return fmt.Sprintf("keyboardia:playerId:%s", sessionID)
}

// MemoryStore is the process-lifetime default: a single CLI process or
// long-running authority/scheduler keeps its playerId for as long as it
// runs, matching a browser tab's lifetime in a web deployment.
type MemoryStore struct {
	mu  sync.Mutex
	ids map[string]string
}

// NewMemoryStore returns an empty in-process identity store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]string)}
}

func (s *MemoryStore) PlayerID(sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := keyFor(sessionID)
	if id, ok := s.ids[key]; ok {
		return id, nil
	}
	id := uuid.NewString()
	s.ids[key] = id
	return id, nil
}

// CookieStore backs the identity key/value pair with a gorilla/sessions
// cookie, for the server-hosted HTTP deployment where a browser tab
// maps to a cookie-scoped request rather than a long-lived process.
type CookieStore struct {
	store       sessions.Store
	cookieName  string
	req         *http.Request
	w           http.ResponseWriter
}

// NewCookieStore wraps a gorilla/sessions store bound to one HTTP
// request/response pair. cookieName is the session cookie's name; the
// playerId itself is stored under keyFor(sessionID) inside that
// cookie's value map so one cookie can outlive several session ids
// (e.g. a player visiting several sequencer rooms in the same tab).
func NewCookieStore(store sessions.Store, cookieName string, w http.ResponseWriter, r *http.Request) *CookieStore {
	return &CookieStore{store: store, cookieName: cookieName, w: w, req: r}
}

func (c *CookieStore) PlayerID(sessionID string) (string, error) {
	sess, err := c.store.Get(c.req, c.cookieName)
	if err != nil {
		return "", fmt.Errorf("identity: load cookie session: %w", err)
	}
	key := keyFor(sessionID)
	if v, ok := sess.Values[key]; ok {
		if id, ok := v.(string); ok && id != "" {
			return id, nil
		}
	}
	id := uuid.NewString()
	sess.Values[key] = id
	if err := sess.Save(c.req, c.w); err != nil {
		return "", fmt.Errorf("identity: save cookie session: %w", err)
	}
	return id, nil
}
