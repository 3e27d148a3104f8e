package session

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// CookieName carries the session id.
const CookieName = "geoportal_session"

// Manager maps requests to session ids and wraps the typed values kept in
// the Store.
type Manager struct {
	Store  Store
	Secure bool
}

func NewManager(s Store, secure bool) *Manager { return &Manager{Store: s, Secure: secure} }

// Lookup returns the session id carried by r, if any.
func (m *Manager) Lookup(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return "", false
	}
	return c.Value, true
}

// Ensure returns the request's session id, issuing a new cookie when absent.
func (m *Manager) Ensure(w http.ResponseWriter, r *http.Request) string {
	if sid, ok := m.Lookup(r); ok {
		return sid
	}
	return m.issue(w)
}

func (m *Manager) issue(w http.ResponseWriter) string {
	sid := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return sid
}

// Renew drops the values of the request's session and issues a fresh id.
func (m *Manager) Renew(ctx context.Context, w http.ResponseWriter, r *http.Request) string {
	if sid, ok := m.Lookup(r); ok {
		for _, k := range []string{KeyTable, KeyUser, KeyFlash} {
			_ = m.Store.Evict(ctx, Key(sid, k))
		}
	}
	return m.issue(w)
}

// Rotate moves the cached table of old to a freshly issued id and drops
// everything else held under old. Called on login so an id known before
// authentication never carries the user.
func (m *Manager) Rotate(ctx context.Context, w http.ResponseWriter, old string) string {
	sid := m.issue(w)
	if old == "" {
		return sid
	}
	if b, ok, err := m.Store.Get(ctx, Key(old, KeyTable)); err == nil && ok {
		_ = m.Store.Put(ctx, Key(sid, KeyTable), b)
	}
	for _, k := range []string{KeyTable, KeyUser, KeyFlash} {
		_ = m.Store.Evict(ctx, Key(old, k))
	}
	return sid
}

// User returns the logged-in username of sid.
func (m *Manager) User(ctx context.Context, sid string) (string, bool) {
	b, ok, err := m.Store.Get(ctx, Key(sid, KeyUser))
	if err != nil || !ok || len(b) == 0 {
		return "", false
	}
	return string(b), true
}

func (m *Manager) SetUser(ctx context.Context, sid, username string) error {
	return m.Store.Put(ctx, Key(sid, KeyUser), []byte(username))
}

// Flash stores a one-shot message shown on the next page render.
func (m *Manager) Flash(ctx context.Context, sid, msg string) error {
	return m.Store.Put(ctx, Key(sid, KeyFlash), []byte(msg))
}

// PopFlash returns and clears the pending flash message.
func (m *Manager) PopFlash(ctx context.Context, sid string) string {
	b, ok, err := m.Store.Get(ctx, Key(sid, KeyFlash))
	if err != nil || !ok {
		return ""
	}
	_ = m.Store.Evict(ctx, Key(sid, KeyFlash))
	return string(b)
}
