package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "a", []byte("one")))
	require.NoError(t, s.Put(ctx, "a", []byte("two")))
	b, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "two", string(b))

	require.NoError(t, s.Evict(ctx, "a"))
	_, ok, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	// evicting a missing key is not an error
	assert.NoError(t, s.Evict(ctx, "missing"))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemoryStoreCopies(t *testing.T) {
	m := NewMemory()
	buf := []byte("abc")
	require.NoError(t, m.Put(context.Background(), "k", buf))
	buf[0] = 'z'
	got, _, _ := m.Get(context.Background(), "k")
	assert.Equal(t, "abc", string(got))
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestOpenSQLiteRejectsEmptyDSN(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "  ")
	assert.Error(t, err)
}

func TestManagerCookieLifecycle(t *testing.T) {
	m := NewManager(NewMemory(), false)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sid := m.Ensure(rec, req)
	require.NotEmpty(t, sid)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookies[0])
	rec2 := httptest.NewRecorder()
	assert.Equal(t, sid, m.Ensure(rec2, req2))
	assert.Empty(t, rec2.Result().Cookies(), "existing session must not be reissued")

	require.NoError(t, m.SetUser(ctx, sid, "ana"))
	user, ok := m.User(ctx, sid)
	assert.True(t, ok)
	assert.Equal(t, "ana", user)

	require.NoError(t, m.Flash(ctx, sid, "saved"))
	assert.Equal(t, "saved", m.PopFlash(ctx, sid))
	assert.Equal(t, "", m.PopFlash(ctx, sid))

	rec3 := httptest.NewRecorder()
	fresh := m.Renew(ctx, rec3, req2)
	assert.NotEqual(t, sid, fresh)
	_, ok = m.User(ctx, sid)
	assert.False(t, ok)
	require.Len(t, rec3.Result().Cookies(), 1)
	assert.Equal(t, fresh, rec3.Result().Cookies()[0].Value)
}

func TestManagerRotateKeepsTableDropsOldID(t *testing.T) {
	m := NewManager(NewMemory(), false)
	ctx := context.Background()

	planted := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: planted})
	require.Equal(t, planted, m.Ensure(httptest.NewRecorder(), req))
	require.NoError(t, m.Store.Put(ctx, Key(planted, KeyTable), []byte("blob")))
	require.NoError(t, m.SetUser(ctx, planted, "mallory"))

	rec := httptest.NewRecorder()
	sid := m.Rotate(ctx, rec, planted)
	assert.NotEqual(t, planted, sid)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, sid, rec.Result().Cookies()[0].Value)

	b, ok, err := m.Store.Get(ctx, Key(sid, KeyTable))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "blob", string(b))
	_, ok, _ = m.Store.Get(ctx, Key(planted, KeyTable))
	assert.False(t, ok)
	_, ok = m.User(ctx, planted)
	assert.False(t, ok)
}

func TestManagerIgnoresForgedCookie(t *testing.T) {
	m := NewManager(NewMemory(), false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "../../etc"})
	_, ok := m.Lookup(req)
	assert.False(t, ok)
}
