package sessionstore

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, Options{Secret: testSecret, MaxAge: time.Hour}), mr
}

func requestWith(cookies []*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/admin/dashboard.php", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, mr := newRedisStore(t)

	r := requestWith(nil)
	sess, err := store.Get(r, "admin")
	require.NoError(t, err)
	assert.True(t, sess.IsNew)

	sess.Values["user"] = "ada"
	w := httptest.NewRecorder()
	require.NoError(t, store.Save(r, w, sess))
	require.NotEmpty(t, sess.ID)
	assert.True(t, mr.Exists(keyPrefix+sess.ID))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)

	again, err := store.Get(requestWith(cookies), "admin")
	require.NoError(t, err)
	assert.False(t, again.IsNew)
	assert.Equal(t, sess.ID, again.ID)
	assert.Equal(t, "ada", again.Values["user"])
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := newRedisStore(t)

	r := requestWith(nil)
	sess, err := store.New(r, "admin")
	require.NoError(t, err)
	sess.Values["user"] = "ada"
	w := httptest.NewRecorder()
	require.NoError(t, store.Save(r, w, sess))

	mr.FastForward(2 * time.Hour)

	expired, err := store.New(requestWith(w.Result().Cookies()), "admin")
	require.NoError(t, err)
	assert.True(t, expired.IsNew)
	assert.Empty(t, expired.ID)
	assert.Empty(t, expired.Values)
}

func TestRedisStoreDeleteOnNegativeMaxAge(t *testing.T) {
	store, mr := newRedisStore(t)

	r := requestWith(nil)
	sess, err := store.New(r, "admin")
	require.NoError(t, err)
	require.NoError(t, store.Save(r, httptest.NewRecorder(), sess))
	id := sess.ID
	require.True(t, mr.Exists(keyPrefix+id))

	sess.Options.MaxAge = -1
	w := httptest.NewRecorder()
	require.NoError(t, store.Save(r, w, sess))
	assert.False(t, mr.Exists(keyPrefix+id))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestRedisStoreRejectsTamperedCookie(t *testing.T) {
	store, _ := newRedisStore(t)

	r := requestWith([]*http.Cookie{{Name: "admin", Value: "forged"}})
	sess, err := store.New(r, "admin")
	assert.Error(t, err)
	assert.True(t, sess.IsNew)
}

func TestFilesystemStoreOptions(t *testing.T) {
	store, err := NewFilesystem(t.TempDir(), Options{Secret: testSecret, MaxAge: 24 * time.Hour, Secure: true})
	require.NoError(t, err)
	assert.Equal(t, 86400, store.Options.MaxAge)
	assert.True(t, store.Options.Secure)
	assert.True(t, store.Options.HttpOnly)
}
