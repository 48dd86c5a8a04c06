package security

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio/internal/models"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type guardEnv struct {
	srv    *httptest.Server
	client *http.Client
	clock  *testClock
	agent  string
}

func newGuardEnv(t *testing.T, opts GuardOptions) *guardEnv {
	t.Helper()

	store := sessions.NewFilesystemStore(t.TempDir(), []byte("0123456789abcdef0123456789abcdef"))
	store.MaxLength(8192)
	store.Options = &sessions.Options{Path: "/", MaxAge: 86400, HttpOnly: true}

	clock := &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	opts.Now = clock.Now
	guard := NewGuard(store, opts)

	mux := http.NewServeMux()
	mux.Handle("/admin/login.php", guard.Attach(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := FromContext(r.Context())
		if r.Method == http.MethodPost {
			guard.Login(rc, &models.User{ID: 7, Username: "admin"})
		}
		io.WriteString(w, "login")
	})))
	mux.Handle("/admin/dashboard.php", guard.Attach(guard.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "hello "+FromContext(r.Context()).Username)
	}))))
	mux.Handle("/admin/token", guard.Attach(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, FromContext(r.Context()).FormToken())
	})))
	mux.Handle("/admin/check", guard.Attach(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, strconv.FormatBool(FromContext(r.Context()).ValidCSRF(r.URL.Query().Get("token"))))
	})))
	mux.Handle("/admin/act", guard.Attach(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, strconv.FormatBool(FromContext(r.Context()).Allow("save")))
	})))
	mux.Handle("/admin/attempt", guard.Attach(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, strconv.FormatBool(FromContext(r.Context()).AllowLogin()))
	})))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &guardEnv{srv: srv, client: client, clock: clock, agent: "Mozilla/5.0 (X11; Linux x86_64) Firefox/124.0"}
}

func (e *guardEnv) do(t *testing.T, method, path string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", e.agent)
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (e *guardEnv) sessionCookie(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(e.srv.URL)
	require.NoError(t, err)
	for _, c := range e.client.Jar.Cookies(u) {
		if c.Name == SessionName {
			return c.Value
		}
	}
	return ""
}

func TestRequireAuthRedirectsAnonymous(t *testing.T) {
	env := newGuardEnv(t, GuardOptions{})

	resp, _ := env.do(t, http.MethodGet, "/admin/dashboard.php")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/login.php", resp.Header.Get("Location"))
}

func TestLoginRotatesSessionAndGrantsAccess(t *testing.T) {
	env := newGuardEnv(t, GuardOptions{})

	env.do(t, http.MethodGet, "/admin/token")
	before := env.sessionCookie(t)
	require.NotEmpty(t, before)

	env.do(t, http.MethodPost, "/admin/login.php")
	after := env.sessionCookie(t)
	assert.NotEqual(t, before, after)

	resp, body := env.do(t, http.MethodGet, "/admin/dashboard.php")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello admin", body)
}

func TestSessionAbsoluteTimeout(t *testing.T) {
	env := newGuardEnv(t, GuardOptions{})
	env.do(t, http.MethodPost, "/admin/login.php")

	env.clock.Advance(24*time.Hour - time.Minute)
	env.mustEnter(t)

	env.clock.Advance(time.Minute + time.Second)
	resp, _ := env.do(t, http.MethodGet, "/admin/dashboard.php")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/login.php?timeout=1", resp.Header.Get("Location"))

	// The session was destroyed, so the next visit is plain anonymous.
	resp, _ = env.do(t, http.MethodGet, "/admin/dashboard.php")
	assert.Equal(t, "/admin/login.php", resp.Header.Get("Location"))
}

// mustEnter touches the dashboard and expects to be let in.
func (e *guardEnv) mustEnter(t *testing.T) {
	t.Helper()
	resp, _ := e.do(t, http.MethodGet, "/admin/dashboard.php")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionIdleTimeout(t *testing.T) {
	env := newGuardEnv(t, GuardOptions{IdleTimeout: 30 * time.Minute})
	env.do(t, http.MethodPost, "/admin/login.php")

	env.clock.Advance(29 * time.Minute)
	env.mustEnter(t)

	env.clock.Advance(31 * time.Minute)
	resp, _ := env.do(t, http.MethodGet, "/admin/dashboard.php")
	assert.Equal(t, "/admin/login.php?inactive=1", resp.Header.Get("Location"))
}

func TestSessionUserAgentMismatch(t *testing.T) {
	env := newGuardEnv(t, GuardOptions{})
	env.do(t, http.MethodPost, "/admin/login.php")
	env.mustEnter(t)

	env.agent = "curl/8.5.0"
	resp, _ := env.do(t, http.MethodGet, "/admin/dashboard.php")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/login.php?security=1", resp.Header.Get("Location"))

	// Switching back does not revive the destroyed session.
	env.agent = "Mozilla/5.0 (X11; Linux x86_64) Firefox/124.0"
	resp, _ = env.do(t, http.MethodGet, "/admin/dashboard.php")
	assert.Equal(t, "/admin/login.php", resp.Header.Get("Location"))
}

func TestFormTokenPersistsAcrossRequests(t *testing.T) {
	env := newGuardEnv(t, GuardOptions{})

	_, token := env.do(t, http.MethodGet, "/admin/token")
	require.Len(t, token, 64)

	_, again := env.do(t, http.MethodGet, "/admin/token")
	assert.Equal(t, token, again)

	_, ok := env.do(t, http.MethodGet, "/admin/check?token="+token)
	assert.Equal(t, "true", ok)
	_, ok = env.do(t, http.MethodGet, "/admin/check?token=forged")
	assert.Equal(t, "false", ok)

	env.clock.Advance(CSRFTokenTTL + time.Second)
	_, ok = env.do(t, http.MethodGet, "/admin/check?token="+token)
	assert.Equal(t, "false", ok)

	_, rotated := env.do(t, http.MethodGet, "/admin/token")
	assert.NotEqual(t, token, rotated)
}

func TestAllowLimitsActionsPerSession(t *testing.T) {
	env := newGuardEnv(t, GuardOptions{ActionLimit: 2, ActionWindow: time.Hour})

	for i := 0; i < 2; i++ {
		_, body := env.do(t, http.MethodPost, "/admin/act")
		assert.Equal(t, "true", body)
	}
	_, body := env.do(t, http.MethodPost, "/admin/act")
	assert.Equal(t, "false", body)

	env.clock.Advance(time.Hour + time.Second)
	_, body = env.do(t, http.MethodPost, "/admin/act")
	assert.Equal(t, "true", body)
}

func TestLoginLimitIsSeparateFromActions(t *testing.T) {
	env := newGuardEnv(t, GuardOptions{LoginLimit: 2, ActionLimit: 5, ActionWindow: time.Hour})

	for i := 0; i < 2; i++ {
		_, body := env.do(t, http.MethodPost, "/admin/attempt")
		assert.Equal(t, "true", body)
	}
	_, body := env.do(t, http.MethodPost, "/admin/attempt")
	assert.Equal(t, "false", body)

	for i := 0; i < 5; i++ {
		_, body = env.do(t, http.MethodPost, "/admin/act")
		assert.Equal(t, "true", body, "action %d", i)
	}
	_, body = env.do(t, http.MethodPost, "/admin/act")
	assert.Equal(t, "false", body)
}

func TestDefaultLimits(t *testing.T) {
	g := NewGuard(sessions.NewCookieStore([]byte("k")), GuardOptions{})
	assert.Equal(t, 10, g.opts.LoginLimit)
	assert.Equal(t, 100, g.opts.ActionLimit)
}

func TestLoginURL(t *testing.T) {
	g := NewGuard(sessions.NewCookieStore([]byte("k")), GuardOptions{})
	assert.Equal(t, "/admin/login.php", g.LoginURL(ReasonNone))
	assert.Equal(t, "/admin/login.php?timeout=1", g.LoginURL(ReasonTimeout))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.9:51234"
	assert.Equal(t, "203.0.113.9", ClientIP(r))

	r.RemoteAddr = ""
	assert.Equal(t, "unknown", ClientIP(r))
}
