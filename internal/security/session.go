package security

import (
	"context"
	"log"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/sessions"

	"portfolio/internal/models"
)

const (
	SessionName = "portfolio_admin"
	stateKey    = "admin"
	loginAction = "login"
)

type GuardOptions struct {
	MaxAge      time.Duration
	IdleTimeout time.Duration
	LoginPath   string

	// Attempts per ActionWindow, counted per session, client and action.
	// Login attempts have their own, tighter limit.
	LoginLimit   int
	ActionLimit  int
	ActionWindow time.Duration

	Now func() time.Time
}

// Guard loads the admin session for each request and enforces the
// authentication rules on protected routes.
type Guard struct {
	store sessions.Store
	opts  GuardOptions
}

func NewGuard(store sessions.Store, opts GuardOptions) *Guard {
	if opts.MaxAge == 0 {
		opts.MaxAge = 24 * time.Hour
	}
	if opts.LoginPath == "" {
		opts.LoginPath = "/admin/login.php"
	}
	if opts.LoginLimit == 0 {
		opts.LoginLimit = 10
	}
	if opts.ActionLimit == 0 {
		opts.ActionLimit = 100
	}
	if opts.ActionWindow == 0 {
		opts.ActionWindow = time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Guard{store: store, opts: opts}
}

// RequestContext is the per-request view of the admin session handed to
// handlers through the request context.
type RequestContext struct {
	*AdminState
	ClientIP    string
	ClientAgent string

	guard   *Guard
	session *sessions.Session
	dirty   bool
}

type ctxKey struct{}

// FromContext returns the RequestContext attached by Guard.Attach.
func FromContext(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(ctxKey{}).(*RequestContext)
	return rc
}

func (rc *RequestContext) IsAuthenticated() bool {
	return rc != nil && rc.AdminState != nil && rc.LoggedIn
}

// FormToken returns the CSRF token for this session, rotating it when stale.
func (rc *RequestContext) FormToken() string {
	token, err := rc.EnsureCSRFToken(rc.guard.now())
	if err != nil {
		log.Printf("Failed to generate CSRF token: %v", err)
		return ""
	}
	rc.dirty = true
	return token
}

func (rc *RequestContext) ValidCSRF(token string) bool {
	return rc.ValidCSRFToken(token, rc.guard.now())
}

// Allow applies the per-session admin action limit for this client.
func (rc *RequestContext) Allow(action string) bool {
	return rc.allow(action, rc.guard.opts.ActionLimit)
}

// AllowLogin applies the login attempt limit for this client.
func (rc *RequestContext) AllowLogin() bool {
	return rc.allow(loginAction, rc.guard.opts.LoginLimit)
}

func (rc *RequestContext) allow(action string, max int) bool {
	rc.dirty = true
	return rc.AllowAction(rc.ClientIP, action, max, rc.guard.opts.ActionWindow, rc.guard.now())
}

func (g *Guard) now() time.Time {
	return g.opts.Now()
}

// Load reads the admin session for r. Unreadable sessions are replaced by a
// fresh anonymous one.
func (g *Guard) Load(r *http.Request) *RequestContext {
	sess, err := g.store.Get(r, SessionName)
	if err != nil {
		log.Printf("Discarding unreadable session: %v", err)
	}
	if sess == nil {
		sess = sessions.NewSession(g.store, SessionName)
	}

	state := &AdminState{}
	if v, ok := sess.Values[stateKey].(AdminState); ok {
		*state = v
	}

	return &RequestContext{
		AdminState:  state,
		ClientIP:    ClientIP(r),
		ClientAgent: r.UserAgent(),
		guard:       g,
		session:     sess,
	}
}

// Attach loads the session into the request context and persists any change
// to it before the response headers go out.
func (g *Guard) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := g.Load(r)
		sw := &sessionWriter{ResponseWriter: w, guard: g, rc: rc, r: r}
		next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), ctxKey{}, rc)))
		sw.persist()
	})
}

// RequireAuth redirects to the login page unless the session is logged in,
// younger than MaxAge, active within IdleTimeout and bound to the same user
// agent. Rejected sessions are destroyed first.
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := FromContext(r.Context())
		if rc == nil {
			g.Attach(g.RequireAuth(next)).ServeHTTP(w, r)
			return
		}

		now := g.now()
		wasLoggedIn := rc.LoggedIn
		reason, ok := rc.Check(rc.ClientAgent, now, g.opts.MaxAge, g.opts.IdleTimeout)
		if !ok {
			if wasLoggedIn {
				if reason == ReasonSecurity {
					LogSecurityEvent(r, rc, "session_hijack_suspected", map[string]interface{}{
						"recorded_agent": rc.UserAgent,
					})
				}
				g.Destroy(rc)
			}
			http.Redirect(w, r, g.LoginURL(reason), http.StatusSeeOther)
			return
		}

		rc.LastActivity = now
		rc.dirty = true
		next.ServeHTTP(w, r)
	})
}

// LoginURL is the login page with the rejection reason flag.
func (g *Guard) LoginURL(reason string) string {
	if reason == ReasonNone {
		return g.opts.LoginPath
	}
	q := url.Values{}
	q.Set(reason, "1")
	return g.opts.LoginPath + "?" + q.Encode()
}

// Login marks the session authenticated for user under a new session id.
func (g *Guard) Login(rc *RequestContext, user *models.User) {
	now := g.now()
	windows := rc.RateWindows
	*rc.AdminState = AdminState{
		LoggedIn:     true,
		AdminID:      user.ID,
		Username:     user.Username,
		LoginTime:    now,
		LastActivity: now,
		UserAgent:    rc.ClientAgent,
		RateWindows:  windows,
	}
	rc.session.ID = ""
	rc.session.IsNew = true
	rc.dirty = true
}

// Destroy clears the session and expires its cookie.
func (g *Guard) Destroy(rc *RequestContext) {
	*rc.AdminState = AdminState{}
	for k := range rc.session.Values {
		delete(rc.session.Values, k)
	}
	rc.session.Options.MaxAge = -1
	rc.dirty = true
}

func (g *Guard) save(w http.ResponseWriter, r *http.Request, rc *RequestContext) {
	if rc.session.Options.MaxAge > 0 {
		rc.session.Values[stateKey] = *rc.AdminState
	}
	if err := rc.session.Save(r, w); err != nil {
		log.Printf("Failed to save session: %v", err)
	}
}

// sessionWriter saves a modified session just before the first header write.
type sessionWriter struct {
	http.ResponseWriter
	guard *Guard
	rc    *RequestContext
	r     *http.Request
	done  bool
}

func (sw *sessionWriter) persist() {
	if sw.done {
		return
	}
	sw.done = true
	if sw.rc.dirty {
		sw.guard.save(sw.ResponseWriter, sw.r, sw.rc)
	}
}

func (sw *sessionWriter) WriteHeader(code int) {
	sw.persist()
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *sessionWriter) Write(b []byte) (int, error) {
	sw.persist()
	return sw.ResponseWriter.Write(b)
}

// ClientIP is the remote address of r without the port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}
