package security

import (
	"crypto/subtle"
	"encoding/gob"
	"time"
)

const (
	CSRFTokenTTL   = time.Hour
	csrfTokenBytes = 32
)

// Reasons a session is rejected; used as the login page query flag.
const (
	ReasonNone     = ""
	ReasonTimeout  = "timeout"
	ReasonInactive = "inactive"
	ReasonSecurity = "security"
)

// RateWindow counts one action for one client inside a fixed window.
type RateWindow struct {
	Client string
	Action string
	Start  time.Time
	Count  int
}

// AdminState is everything kept in the admin session.
type AdminState struct {
	LoggedIn     bool
	AdminID      int64
	Username     string
	LoginTime    time.Time
	LastActivity time.Time
	UserAgent    string

	CSRFToken  string
	CSRFIssued time.Time

	RateWindows []RateWindow
}

func init() {
	gob.Register(AdminState{})
}

// Check decides whether an authenticated session may continue. It records
// the user agent on first use.
func (s *AdminState) Check(userAgent string, now time.Time, maxAge, idle time.Duration) (string, bool) {
	if !s.LoggedIn {
		return ReasonNone, false
	}
	if !s.LoginTime.IsZero() && now.Sub(s.LoginTime) > maxAge {
		return ReasonTimeout, false
	}
	if idle > 0 && !s.LastActivity.IsZero() && now.Sub(s.LastActivity) > idle {
		return ReasonInactive, false
	}
	if s.UserAgent == "" {
		s.UserAgent = userAgent
	} else if s.UserAgent != userAgent {
		return ReasonSecurity, false
	}
	return ReasonNone, true
}

// EnsureCSRFToken returns the current token, issuing a new one when none
// exists or the current one is older than CSRFTokenTTL.
func (s *AdminState) EnsureCSRFToken(now time.Time) (string, error) {
	if s.CSRFToken == "" || s.CSRFIssued.IsZero() || now.Sub(s.CSRFIssued) > CSRFTokenTTL {
		token, err := GenerateSecureToken(csrfTokenBytes)
		if err != nil {
			return "", err
		}
		s.CSRFToken = token
		s.CSRFIssued = now
	}
	return s.CSRFToken, nil
}

func (s *AdminState) ValidCSRFToken(token string, now time.Time) bool {
	if s.CSRFToken == "" || s.CSRFIssued.IsZero() {
		return false
	}
	if now.Sub(s.CSRFIssued) > CSRFTokenTTL {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.CSRFToken), []byte(token)) == 1
}

// AllowAction counts one attempt of action by client and reports whether it
// stays within max attempts per window.
func (s *AdminState) AllowAction(client, action string, max int, window time.Duration, now time.Time) bool {
	w := s.window(client, action)
	if w == nil {
		s.RateWindows = append(s.RateWindows, RateWindow{Client: client, Action: action, Start: now})
		w = &s.RateWindows[len(s.RateWindows)-1]
	}

	if now.Sub(w.Start) > window {
		w.Start = now
		w.Count = 1
		return true
	}
	if w.Count >= max {
		return false
	}
	w.Count++
	return true
}

func (s *AdminState) window(client, action string) *RateWindow {
	for i := range s.RateWindows {
		if s.RateWindows[i].Client == client && s.RateWindows[i].Action == action {
			return &s.RateWindows[i]
		}
	}
	return nil
}
