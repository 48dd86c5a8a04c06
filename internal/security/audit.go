package security

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/mileusna/useragent"
)

type auditEntry struct {
	Timestamp string                 `json:"timestamp"`
	Event     string                 `json:"event,omitempty"`
	Action    string                 `json:"action,omitempty"`
	IP        string                 `json:"ip"`
	UserAgent string                 `json:"user_agent,omitempty"`
	Client    string                 `json:"client,omitempty"`
	UserID    *int64                 `json:"user_id"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// LogSecurityEvent writes a SECURITY audit line for r.
func LogSecurityEvent(r *http.Request, rc *RequestContext, event string, details map[string]interface{}) {
	entry := newAuditEntry(r, rc, details)
	entry.Event = event
	entry.UserAgent = r.UserAgent()
	entry.Client = DescribeAgent(r.UserAgent())
	writeAudit("SECURITY", entry)
}

// LogAdminAction writes an ADMIN audit line for r.
func LogAdminAction(r *http.Request, rc *RequestContext, action string, details map[string]interface{}) {
	entry := newAuditEntry(r, rc, details)
	entry.Action = action
	writeAudit("ADMIN", entry)
}

func newAuditEntry(r *http.Request, rc *RequestContext, details map[string]interface{}) auditEntry {
	entry := auditEntry{
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
		IP:        ClientIP(r),
		Details:   details,
	}
	if rc != nil && rc.AdminState != nil && rc.AdminID != 0 {
		id := rc.AdminID
		entry.UserID = &id
	}
	return entry
}

func writeAudit(prefix string, entry auditEntry) {
	b, err := json.Marshal(entry)
	if err != nil {
		log.Printf("%s: %s (unencodable details: %v)", prefix, entry.Event+entry.Action, err)
		return
	}
	log.Printf("%s: %s", prefix, b)
}

// DescribeAgent summarizes a User-Agent header as "Browser on OS (device)".
func DescribeAgent(ua string) string {
	if ua == "" {
		return "unknown"
	}
	parsed := useragent.Parse(ua)

	name := parsed.Name
	if name == "" {
		name = "Unknown browser"
	}
	os := parsed.OS
	if os == "" {
		os = "unknown OS"
	}

	device := "desktop"
	switch {
	case parsed.Bot:
		device = "bot"
	case parsed.Tablet:
		device = "tablet"
	case parsed.Mobile:
		device = "mobile"
	}
	return name + " on " + os + " (" + device + ")"
}
