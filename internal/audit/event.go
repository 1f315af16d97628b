package audit

import "time"

// Topics the audit pipeline publishes on. The consumer process subscribes
// to the same names, so keep them in one place.
const (
	TopicRedirectChanged  = "redirect.changed"
	TopicRedirectResolved = "redirect.resolved"
)

// Change actions recorded for administrative operations.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// RedirectChangedEvent is emitted when an admin creates, updates or deletes
// a redirect.
type RedirectChangedEvent struct {
	Action      string    `json:"action"`
	Source      string    `json:"source"`
	Destination string    `json:"destination,omitempty"`
	IsPrivate   bool      `json:"isPrivate,omitempty"`
	User        string    `json:"user"`
	OccurredAt  time.Time `json:"occurredAt"`
	ClientIP    string    `json:"clientIp,omitempty"`
	UserAgent   string    `json:"userAgent,omitempty"`
}

// RedirectResolvedEvent is emitted fire-and-forget for every successful
// exact-match redirect. It feeds the access log, not the visit counter:
// the counter lives in the document store and is maintained by the batcher.
type RedirectResolvedEvent struct {
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	ResolvedAt  time.Time `json:"resolvedAt"`
	ClientIP    string    `json:"clientIp,omitempty"`
	UserAgent   string    `json:"userAgent,omitempty"`
	Referrer    string    `json:"referrer,omitempty"`
}
