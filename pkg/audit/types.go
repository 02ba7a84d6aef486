package audit

import (
	"time"
)

// EventType categorizes an audit event
type EventType string

const (
	// Authentication events
	EventTypeAuthLogin       EventType = "auth.login"
	EventTypeAuthLogout      EventType = "auth.logout"
	EventTypeAuthLoginFailed EventType = "auth.login_failed"

	// Authorization events
	EventTypeAuthzDenied EventType = "authz.denied"

	// Throttling events
	EventTypeRateLimitBlock EventType = "ratelimit.block"

	// Settings events
	EventTypeSettingsChanged  EventType = "settings.changed"
	EventTypeSettingsExported EventType = "settings.exported"

	// Step-up verification events
	EventTypeStepUpChallenge EventType = "stepup.challenge"
	EventTypeStepUpVerified  EventType = "stepup.verified"
	EventTypeStepUpFailed    EventType = "stepup.failed"
)

// EventStatus is the outcome recorded with an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// Event is a single audit log entry
type Event struct {
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	TenantID  string      `json:"tenant_id"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor
	UserID    string `json:"user_id,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
	Role      string `json:"role,omitempty"`

	// Target
	Resource string `json:"resource,omitempty"`

	// Request context
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// NewEvent creates an event stamped with the current UTC time
func NewEvent(tenantID string, eventType EventType, status EventStatus) *Event {
	return &Event{
		Timestamp: time.Now().UTC(),
		TenantID:  tenantID,
		EventType: eventType,
		Status:    status,
		Details:   make(map[string]interface{}),
	}
}

// SearchFilter narrows an audit log query
type SearchFilter struct {
	StartTime *time.Time
	EndTime   *time.Time

	TenantID   string
	UserID     string
	EventTypes []EventType
	Status     *EventStatus
	Resource   string
	IPAddress  string

	Limit  int
	Offset int
}

// ExportFormat selects the audit export encoding
type ExportFormat string

const (
	ExportFormatJSON   ExportFormat = "json"
	ExportFormatCSV    ExportFormat = "csv"
	ExportFormatNDJSON ExportFormat = "ndjson"
)

// ValidExportFormat reports whether the format is supported
func ValidExportFormat(f ExportFormat) bool {
	switch f {
	case ExportFormatJSON, ExportFormatCSV, ExportFormatNDJSON:
		return true
	}
	return false
}
