package settings

import (
	"errors"
	"time"

	"github.com/oakline/warden/pkg/permission"
)

// Category identifies one tenant settings document
type Category string

const (
	CategoryBooking       Category = "booking"
	CategoryOrg           Category = "org"
	CategoryFinancial     Category = "financial"
	CategoryIntegration   Category = "integration"
	CategoryClient        Category = "client"
	CategoryTeam          Category = "team"
	CategoryTask          Category = "task"
	CategoryReporting     Category = "analytics-reporting"
	CategoryCommunication Category = "communication"
	CategorySecurity      Category = "security-compliance"
	CategorySystemAdmin   Category = "system-admin"
)

// CategoryPolicy binds a settings category to its permission keys. A zero
// Export permission means the category cannot be exported. Sensitive
// categories put super admins through the step-up gate.
type CategoryPolicy struct {
	View      permission.Permission
	Edit      permission.Permission
	Export    permission.Permission
	Sensitive bool
}

// Categories is the closed set of settings categories and their access
// policies
var Categories = map[Category]CategoryPolicy{
	CategoryBooking: {
		View:   permission.BookingSettingsView,
		Edit:   permission.BookingSettingsEdit,
		Export: permission.BookingSettingsExport,
	},
	CategoryOrg: {
		View:   permission.OrgSettingsView,
		Edit:   permission.OrgSettingsEdit,
		Export: permission.OrgSettingsExport,
	},
	CategoryFinancial: {
		View:      permission.FinancialSettingsView,
		Edit:      permission.FinancialSettingsEdit,
		Export:    permission.FinancialSettingsExport,
		Sensitive: true,
	},
	CategoryIntegration: {
		View:      permission.IntegrationHubView,
		Edit:      permission.IntegrationHubEdit,
		Sensitive: true,
	},
	CategoryClient: {
		View:   permission.ClientSettingsView,
		Edit:   permission.ClientSettingsEdit,
		Export: permission.ClientSettingsExport,
	},
	CategoryTeam: {
		View:   permission.TeamSettingsView,
		Edit:   permission.TeamSettingsEdit,
		Export: permission.TeamSettingsExport,
	},
	CategoryTask: {
		View:   permission.TaskSettingsView,
		Edit:   permission.TaskSettingsEdit,
		Export: permission.TaskSettingsExport,
	},
	CategoryReporting: {
		View:   permission.ReportingSettingsView,
		Edit:   permission.ReportingSettingsEdit,
		Export: permission.ReportingSettingsExport,
	},
	CategoryCommunication: {
		View:   permission.CommunicationSettingsView,
		Edit:   permission.CommunicationSettingsEdit,
		Export: permission.CommunicationSettingsExport,
	},
	CategorySecurity: {
		View:      permission.SecuritySettingsView,
		Edit:      permission.SecuritySettingsEdit,
		Sensitive: true,
	},
	CategorySystemAdmin: {
		View:      permission.SystemAdminSettingsView,
		Edit:      permission.SystemAdminSettingsEdit,
		Sensitive: true,
	},
}

// LookupCategory returns the policy for a category slug
func LookupCategory(c Category) (CategoryPolicy, bool) {
	policy, ok := Categories[c]
	return policy, ok
}

// Settings is one tenant's document for a category
type Settings struct {
	TenantID  string                 `json:"tenant_id"`
	Category  Category               `json:"category"`
	Data      map[string]interface{} `json:"data"`
	UpdatedBy string                 `json:"updated_by,omitempty"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// ChangeDiff is one append-only row in setting_change_diffs
type ChangeDiff struct {
	ID        int64                  `json:"id"`
	TenantID  string                 `json:"tenant_id"`
	Category  Category               `json:"category"`
	Resource  string                 `json:"resource"`
	UserID    string                 `json:"user_id,omitempty"`
	Before    map[string]interface{} `json:"before,omitempty"`
	After     map[string]interface{} `json:"after"`
	CreatedAt time.Time              `json:"created_at"`
}

// Change describes a committed settings mutation for the recorder
type Change struct {
	TenantID string
	Category Category
	Resource string
	UserID   string
	Role     string
	Before   map[string]interface{}
	After    map[string]interface{}

	IPAddress string
	UserAgent string
	RequestID string
}

// ErrNotFound is returned when a tenant has no document for a category
var ErrNotFound = errors.New("settings not found")
