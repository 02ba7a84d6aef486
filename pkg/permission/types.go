package permission

// Permission is a capability key. The set below is closed; handlers must
// only reference keys defined here, and unknown keys are always denied.
type Permission string

const (
	ServiceRequestsCreate  Permission = "service_requests.create"
	ServiceRequestsReadAll Permission = "service_requests.read.all"
	ServiceRequestsReadOwn Permission = "service_requests.read.own"
	ServiceRequestsUpdate  Permission = "service_requests.update"
	ServiceRequestsDelete  Permission = "service_requests.delete"
	ServiceRequestsAssign  Permission = "service_requests.assign"

	TasksCreate       Permission = "tasks.create"
	TasksReadAll      Permission = "tasks.read.all"
	TasksReadAssigned Permission = "tasks.read.assigned"
	TasksUpdate       Permission = "tasks.update"
	TasksDelete       Permission = "tasks.delete"
	TasksAssign       Permission = "tasks.assign"

	TeamManage Permission = "team.manage"
	TeamView   Permission = "team.view"

	UsersManage Permission = "users.manage"
	UsersView   Permission = "users.view"
	UsersExport Permission = "users.export"

	AnalyticsView   Permission = "analytics.view"
	AnalyticsExport Permission = "analytics.export"

	ServicesView           Permission = "services.view"
	ServicesCreate         Permission = "services.create"
	ServicesEdit           Permission = "services.edit"
	ServicesDelete         Permission = "services.delete"
	ServicesBulkEdit       Permission = "services.bulk.edit"
	ServicesExport         Permission = "services.export"
	ServicesAnalytics      Permission = "services.analytics"
	ServicesManageFeatured Permission = "services.manage.featured"

	BookingSettingsView   Permission = "booking.settings.view"
	BookingSettingsEdit   Permission = "booking.settings.edit"
	BookingSettingsExport Permission = "booking.settings.export"
	BookingSettingsImport Permission = "booking.settings.import"
	BookingSettingsReset  Permission = "booking.settings.reset"

	OrgSettingsView   Permission = "org.settings.view"
	OrgSettingsEdit   Permission = "org.settings.edit"
	OrgSettingsExport Permission = "org.settings.export"
	OrgSettingsImport Permission = "org.settings.import"
	OrgSettingsReset  Permission = "org.settings.reset"

	FinancialSettingsView   Permission = "financial.settings.view"
	FinancialSettingsEdit   Permission = "financial.settings.edit"
	FinancialSettingsExport Permission = "financial.settings.export"

	IntegrationHubView         Permission = "integration.settings.view"
	IntegrationHubEdit         Permission = "integration.settings.edit"
	IntegrationHubTest         Permission = "integration.settings.test"
	IntegrationHubSecretsWrite Permission = "integration.settings.secrets.write"
	IntegrationsManage         Permission = "integrations.manage"

	ClientSettingsView   Permission = "client.settings.view"
	ClientSettingsEdit   Permission = "client.settings.edit"
	ClientSettingsExport Permission = "client.settings.export"
	ClientSettingsImport Permission = "client.settings.import"

	TeamSettingsView   Permission = "team.settings.view"
	TeamSettingsEdit   Permission = "team.settings.edit"
	TeamSettingsExport Permission = "team.settings.export"
	TeamSettingsImport Permission = "team.settings.import"

	TaskSettingsView   Permission = "task.settings.view"
	TaskSettingsEdit   Permission = "task.settings.edit"
	TaskSettingsExport Permission = "task.settings.export"
	TaskSettingsImport Permission = "task.settings.import"

	ReportingSettingsView   Permission = "analytics-reporting.settings.view"
	ReportingSettingsEdit   Permission = "analytics-reporting.settings.edit"
	ReportingSettingsExport Permission = "analytics-reporting.settings.export"
	ReportingSettingsImport Permission = "analytics-reporting.settings.import"

	CommunicationSettingsView   Permission = "communication.settings.view"
	CommunicationSettingsEdit   Permission = "communication.settings.edit"
	CommunicationSettingsExport Permission = "communication.settings.export"
	CommunicationSettingsImport Permission = "communication.settings.import"

	SecuritySettingsView Permission = "security-compliance.settings.view"
	SecuritySettingsEdit Permission = "security-compliance.settings.edit"

	SystemAdminSettingsView Permission = "system-admin.settings.view"
	SystemAdminSettingsEdit Permission = "system-admin.settings.edit"

	LanguagesView   Permission = "languages.view"
	LanguagesManage Permission = "languages.manage"

	ReportsCreate   Permission = "reports.create"
	ReportsRead     Permission = "reports.read"
	ReportsWrite    Permission = "reports.write"
	ReportsDelete   Permission = "reports.delete"
	ReportsGenerate Permission = "reports.generate"

	EntitiesCreate Permission = "entities.create"
	EntitiesRead   Permission = "entities.read"
	EntitiesUpdate Permission = "entities.update"
	EntitiesDelete Permission = "entities.delete"
)

// Category groups permissions for filtering in the admin UI
type Category string

const (
	CategoryContent   Category = "Content Management"
	CategoryAnalytics Category = "Analytics & Reports"
	CategoryUsers     Category = "User Management"
	CategorySystem    Category = "System Settings"
	CategoryBookings  Category = "Booking Management"
	CategoryFinancial Category = "Financial Operations"
	CategoryTeam      Category = "Team Collaboration"
	CategorySecurity  Category = "Security & Access"
)

// Risk classifies how dangerous a permission grant is
type Risk string

const (
	RiskLow      Risk = "low"
	RiskMedium   Risk = "medium"
	RiskHigh     Risk = "high"
	RiskCritical Risk = "critical"
)

// riskRank orders risk levels for max calculations
func riskRank(r Risk) int {
	switch r {
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	default:
		return 0
	}
}

// Metadata describes a permission for the admin UI and the advisory engine
type Metadata struct {
	Key          Permission   `json:"key"`
	Label        string       `json:"label"`
	Category     Category     `json:"category"`
	Risk         Risk         `json:"risk"`
	Dependencies []Permission `json:"dependencies,omitempty"`
	Conflicts    []Permission `json:"conflicts,omitempty"`
}
