package permission

import "sort"

// Registry holds metadata for every permission. Every key used by a
// handler must exist here; Validate and the advisory engine walk it.
var Registry = map[Permission]Metadata{
	ServiceRequestsCreate: {
		Key: ServiceRequestsCreate, Label: "Create Service Requests",
		Category: CategoryContent, Risk: RiskLow,
	},
	ServiceRequestsReadAll: {
		Key: ServiceRequestsReadAll, Label: "View All Service Requests",
		Category: CategoryContent, Risk: RiskLow,
	},
	ServiceRequestsReadOwn: {
		Key: ServiceRequestsReadOwn, Label: "View Own Service Requests",
		Category: CategoryContent, Risk: RiskLow,
	},
	ServiceRequestsUpdate: {
		Key: ServiceRequestsUpdate, Label: "Update Service Requests",
		Category: CategoryContent, Risk: RiskMedium,
		Dependencies: []Permission{ServiceRequestsReadAll},
	},
	ServiceRequestsDelete: {
		Key: ServiceRequestsDelete, Label: "Delete Service Requests",
		Category: CategoryContent, Risk: RiskHigh,
		Dependencies: []Permission{ServiceRequestsReadAll},
	},
	ServiceRequestsAssign: {
		Key: ServiceRequestsAssign, Label: "Assign Service Requests",
		Category: CategoryContent, Risk: RiskMedium,
		Dependencies: []Permission{ServiceRequestsReadAll, TeamView},
	},

	TasksCreate: {
		Key: TasksCreate, Label: "Create Tasks",
		Category: CategoryContent, Risk: RiskLow,
	},
	TasksReadAll: {
		Key: TasksReadAll, Label: "View All Tasks",
		Category: CategoryContent, Risk: RiskLow,
	},
	TasksReadAssigned: {
		Key: TasksReadAssigned, Label: "View Assigned Tasks",
		Category: CategoryContent, Risk: RiskLow,
	},
	TasksUpdate: {
		Key: TasksUpdate, Label: "Update Tasks",
		Category: CategoryContent, Risk: RiskMedium,
		Dependencies: []Permission{TasksCreate},
	},
	TasksDelete: {
		Key: TasksDelete, Label: "Delete Tasks",
		Category: CategoryContent, Risk: RiskHigh,
		Dependencies: []Permission{TasksReadAll},
	},
	TasksAssign: {
		Key: TasksAssign, Label: "Assign Tasks",
		Category: CategoryContent, Risk: RiskMedium,
		Dependencies: []Permission{TasksReadAll, TeamView},
	},

	TeamManage: {
		Key: TeamManage, Label: "Manage Team Members",
		Category: CategoryTeam, Risk: RiskHigh,
		Dependencies: []Permission{TeamView},
	},
	TeamView: {
		Key: TeamView, Label: "View Team Members",
		Category: CategoryTeam, Risk: RiskLow,
	},

	UsersManage: {
		Key: UsersManage, Label: "Manage Users",
		Category: CategoryUsers, Risk: RiskCritical,
		Dependencies: []Permission{UsersView},
	},
	UsersView: {
		Key: UsersView, Label: "View Users",
		Category: CategoryUsers, Risk: RiskLow,
	},
	UsersExport: {
		Key: UsersExport, Label: "Export Users",
		Category: CategoryContent, Risk: RiskLow,
	},

	AnalyticsView: {
		Key: AnalyticsView, Label: "View Analytics",
		Category: CategoryAnalytics, Risk: RiskLow,
	},
	AnalyticsExport: {
		Key: AnalyticsExport, Label: "Export Analytics",
		Category: CategoryAnalytics, Risk: RiskMedium,
		Dependencies: []Permission{AnalyticsView},
	},

	ServicesView: {
		Key: ServicesView, Label: "View Services",
		Category: CategoryContent, Risk: RiskLow,
	},
	ServicesCreate: {
		Key: ServicesCreate, Label: "Create Services",
		Category: CategoryContent, Risk: RiskMedium,
		Dependencies: []Permission{ServicesView},
	},
	ServicesEdit: {
		Key: ServicesEdit, Label: "Edit Services",
		Category: CategoryContent, Risk: RiskMedium,
		Dependencies: []Permission{ServicesView},
	},
	ServicesDelete: {
		Key: ServicesDelete, Label: "Delete Services",
		Category: CategoryContent, Risk: RiskHigh,
		Dependencies: []Permission{ServicesView},
	},
	ServicesBulkEdit: {
		Key: ServicesBulkEdit, Label: "Bulk Edit Services",
		Category: CategoryContent, Risk: RiskHigh,
		Dependencies: []Permission{ServicesEdit},
	},
	ServicesExport: {
		Key: ServicesExport, Label: "Export Services",
		Category: CategoryContent, Risk: RiskLow,
		Dependencies: []Permission{ServicesView},
	},
	ServicesAnalytics: {
		Key: ServicesAnalytics, Label: "View Service Analytics",
		Category: CategoryAnalytics, Risk: RiskLow,
		Dependencies: []Permission{ServicesView, AnalyticsView},
	},
	ServicesManageFeatured: {
		Key: ServicesManageFeatured, Label: "Manage Featured Services",
		Category: CategoryContent, Risk: RiskMedium,
		Dependencies: []Permission{ServicesView, ServicesEdit},
	},

	BookingSettingsView: {
		Key: BookingSettingsView, Label: "View Booking Settings",
		Category: CategoryBookings, Risk: RiskLow,
	},
	BookingSettingsEdit: {
		Key: BookingSettingsEdit, Label: "Edit Booking Settings",
		Category: CategoryBookings, Risk: RiskMedium,
		Dependencies: []Permission{BookingSettingsView},
	},
	BookingSettingsExport: {
		Key: BookingSettingsExport, Label: "Export Booking Settings",
		Category: CategoryBookings, Risk: RiskLow,
		Dependencies: []Permission{BookingSettingsView},
	},
	BookingSettingsImport: {
		Key: BookingSettingsImport, Label: "Import Booking Settings",
		Category: CategoryBookings, Risk: RiskHigh,
		Dependencies: []Permission{BookingSettingsEdit},
	},
	BookingSettingsReset: {
		Key: BookingSettingsReset, Label: "Reset Booking Settings",
		Category: CategoryBookings, Risk: RiskCritical,
		Dependencies: []Permission{BookingSettingsEdit},
	},

	OrgSettingsView: {
		Key: OrgSettingsView, Label: "View Organization Settings",
		Category: CategorySystem, Risk: RiskLow,
	},
	OrgSettingsEdit: {
		Key: OrgSettingsEdit, Label: "Edit Organization Settings",
		Category: CategorySystem, Risk: RiskHigh,
		Dependencies: []Permission{OrgSettingsView},
	},
	OrgSettingsExport: {
		Key: OrgSettingsExport, Label: "Export Organization Settings",
		Category: CategorySystem, Risk: RiskLow,
		Dependencies: []Permission{OrgSettingsView},
	},
	OrgSettingsImport: {
		Key: OrgSettingsImport, Label: "Import Organization Settings",
		Category: CategorySystem, Risk: RiskHigh,
		Dependencies: []Permission{OrgSettingsEdit},
	},
	OrgSettingsReset: {
		Key: OrgSettingsReset, Label: "Reset Organization Settings",
		Category: CategorySystem, Risk: RiskCritical,
		Dependencies: []Permission{OrgSettingsEdit},
	},

	FinancialSettingsView: {
		Key: FinancialSettingsView, Label: "View Financial Settings",
		Category: CategoryFinancial, Risk: RiskMedium,
	},
	FinancialSettingsEdit: {
		Key: FinancialSettingsEdit, Label: "Edit Financial Settings",
		Category: CategoryFinancial, Risk: RiskCritical,
		Dependencies: []Permission{FinancialSettingsView},
	},
	FinancialSettingsExport: {
		Key: FinancialSettingsExport, Label: "Export Financial Settings",
		Category: CategoryFinancial, Risk: RiskMedium,
		Dependencies: []Permission{FinancialSettingsView},
	},

	IntegrationHubView: {
		Key: IntegrationHubView, Label: "View Integrations",
		Category: CategorySystem, Risk: RiskLow,
	},
	IntegrationHubEdit: {
		Key: IntegrationHubEdit, Label: "Edit Integrations",
		Category: CategorySystem, Risk: RiskHigh,
		Dependencies: []Permission{IntegrationHubView},
	},
	IntegrationHubTest: {
		Key: IntegrationHubTest, Label: "Test Integrations",
		Category: CategorySystem, Risk: RiskLow,
		Dependencies: []Permission{IntegrationHubView},
	},
	IntegrationHubSecretsWrite: {
		Key: IntegrationHubSecretsWrite, Label: "Write Integration Secrets",
		Category: CategorySecurity, Risk: RiskCritical,
		Dependencies: []Permission{IntegrationHubEdit},
	},
	IntegrationsManage: {
		Key: IntegrationsManage, Label: "Manage Integrations",
		Category: CategorySystem, Risk: RiskHigh,
		Dependencies: []Permission{IntegrationHubView},
	},

	ClientSettingsView: {
		Key: ClientSettingsView, Label: "View Client Settings",
		Category: CategorySystem, Risk: RiskLow,
	},
	ClientSettingsEdit: {
		Key: ClientSettingsEdit, Label: "Edit Client Settings",
		Category: CategorySystem, Risk: RiskMedium,
		Dependencies: []Permission{ClientSettingsView},
	},
	ClientSettingsExport: {
		Key: ClientSettingsExport, Label: "Export Client Settings",
		Category: CategorySystem, Risk: RiskLow,
		Dependencies: []Permission{ClientSettingsView},
	},
	ClientSettingsImport: {
		Key: ClientSettingsImport, Label: "Import Client Settings",
		Category: CategorySystem, Risk: RiskMedium,
		Dependencies: []Permission{ClientSettingsEdit},
	},

	TeamSettingsView: {
		Key: TeamSettingsView, Label: "View Team Settings",
		Category: CategorySystem, Risk: RiskLow,
	},
	TeamSettingsEdit: {
		Key: TeamSettingsEdit, Label: "Edit Team Settings",
		Category: CategorySystem, Risk: RiskMedium,
		Dependencies: []Permission{TeamSettingsView},
	},
	TeamSettingsExport: {
		Key: TeamSettingsExport, Label: "Export Team Settings",
		Category: CategorySystem, Risk: RiskLow,
		Dependencies: []Permission{TeamSettingsView},
	},
	TeamSettingsImport: {
		Key: TeamSettingsImport, Label: "Import Team Settings",
		Category: CategorySystem, Risk: RiskMedium,
		Dependencies: []Permission{TeamSettingsEdit},
	},

	TaskSettingsView: {
		Key: TaskSettingsView, Label: "View Task Settings",
		Category: CategorySystem, Risk: RiskLow,
	},
	TaskSettingsEdit: {
		Key: TaskSettingsEdit, Label: "Edit Task Settings",
		Category: CategorySystem, Risk: RiskMedium,
		Dependencies: []Permission{TaskSettingsView},
	},
	TaskSettingsExport: {
		Key: TaskSettingsExport, Label: "Export Task Settings",
		Category: CategorySystem, Risk: RiskLow,
		Dependencies: []Permission{TaskSettingsView},
	},
	TaskSettingsImport: {
		Key: TaskSettingsImport, Label: "Import Task Settings",
		Category: CategorySystem, Risk: RiskMedium,
		Dependencies: []Permission{TaskSettingsEdit},
	},

	ReportingSettingsView: {
		Key: ReportingSettingsView, Label: "View Reporting Settings",
		Category: CategorySystem, Risk: RiskLow,
	},
	ReportingSettingsEdit: {
		Key: ReportingSettingsEdit, Label: "Edit Reporting Settings",
		Category: CategorySystem, Risk: RiskMedium,
		Dependencies: []Permission{ReportingSettingsView},
	},
	ReportingSettingsExport: {
		Key: ReportingSettingsExport, Label: "Export Reporting Settings",
		Category: CategorySystem, Risk: RiskLow,
		Dependencies: []Permission{ReportingSettingsView},
	},
	ReportingSettingsImport: {
		Key: ReportingSettingsImport, Label: "Import Reporting Settings",
		Category: CategorySystem, Risk: RiskMedium,
		Dependencies: []Permission{ReportingSettingsEdit},
	},

	CommunicationSettingsView: {
		Key: CommunicationSettingsView, Label: "View Communication Settings",
		Category: CategorySystem, Risk: RiskLow,
	},
	CommunicationSettingsEdit: {
		Key: CommunicationSettingsEdit, Label: "Edit Communication Settings",
		Category: CategorySystem, Risk: RiskMedium,
		Dependencies: []Permission{CommunicationSettingsView},
	},
	CommunicationSettingsExport: {
		Key: CommunicationSettingsExport, Label: "Export Communication Settings",
		Category: CategorySystem, Risk: RiskLow,
		Dependencies: []Permission{CommunicationSettingsView},
	},
	CommunicationSettingsImport: {
		Key: CommunicationSettingsImport, Label: "Import Communication Settings",
		Category: CategorySystem, Risk: RiskMedium,
		Dependencies: []Permission{CommunicationSettingsEdit},
	},

	SecuritySettingsView: {
		Key: SecuritySettingsView, Label: "View Security Settings",
		Category: CategorySecurity, Risk: RiskLow,
	},
	SecuritySettingsEdit: {
		Key: SecuritySettingsEdit, Label: "Edit Security Settings",
		Category: CategorySecurity, Risk: RiskCritical,
		Dependencies: []Permission{SecuritySettingsView},
	},

	SystemAdminSettingsView: {
		Key: SystemAdminSettingsView, Label: "View System Settings",
		Category: CategorySystem, Risk: RiskLow,
	},
	SystemAdminSettingsEdit: {
		Key: SystemAdminSettingsEdit, Label: "Edit System Settings",
		Category: CategorySystem, Risk: RiskCritical,
		Dependencies: []Permission{SystemAdminSettingsView},
	},

	LanguagesView: {
		Key: LanguagesView, Label: "View Languages",
		Category: CategorySystem, Risk: RiskLow,
	},
	LanguagesManage: {
		Key: LanguagesManage, Label: "Manage Languages",
		Category: CategorySystem, Risk: RiskMedium,
		Dependencies: []Permission{LanguagesView},
	},

	ReportsCreate: {
		Key: ReportsCreate, Label: "Create Reports",
		Category: CategoryAnalytics, Risk: RiskLow,
	},
	ReportsRead: {
		Key: ReportsRead, Label: "View Reports",
		Category: CategoryAnalytics, Risk: RiskLow,
	},
	ReportsWrite: {
		Key: ReportsWrite, Label: "Edit Reports",
		Category: CategoryAnalytics, Risk: RiskMedium,
		Dependencies: []Permission{ReportsRead},
	},
	ReportsDelete: {
		Key: ReportsDelete, Label: "Delete Reports",
		Category: CategoryAnalytics, Risk: RiskHigh,
		Dependencies: []Permission{ReportsRead},
	},
	ReportsGenerate: {
		Key: ReportsGenerate, Label: "Generate Reports",
		Category: CategoryAnalytics, Risk: RiskLow,
		Dependencies: []Permission{ReportsRead},
	},

	EntitiesCreate: {
		Key: EntitiesCreate, Label: "Create Entities",
		Category: CategoryContent, Risk: RiskMedium,
	},
	EntitiesRead: {
		Key: EntitiesRead, Label: "View Entities",
		Category: CategoryContent, Risk: RiskLow,
	},
	EntitiesUpdate: {
		Key: EntitiesUpdate, Label: "Update Entities",
		Category: CategoryContent, Risk: RiskMedium,
		Dependencies: []Permission{EntitiesRead},
	},
	EntitiesDelete: {
		Key: EntitiesDelete, Label: "Delete Entities",
		Category: CategoryContent, Risk: RiskHigh,
		Dependencies: []Permission{EntitiesRead},
	},
}

// All returns every registered permission key in lexical order
func All() []Permission {
	perms := make([]Permission, 0, len(Registry))
	for p := range Registry {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// Lookup returns metadata for a permission key
func Lookup(p Permission) (Metadata, bool) {
	meta, ok := Registry[p]
	return meta, ok
}
