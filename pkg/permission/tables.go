package permission

import "github.com/oakline/warden/pkg/tenant"

// RolePermissions materializes the permission list for every role that has
// any. Roles absent from this table (STAFF, CLIENT portal owners, anything
// unknown) have zero permissions.
//
// ADMIN and SUPER_ADMIN both hold the full set. SUPER_ADMIN is listed
// separately on purpose: inheritance is materialized here, never computed
// at check time.
var RolePermissions = map[tenant.Role][]Permission{
	tenant.RoleClient: {
		ServiceRequestsCreate,
		ServiceRequestsReadOwn,
		TasksReadAssigned,
	},
	tenant.RoleTeamMember: {
		ServiceRequestsReadAll,
		ServiceRequestsUpdate,
		TasksCreate,
		TasksReadAssigned,
		TasksUpdate,
		TeamView,
		AnalyticsView,
		ServicesView,
		ServicesAnalytics,
		ServicesExport,
		BookingSettingsView,
		OrgSettingsView,
	},
	tenant.RoleTeamLead: {
		ServiceRequestsReadAll,
		ServiceRequestsUpdate,
		ServiceRequestsAssign,
		TasksCreate,
		TasksReadAll,
		TasksUpdate,
		TasksAssign,
		TeamView,
		TeamManage,
		AnalyticsView,
		AnalyticsExport,
		ServicesView,
		ServicesAnalytics,
		ServicesExport,
		BookingSettingsView,
		BookingSettingsEdit,
		BookingSettingsExport,
		OrgSettingsView,
		OrgSettingsEdit,
		OrgSettingsExport,
		FinancialSettingsView,
		IntegrationHubView,
		IntegrationHubTest,
	},
	tenant.RoleAdmin:      All(),
	tenant.RoleSuperAdmin: All(),
}

// HasPermission reports whether the role grants the permission. Roles not
// present in the table and unknown permission keys always return false.
func HasPermission(role tenant.Role, perm Permission) bool {
	if role == "" {
		return false
	}
	allowed, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range allowed {
		if p == perm {
			return true
		}
	}
	return false
}

// CheckAll reports whether the role grants every listed permission
func CheckAll(role tenant.Role, required []Permission) bool {
	for _, p := range required {
		if !HasPermission(role, p) {
			return false
		}
	}
	return true
}

// HasRole performs an exact, case-sensitive membership test. Empty roles
// and empty allow-lists always fail.
func HasRole(role tenant.Role, allowed []tenant.Role) bool {
	if role == "" || len(allowed) == 0 {
		return false
	}
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// ForRole returns the materialized permission list for a role; roles
// outside the table get an empty list
func ForRole(role tenant.Role) []Permission {
	allowed, ok := RolePermissions[role]
	if !ok {
		return nil
	}
	out := make([]Permission, len(allowed))
	copy(out, allowed)
	return out
}
