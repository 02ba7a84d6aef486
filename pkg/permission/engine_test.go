package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakline/warden/pkg/tenant"
)

func TestEngine_CalculateDiff(t *testing.T) {
	e := NewEngine()

	t.Run("mixed changes", func(t *testing.T) {
		current := []Permission{UsersView, TeamView, AnalyticsView}
		target := []Permission{UsersView, UsersManage, TeamView}

		d := e.CalculateDiff(current, target)
		assert.Equal(t, []Permission{UsersManage}, d.Added)
		assert.Equal(t, []Permission{AnalyticsView}, d.Removed)
		assert.ElementsMatch(t, []Permission{UsersView, TeamView}, d.Unchanged)
		assert.Equal(t, 3, d.Total)
	})

	t.Run("identical sets", func(t *testing.T) {
		perms := []Permission{UsersView}
		d := e.CalculateDiff(perms, perms)
		assert.Empty(t, d.Added)
		assert.Empty(t, d.Removed)
		assert.Len(t, d.Unchanged, 1)
	})

	t.Run("empty current", func(t *testing.T) {
		d := e.CalculateDiff(nil, []Permission{UsersView, TeamView})
		assert.Len(t, d.Added, 2)
		assert.Empty(t, d.Removed)
	})
}

func TestEngine_Validate(t *testing.T) {
	e := NewEngine()

	t.Run("empty set is valid and low risk", func(t *testing.T) {
		result := e.Validate(nil)
		assert.True(t, result.Valid)
		assert.Equal(t, RiskLow, result.Risk)
	})

	t.Run("missing dependency is an error", func(t *testing.T) {
		// users.manage requires users.view
		result := e.Validate([]Permission{UsersManage})
		require.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, UsersManage, result.Errors[0].Permission)
		assert.Equal(t, IssueMissingDependency, result.Errors[0].Type)
		assert.Contains(t, result.Errors[0].Message, "Requires: ")
	})

	t.Run("dependency present is valid", func(t *testing.T) {
		result := e.Validate([]Permission{UsersView, UsersManage})
		assert.True(t, result.Valid)
	})

	t.Run("risk is the max over the set", func(t *testing.T) {
		result := e.Validate([]Permission{UsersView, FinancialSettingsView, FinancialSettingsEdit})
		assert.True(t, result.Valid)
		assert.Equal(t, RiskCritical, result.Risk)
	})

	t.Run("multiple criticals warn", func(t *testing.T) {
		result := e.Validate([]Permission{
			FinancialSettingsView, FinancialSettingsEdit,
			SecuritySettingsView, SecuritySettingsEdit,
		})
		assert.True(t, result.Valid)

		var found bool
		for _, w := range result.Warnings {
			if w.Type == IssueUnusualCombination {
				found = true
			}
		}
		assert.True(t, found, "expected an unusual-combination warning")
	})

	t.Run("unknown keys are skipped", func(t *testing.T) {
		result := e.Validate([]Permission{Permission("made.up"), UsersView})
		assert.True(t, result.Valid)
		assert.Equal(t, RiskLow, result.Risk)
	})
}

func TestEngine_Suggestions(t *testing.T) {
	e := NewEngine()

	t.Run("deterministic across runs", func(t *testing.T) {
		current := ForRole(tenant.RoleTeamMember)
		first := e.Suggestions(tenant.RoleTeamLead, current, "")
		for i := 0; i < 20; i++ {
			assert.Equal(t, first, e.Suggestions(tenant.RoleTeamLead, current, ""))
		}
	})

	t.Run("role pattern outranks dependency match", func(t *testing.T) {
		suggestions := e.Suggestions(tenant.RoleTeamLead, ForRole(tenant.RoleTeamMember), "")
		require.NotEmpty(t, suggestions)
		for i := 1; i < len(suggestions); i++ {
			prev, cur := suggestions[i-1], suggestions[i]
			if prev.Confidence == cur.Confidence {
				assert.Less(t, string(prev.Permission), string(cur.Permission))
			} else {
				assert.Greater(t, prev.Confidence, cur.Confidence)
			}
		}
	})

	t.Run("capped at ten", func(t *testing.T) {
		suggestions := e.Suggestions(tenant.RoleAdmin, nil, "")
		assert.LessOrEqual(t, len(suggestions), 10)
	})

	t.Run("never suggests held permissions", func(t *testing.T) {
		current := ForRole(tenant.RoleTeamLead)
		held := toSet(current)
		for _, s := range e.Suggestions(tenant.RoleTeamLead, current, "") {
			assert.False(t, held[s.Permission], "suggested already-held %s", s.Permission)
		}
	})

	t.Run("unknown role only yields dependency suggestions", func(t *testing.T) {
		for _, s := range e.Suggestions(tenant.Role("GHOST"), []Permission{UsersView}, "") {
			assert.Equal(t, confidenceDepsPresent, s.Confidence)
		}
	})

	t.Run("department does not change the result", func(t *testing.T) {
		current := ForRole(tenant.RoleTeamMember)
		base := e.Suggestions(tenant.RoleTeamLead, current, "")
		assert.Equal(t, base, e.Suggestions(tenant.RoleTeamLead, current, "engineering"))
	})
}

func TestEngine_CanGrant(t *testing.T) {
	e := NewEngine()

	assert.True(t, e.CanGrant(UsersView, nil))
	assert.False(t, e.CanGrant(UsersManage, nil))
	assert.True(t, e.CanGrant(UsersManage, []Permission{UsersView}))
	assert.False(t, e.CanGrant(Permission("made.up"), nil))
}

func TestEngine_RiskLevel(t *testing.T) {
	e := NewEngine()

	assert.Equal(t, RiskLow, e.RiskLevel(nil))
	assert.Equal(t, RiskLow, e.RiskLevel([]Permission{ServiceRequestsReadOwn}))
	assert.Equal(t, RiskCritical, e.RiskLevel([]Permission{ServiceRequestsReadOwn, FinancialSettingsEdit}))
	assert.Equal(t, RiskLow, e.RiskLevel([]Permission{Permission("made.up")}))
}

func TestEngine_ByCategory(t *testing.T) {
	e := NewEngine()

	financial := e.ByCategory(CategoryFinancial)
	assert.Contains(t, financial, FinancialSettingsView)
	assert.Contains(t, financial, FinancialSettingsEdit)
	for i := 1; i < len(financial); i++ {
		assert.Less(t, string(financial[i-1]), string(financial[i]))
	}
}

func TestEngine_Search(t *testing.T) {
	e := NewEngine()

	assert.Contains(t, e.Search("financial"), FinancialSettingsView)
	assert.Contains(t, e.Search("FINANCIAL"), FinancialSettingsView)
	assert.Empty(t, e.Search("zzz-no-such-permission"))
}
