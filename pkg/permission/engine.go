package permission

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oakline/warden/pkg/tenant"
)

// Diff is the difference between two permission sets
type Diff struct {
	Added     []Permission `json:"added"`
	Removed   []Permission `json:"removed"`
	Unchanged []Permission `json:"unchanged"`
	Total     int          `json:"total"`
}

// ValidationIssue flags a problem or concern with a permission set
type ValidationIssue struct {
	Permission Permission `json:"permission"`
	Type       string     `json:"type"`
	Message    string     `json:"message"`
}

// Issue types produced by Validate
const (
	IssueMissingDependency  = "missing-dependency"
	IssueConflict           = "conflict"
	IssueUnusualCombination = "unusual-combination"
)

// ValidationResult is the outcome of validating a permission set
type ValidationResult struct {
	Valid    bool              `json:"isValid"`
	Errors   []ValidationIssue `json:"errors"`
	Warnings []ValidationIssue `json:"warnings"`
	Risk     Risk              `json:"riskLevel"`
}

// Suggestion is an advisory hint for the permission editor. It never
// grants access by itself.
type Suggestion struct {
	Permission Permission `json:"permission"`
	Reason     string     `json:"reason"`
	Confidence float64    `json:"confidence"`
	Action     string     `json:"action"`
}

// Suggestion confidence tiers. Role-pattern suggestions outrank
// dependency-satisfied ones.
const (
	confidenceRolePattern  = 0.85
	confidenceDepsPresent  = 0.70
	maxSuggestions         = 10
	suggestionActionAdd    = "add"
	suggestionActionRemove = "remove"
)

// Engine provides permission-set analysis for the admin editor
type Engine struct{}

// NewEngine creates a permission engine
func NewEngine() *Engine {
	return &Engine{}
}

// CalculateDiff computes the difference between current and target sets
func (e *Engine) CalculateDiff(current, target []Permission) Diff {
	currentSet := toSet(current)
	targetSet := toSet(target)

	d := Diff{Total: len(target)}
	for _, p := range target {
		if !currentSet[p] {
			d.Added = append(d.Added, p)
		}
	}
	for _, p := range current {
		if targetSet[p] {
			d.Unchanged = append(d.Unchanged, p)
		} else {
			d.Removed = append(d.Removed, p)
		}
	}
	return d
}

// Validate checks a permission set for missing dependencies, conflicts,
// and risky combinations. Unknown keys are skipped, not errors.
func (e *Engine) Validate(perms []Permission) ValidationResult {
	result := ValidationResult{Risk: RiskLow}
	set := toSet(perms)

	var criticalCount int
	var firstCritical Permission

	for _, p := range perms {
		meta, ok := Registry[p]
		if !ok {
			continue
		}

		if riskRank(meta.Risk) > riskRank(result.Risk) {
			result.Risk = meta.Risk
		}
		if meta.Risk == RiskCritical {
			if criticalCount == 0 {
				firstCritical = p
			}
			criticalCount++
		}

		if missing := missingFrom(meta.Dependencies, set); len(missing) > 0 {
			result.Errors = append(result.Errors, ValidationIssue{
				Permission: p,
				Type:       IssueMissingDependency,
				Message:    "Requires: " + joinLabels(missing),
			})
		}

		if present := presentIn(meta.Conflicts, set); len(present) > 0 {
			result.Warnings = append(result.Warnings, ValidationIssue{
				Permission: p,
				Type:       IssueConflict,
				Message:    "Conflicts with: " + joinLabels(present),
			})
		}
	}

	if criticalCount >= 2 {
		result.Warnings = append(result.Warnings, ValidationIssue{
			Permission: firstCritical,
			Type:       IssueUnusualCombination,
			Message:    "Granting multiple critical permissions. Ensure this is intentional.",
		})
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// Suggestions returns advisory grants for the role's permission editor:
// permissions commonly held by the role that are missing, and permissions
// whose dependencies are all already present. Output ordering is
// deterministic (confidence descending, then key) and capped at 10.
// The department is accepted for callers that scope suggestions by team
// but does not yet influence the result.
func (e *Engine) Suggestions(role tenant.Role, current []Permission, department string) []Suggestion {
	set := toSet(current)
	byKey := make(map[Permission]Suggestion)

	for _, p := range ForRole(role) {
		if set[p] {
			continue
		}
		byKey[p] = Suggestion{
			Permission: p,
			Reason:     fmt.Sprintf("Commonly granted to %s users", role),
			Confidence: confidenceRolePattern,
			Action:     suggestionActionAdd,
		}
	}

	for _, p := range All() {
		if set[p] {
			continue
		}
		if _, seen := byKey[p]; seen {
			continue
		}
		meta := Registry[p]
		if len(meta.Dependencies) == 0 {
			continue
		}
		if len(missingFrom(meta.Dependencies, set)) == 0 {
			byKey[p] = Suggestion{
				Permission: p,
				Reason:     "All dependencies are present",
				Confidence: confidenceDepsPresent,
				Action:     suggestionActionAdd,
			}
		}
	}

	suggestions := make([]Suggestion, 0, len(byKey))
	for _, s := range byKey {
		// Drop suggestions that would not validate once applied
		test := append(append([]Permission{}, current...), s.Permission)
		if !e.Validate(test).Valid {
			continue
		}
		suggestions = append(suggestions, s)
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Confidence != suggestions[j].Confidence {
			return suggestions[i].Confidence > suggestions[j].Confidence
		}
		return suggestions[i].Permission < suggestions[j].Permission
	})

	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions
}

// CanGrant reports whether a permission can be added to the current set:
// its dependencies must already be present and none of its conflicts may
// be held.
func (e *Engine) CanGrant(perm Permission, current []Permission) bool {
	meta, ok := Registry[perm]
	if !ok {
		return false
	}
	set := toSet(current)
	if len(missingFrom(meta.Dependencies, set)) > 0 {
		return false
	}
	if len(presentIn(meta.Conflicts, set)) > 0 {
		return false
	}
	return true
}

// RiskLevel returns the maximum risk across a permission set
func (e *Engine) RiskLevel(perms []Permission) Risk {
	max := RiskLow
	for _, p := range perms {
		if meta, ok := Registry[p]; ok && riskRank(meta.Risk) > riskRank(max) {
			max = meta.Risk
		}
	}
	return max
}

// ByCategory returns registered permissions in the given category,
// lexically ordered
func (e *Engine) ByCategory(category Category) []Permission {
	var out []Permission
	for _, p := range All() {
		if Registry[p].Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Search returns permissions whose key or label matches the query,
// case-insensitively, lexically ordered
func (e *Engine) Search(query string) []Permission {
	q := strings.ToLower(query)
	var out []Permission
	for _, p := range All() {
		meta := Registry[p]
		if strings.Contains(strings.ToLower(string(p)), q) ||
			strings.Contains(strings.ToLower(meta.Label), q) {
			out = append(out, p)
		}
	}
	return out
}

func toSet(perms []Permission) map[Permission]bool {
	set := make(map[Permission]bool, len(perms))
	for _, p := range perms {
		set[p] = true
	}
	return set
}

func missingFrom(deps []Permission, set map[Permission]bool) []Permission {
	var missing []Permission
	for _, d := range deps {
		if !set[d] {
			missing = append(missing, d)
		}
	}
	return missing
}

func presentIn(perms []Permission, set map[Permission]bool) []Permission {
	var present []Permission
	for _, p := range perms {
		if set[p] {
			present = append(present, p)
		}
	}
	return present
}

func joinLabels(perms []Permission) string {
	labels := make([]string, 0, len(perms))
	for _, p := range perms {
		if meta, ok := Registry[p]; ok && meta.Label != "" {
			labels = append(labels, meta.Label)
		} else {
			labels = append(labels, string(p))
		}
	}
	return strings.Join(labels, ", ")
}
