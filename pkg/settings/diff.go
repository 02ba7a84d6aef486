package settings

import (
	"bytes"
	"encoding/json"
	"sort"
)

// ChangedFields returns the top-level keys whose JSON value differs
// between before and after, sorted. Equality is by deep JSON value, not
// reference: {"a":[1,2]} equals a freshly decoded copy of itself. A nil
// before means first-time creation, so every key of after is changed. Keys
// present only in before count as changed too.
func ChangedFields(before, after map[string]interface{}) []string {
	changed := make([]string, 0)

	if before == nil {
		for key := range after {
			changed = append(changed, key)
		}
		sort.Strings(changed)
		return changed
	}

	for key, afterVal := range after {
		beforeVal, ok := before[key]
		if !ok || !jsonEqual(beforeVal, afterVal) {
			changed = append(changed, key)
		}
	}
	for key := range before {
		if _, ok := after[key]; !ok {
			changed = append(changed, key)
		}
	}

	sort.Strings(changed)
	return changed
}

func jsonEqual(a, b interface{}) bool {
	aJSON, errA := json.Marshal(a)
	bJSON, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(aJSON, bJSON)
}
