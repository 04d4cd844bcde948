package reconcile

import "sort"

// BuildPlan computes the keyed symmetric difference between source records and
// store records. differs reports whether a record present on both sides needs
// an update.
func BuildPlan[S, T any](source map[string]S, store map[string]T, differs func(S, T) bool) *Plan {
	union := make(map[string]struct{}, len(source)+len(store))
	for key := range source {
		union[key] = struct{}{}
	}
	for key := range store {
		union[key] = struct{}{}
	}

	keys := make([]string, 0, len(union))
	for key := range union {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	plan := &Plan{Actions: make([]Action, 0, len(keys))}
	for _, key := range keys {
		src, inSource := source[key]
		cur, inStore := store[key]

		var t ActionType
		switch {
		case inSource && !inStore:
			t = ActionCreate
			plan.Summary.Create++
		case !inSource && inStore:
			t = ActionOrphan
			plan.Summary.Orphans++
		case differs(src, cur):
			t = ActionUpdate
			plan.Summary.Update++
		default:
			t = ActionKeep
			plan.Summary.Keep++
		}
		plan.Actions = append(plan.Actions, Action{Type: t, Key: key})
	}
	return plan
}
