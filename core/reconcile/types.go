package reconcile

// Outcome is the result of reconciling one record.
type Outcome string

const (
	// OutcomeCreated means the record did not exist and was written.
	OutcomeCreated Outcome = "created"
	// OutcomeUpdated means at least one owned field was rewritten.
	OutcomeUpdated Outcome = "updated"
	// OutcomeUnchanged means no write was issued.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeRemoved means a stale record was deleted by the prune policy.
	OutcomeRemoved Outcome = "removed"
	// OutcomeFailed means the store rejected the write.
	OutcomeFailed Outcome = "failed"
)

// ActionType is the planned operation for one keyed child record.
type ActionType string

const (
	// ActionCreate creates a record present only on the source side.
	ActionCreate ActionType = "create"
	// ActionUpdate rewrites a record present on both sides with different attributes.
	ActionUpdate ActionType = "update"
	// ActionKeep leaves an identical record alone.
	ActionKeep ActionType = "keep"
	// ActionOrphan marks a record present only in the store.
	ActionOrphan ActionType = "orphan"
)

// Action is one planned operation.
type Action struct {
	// Type specifies the action to perform.
	Type ActionType `json:"type"`

	// Key is the stable identity of the record within its parent.
	Key string `json:"key"`
}

// Plan lists the actions needed to bring store-side records in line with the source.
type Plan struct {
	// Actions are sorted by key.
	Actions []Action `json:"actions"`

	// Summary provides aggregate counts.
	Summary PlanSummary `json:"summary"`
}

// PlanSummary provides aggregate statistics for a plan.
type PlanSummary struct {
	Create  int `json:"create"`
	Update  int `json:"update"`
	Keep    int `json:"keep"`
	Orphans int `json:"orphans"`
}

// Keys returns the keys of all actions of the given type, in plan order.
func (p *Plan) Keys(t ActionType) []string {
	var keys []string
	for _, a := range p.Actions {
		if a.Type == t {
			keys = append(keys, a.Key)
		}
	}
	return keys
}

// Options controls which planned actions may be executed.
type Options struct {
	// DryRun computes outcomes without issuing any write.
	DryRun bool

	// Prune allows orphaned child records to be deleted.
	Prune bool
}
