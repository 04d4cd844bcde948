package instancesync

import (
	"time"

	"incus-sync/core/reconcile"
)

// HostState is the state of one host pass.
type HostState string

const (
	HostPending     HostState = "pending"
	HostConnecting  HostState = "connecting"
	HostFetching    HostState = "fetching"
	HostReconciling HostState = "reconciling"
	HostDone        HostState = "done"
	HostFailed      HostState = "failed"
)

// RunState is the state of a whole run.
type RunState string

const (
	RunIdle          RunState = "idle"
	RunFetchingHosts RunState = "fetching_hosts"
	RunAggregated    RunState = "aggregated"
)

// FailureKind classifies an error for callers and metrics.
type FailureKind string

const (
	FailureConnection FailureKind = "connection"
	FailureFetch      FailureKind = "fetch"
	FailureTopology   FailureKind = "topology"
	FailureReconcile  FailureKind = "reconcile"
	FailureCancelled  FailureKind = "cancelled"
	FailureInternal   FailureKind = "internal"
)

// RunStatus summarizes a run.
type RunStatus string

const (
	// StatusEmpty means no host was configured.
	StatusEmpty RunStatus = "empty"
	// StatusSuccess means every host finished without errors.
	StatusSuccess RunStatus = "success"
	// StatusPartial means some hosts or instances failed.
	StatusPartial RunStatus = "partial"
	// StatusFailed means every host failed.
	StatusFailed RunStatus = "failed"
)

// Counts tallies reconciliation outcomes of one record kind.
type Counts struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
	Removed   int `json:"removed"`
}

// Add counts one outcome.
func (c *Counts) Add(o reconcile.Outcome) {
	switch o {
	case reconcile.OutcomeCreated:
		c.Created++
	case reconcile.OutcomeUpdated:
		c.Updated++
	case reconcile.OutcomeUnchanged:
		c.Unchanged++
	case reconcile.OutcomeFailed:
		c.Failed++
	case reconcile.OutcomeRemoved:
		c.Removed++
	}
}

// Merge adds other into c.
func (c *Counts) Merge(other Counts) {
	c.Created += other.Created
	c.Updated += other.Updated
	c.Unchanged += other.Unchanged
	c.Failed += other.Failed
	c.Removed += other.Removed
}

// Written returns the number of records created, updated or removed.
func (c Counts) Written() int {
	return c.Created + c.Updated + c.Removed
}

// ErrorDescriptor attributes one failure to a host and, if any, an instance.
type ErrorDescriptor struct {
	Host     string      `json:"host"`
	Instance string      `json:"instance,omitempty"`
	Kind     FailureKind `json:"kind"`
	Message  string      `json:"message"`
}

// SyncResult is the outcome of one host pass.
type SyncResult struct {
	Host        string            `json:"host"`
	State       HostState         `json:"state"`
	FailureKind FailureKind       `json:"failure_kind,omitempty"`
	Cluster     string            `json:"cluster,omitempty"`
	Instances   Counts            `json:"instances"`
	Interfaces  Counts            `json:"interfaces"`
	IPAddresses Counts            `json:"ip_addresses"`
	Disks       Counts            `json:"disks"`
	Journal     int               `json:"journal_entries"`
	Errors      []ErrorDescriptor `json:"errors"`
	StartedAt   time.Time         `json:"started_at"`
	Elapsed     time.Duration     `json:"elapsed_ns"`
}

func newSyncResult(host string) *SyncResult {
	return &SyncResult{Host: host, State: HostPending, Errors: []ErrorDescriptor{}}
}

func (r *SyncResult) addError(instance string, kind FailureKind, err error) {
	r.Errors = append(r.Errors, ErrorDescriptor{Host: r.Host, Instance: instance, Kind: kind, Message: err.Error()})
}

func (r *SyncResult) fail(kind FailureKind, err error) {
	r.State = HostFailed
	r.FailureKind = kind
	r.addError("", kind, err)
}

func (r *SyncResult) addChildren(o *ChildOutcome) {
	if o == nil {
		return
	}
	r.Interfaces.Merge(o.Interfaces)
	r.IPAddresses.Merge(o.IPAddresses)
	r.Disks.Merge(o.Disks)
}

// Summary combines the host results of a run.
type Summary struct {
	Status      RunStatus `json:"status"`
	Hosts       int       `json:"hosts"`
	HostsDone   int       `json:"hosts_done"`
	HostsFailed int       `json:"hosts_failed"`
	Instances   Counts    `json:"instances"`
	Interfaces  Counts    `json:"interfaces"`
	IPAddresses Counts    `json:"ip_addresses"`
	Disks       Counts    `json:"disks"`
	Errors      int       `json:"errors"`
}

// RunResult is the aggregated outcome of one run.
type RunResult struct {
	RunID     string        `json:"run_id"`
	State     RunState      `json:"state"`
	DryRun    bool          `json:"dry_run"`
	Hosts     []*SyncResult `json:"hosts"`
	Summary   Summary       `json:"summary"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

// Host returns the result of the named host, or nil.
func (r *RunResult) Host(name string) *SyncResult {
	for _, h := range r.Hosts {
		if h.Host == name {
			return h
		}
	}
	return nil
}

func (r *RunResult) aggregate() {
	s := Summary{Hosts: len(r.Hosts)}
	for _, h := range r.Hosts {
		switch h.State {
		case HostDone:
			s.HostsDone++
		default:
			s.HostsFailed++
		}
		s.Instances.Merge(h.Instances)
		s.Interfaces.Merge(h.Interfaces)
		s.IPAddresses.Merge(h.IPAddresses)
		s.Disks.Merge(h.Disks)
		s.Errors += len(h.Errors)
	}

	switch {
	case s.Hosts == 0:
		s.Status = StatusEmpty
	case s.HostsFailed == s.Hosts:
		s.Status = StatusFailed
	case s.HostsFailed > 0 || s.Errors > 0:
		s.Status = StatusPartial
	default:
		s.Status = StatusSuccess
	}
	r.Summary = s
	r.State = RunAggregated
}
