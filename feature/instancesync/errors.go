package instancesync

import "fmt"

// ReconcileError reports a write the inventory store rejected for one instance.
type ReconcileError struct {
	Instance InstanceKey
	Op       string
	Err      error
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("reconcile %s: %s: %v", e.Instance, e.Op, e.Err)
}

func (e *ReconcileError) Unwrap() error {
	return e.Err
}

// TopologyError reports a cluster group that could not be resolved.
type TopologyError struct {
	Host    string
	Cluster string
	Err     error
}

func (e *TopologyError) Error() string {
	if e.Cluster == "" {
		return fmt.Sprintf("resolve cluster for %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("resolve cluster %q for %s: %v", e.Cluster, e.Host, e.Err)
}

func (e *TopologyError) Unwrap() error {
	return e.Err
}
