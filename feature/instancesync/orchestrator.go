package instancesync

import (
	"context"
	"errors"
	"time"

	"incus-sync/core/incus"
	"incus-sync/core/logger"
	"incus-sync/core/monitoring"
	"incus-sync/core/reconcile"
	"incus-sync/feature/hosts"
	"incus-sync/feature/inventory"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HostSource provides the hosts to synchronize.
type HostSource interface {
	// List returns the enabled hosts.
	List(ctx context.Context) ([]hosts.Host, error)
	// Get returns one host by name.
	Get(ctx context.Context, name string) (*hosts.Host, error)
}

// Connector opens a connection to a host. The returned func releases it.
type Connector func(h hosts.Host) (incus.Requester, func(), error)

// Orchestrator runs sync passes over hosts. Hosts run concurrently and a
// failing host never stops the others.
type Orchestrator struct {
	hosts    HostSource
	connect  Connector
	store    inventory.Store
	topology *Topology
	cfg      Config
	monitor  *monitoring.Monitor
	logger   *zap.Logger
}

// NewOrchestrator creates an orchestrator. monitor may be nil.
func NewOrchestrator(src HostSource, connect Connector, store inventory.Store, cfg Config, monitor *monitoring.Monitor, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		hosts:    src,
		connect:  connect,
		store:    store,
		topology: NewTopology(store, cfg.ConflictRetries, logger),
		cfg:      cfg,
		monitor:  monitor,
		logger:   logger,
	}
}

// DefaultOptions returns the write policy from the configuration.
func (o *Orchestrator) DefaultOptions() reconcile.Options {
	return reconcile.Options{Prune: o.cfg.PruneChildren}
}

// SyncAll synchronizes every enabled host. The returned result is always
// aggregated, even when every host failed or the context was cancelled.
func (o *Orchestrator) SyncAll(ctx context.Context, opts reconcile.Options) (*RunResult, error) {
	list, err := o.hosts.List(ctx)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, list, opts), nil
}

// SyncHost synchronizes a single host, enabled or not.
func (o *Orchestrator) SyncHost(ctx context.Context, name string, opts reconcile.Options) (*RunResult, error) {
	h, err := o.hosts.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, []hosts.Host{*h}, opts), nil
}

func (o *Orchestrator) run(ctx context.Context, list []hosts.Host, opts reconcile.Options) *RunResult {
	res := &RunResult{
		RunID:     uuid.NewString(),
		State:     RunIdle,
		DryRun:    opts.DryRun,
		Hosts:     make([]*SyncResult, len(list)),
		StartedAt: time.Now().UTC(),
	}
	for i, h := range list {
		res.Hosts[i] = newSyncResult(h.Name)
	}

	o.logger.Info("Sync run started",
		zap.String("run_id", res.RunID),
		zap.Int("hosts", len(list)),
		zap.Bool("dry_run", opts.DryRun),
		zap.Bool("prune", opts.Prune))

	res.State = RunFetchingHosts
	concurrency := o.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	g := new(errgroup.Group)
	g.SetLimit(concurrency)
	for i, h := range list {
		g.Go(func() error {
			o.syncHost(ctx, res.RunID, h, opts, res.Hosts[i])
			return nil
		})
	}
	_ = g.Wait()

	res.aggregate()
	res.Elapsed = time.Since(res.StartedAt)
	o.logger.Info("Sync run finished",
		zap.String("run_id", res.RunID),
		zap.String("status", string(res.Summary.Status)),
		zap.Int("hosts_done", res.Summary.HostsDone),
		zap.Int("hosts_failed", res.Summary.HostsFailed),
		zap.Duration("elapsed", res.Elapsed))
	return res
}

func (o *Orchestrator) syncHost(ctx context.Context, runID string, h hosts.Host, opts reconcile.Options, res *SyncResult) {
	log := logger.ForHost(o.logger, runID, h.Name)
	res.StartedAt = time.Now().UTC()
	defer o.finishHost(log, res)

	if err := ctx.Err(); err != nil {
		res.fail(FailureCancelled, err)
		return
	}

	res.State = HostConnecting
	client, release, err := o.connect(h)
	if err != nil {
		res.fail(classify(ctx, err), err)
		return
	}
	defer release()

	info, err := incus.Handshake(ctx, client, h.Name)
	if err != nil {
		res.fail(classify(ctx, err), err)
		return
	}

	res.State = HostFetching
	fetcher := incus.NewFetcher(h.Name, h.Project, client, o.cfg.DetailConcurrency, log)
	clusterInfo, err := fetcher.ClusterInfo(ctx)
	if err != nil {
		res.fail(classify(ctx, err), err)
		return
	}
	fetched, err := fetcher.Fetch(ctx)
	if err != nil {
		res.fail(classify(ctx, err), err)
		return
	}
	for _, de := range fetched.Failures {
		res.Instances.Failed++
		res.addError(de.Instance, FailureFetch, de)
	}

	name := ClusterName(h, clusterInfo.Enabled, info.Environment.CertificateFingerprint)
	cluster, err := o.topology.Resolve(ctx, h, name)
	if err != nil {
		res.fail(classify(ctx, err), err)
		return
	}
	if cluster != nil {
		res.Cluster = cluster.Name
	}

	res.State = HostReconciling
	p := &pass{
		reconciler: NewReconciler(o.store, opts, log),
		children:   NewChildSyncer(o.store, opts, log),
		journal:    NewJournal(o.store, opts.DryRun, log),
		cluster:    cluster,
		result:     res,
		logger:     log,
	}
	for _, raw := range fetched.Instances {
		if err := ctx.Err(); err != nil {
			res.fail(FailureCancelled, err)
			return
		}
		p.syncInstance(ctx, h.Name, raw)
	}
	if err := ctx.Err(); err != nil {
		res.fail(FailureCancelled, err)
		return
	}
	res.State = HostDone
}

func (o *Orchestrator) finishHost(log *zap.Logger, res *SyncResult) {
	res.Elapsed = time.Since(res.StartedAt)

	o.monitor.ObserveHostRun(res.Host, string(res.State), res.Elapsed, time.Now())
	for outcome, n := range countsByOutcome(res.Instances) {
		o.monitor.AddInstances(res.Host, outcome, n)
	}
	for kind, counts := range map[string]Counts{"interface": res.Interfaces, "ip_address": res.IPAddresses, "disk": res.Disks} {
		for outcome, n := range countsByOutcome(counts) {
			o.monitor.AddChildren(res.Host, kind, outcome, n)
		}
	}

	fields := []zap.Field{
		zap.String("state", string(res.State)),
		zap.Int("created", res.Instances.Created),
		zap.Int("updated", res.Instances.Updated),
		zap.Int("unchanged", res.Instances.Unchanged),
		zap.Int("failed", res.Instances.Failed),
		zap.Duration("elapsed", res.Elapsed),
	}
	if res.State == HostFailed {
		o.monitor.CountHostFailure(res.Host, string(res.FailureKind))
		log.Error("Host sync failed", append(fields, zap.String("kind", string(res.FailureKind)))...)
		return
	}
	log.Info("Host sync finished", fields...)
}

// pass holds the per-host components of one run.
type pass struct {
	reconciler *Reconciler
	children   *ChildSyncer
	journal    *Journal
	cluster    *ClusterRef
	result     *SyncResult
	logger     *zap.Logger
}

func (p *pass) syncInstance(ctx context.Context, host string, raw incus.RawInstance) {
	res := p.result
	inst, ifaces, disks := Normalize(host, raw)

	out, err := p.reconciler.Reconcile(ctx, inst, p.cluster)
	if err != nil {
		res.Instances.Failed++
		res.addError(raw.Name, classify(ctx, err), err)
		p.logger.Warn("Instance reconcile failed", zap.String("instance", raw.Name), zap.Error(err))
		return
	}

	children, err := p.children.Sync(ctx, inst.Key, out.Machine, ifaces, disks)
	res.addChildren(children)
	if err != nil {
		res.Instances.Failed++
		res.addError(raw.Name, classify(ctx, err), err)
		p.logger.Warn("Instance children sync failed", zap.String("instance", raw.Name), zap.Error(err))
		return
	}

	outcome := out.Outcome
	if outcome == reconcile.OutcomeUnchanged && children.Changed() {
		outcome = reconcile.OutcomeUpdated
	}
	res.Instances.Add(outcome)

	entry, err := p.journal.Emit(ctx, inst.Key, out, children)
	if err != nil {
		res.addError(raw.Name, classify(ctx, err), err)
		return
	}
	if entry != nil {
		res.Journal++
	}
	if outcome != reconcile.OutcomeUnchanged {
		p.logger.Debug("Instance reconciled",
			zap.String("instance", raw.Name),
			zap.String("outcome", string(outcome)),
			zap.Strings("fields", out.Changes.Fields()))
	}
}

// classify maps an error to a failure kind. Cancellation wins over the
// error taxonomy since cancelled requests surface as transport errors.
func classify(ctx context.Context, err error) FailureKind {
	var (
		topoErr  *TopologyError
		fetchErr *incus.FetchError
		connErr  *incus.ConnectionError
		recErr   *ReconcileError
	)
	switch {
	case ctx.Err() != nil, errors.Is(err, context.Canceled):
		return FailureCancelled
	case errors.As(err, &topoErr):
		return FailureTopology
	case errors.As(err, &fetchErr):
		return FailureFetch
	case errors.As(err, &connErr):
		return FailureConnection
	case errors.As(err, &recErr):
		return FailureReconcile
	default:
		return FailureInternal
	}
}

func countsByOutcome(c Counts) map[string]int {
	return map[string]int{
		string(reconcile.OutcomeCreated):   c.Created,
		string(reconcile.OutcomeUpdated):   c.Updated,
		string(reconcile.OutcomeUnchanged): c.Unchanged,
		string(reconcile.OutcomeFailed):    c.Failed,
		string(reconcile.OutcomeRemoved):   c.Removed,
	}
}
