package incus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Handshake reads GET /1.0 and checks that the daemon trusts our client.
// Every failure is reported as *ConnectionError.
func Handshake(ctx context.Context, r Requester, host string) (*ServerInfo, error) {
	resp, err := r.Request(ctx, http.MethodGet, "/1.0", nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var connErr *ConnectionError
		if errors.As(err, &connErr) {
			return nil, connErr
		}
		return nil, &ConnectionError{Host: host, Op: "handshake", Err: err}
	}

	var info ServerInfo
	if err := resp.Decode(&info); err != nil {
		return nil, &ConnectionError{Host: host, Op: "handshake", Err: err}
	}
	if info.Auth != "trusted" {
		return nil, &ConnectionError{Host: host, Op: "handshake", Err: fmt.Errorf("client certificate is not trusted by the server (auth %q)", info.Auth)}
	}
	return &info, nil
}

// FetchResult holds the instances of one host that could be fully read,
// plus one DetailError per instance that was skipped.
type FetchResult struct {
	Instances []RawInstance
	Failures  []*DetailError
}

// Fetcher reads the instance inventory of one host.
type Fetcher struct {
	host        string
	project     string
	client      Requester
	concurrency int
	logger      *zap.Logger
}

// NewFetcher creates a fetcher. concurrency bounds parallel detail calls.
func NewFetcher(host, project string, client Requester, concurrency int, logger *zap.Logger) *Fetcher {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Fetcher{
		host:        host,
		project:     project,
		client:      client,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ClusterInfo reports whether the host is a cluster member.
func (f *Fetcher) ClusterInfo(ctx context.Context) (*ClusterInfo, error) {
	var info ClusterInfo
	if err := f.get(ctx, "/1.0/cluster", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Fetch lists the instances and reads detail and state for each of them.
// A failed listing is returned as *FetchError. A failed detail call only skips
// that instance and is recorded in the result.
func (f *Fetcher) Fetch(ctx context.Context) (*FetchResult, error) {
	var urls []string
	if err := f.get(ctx, "/1.0/instances", &urls); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(urls))
	for _, u := range urls {
		if name := instanceName(u); name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	instances := make([]*RawInstance, len(names))
	failures := make([]*DetailError, len(names))

	g := new(errgroup.Group)
	g.SetLimit(f.concurrency)
	for i, name := range names {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			inst, err := f.fetchInstance(ctx, name)
			if err != nil {
				failures[i] = &DetailError{Instance: name, Err: err}
				return nil
			}
			instances[i] = inst
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &FetchResult{}
	for i := range names {
		if instances[i] != nil {
			result.Instances = append(result.Instances, *instances[i])
		}
		if failures[i] != nil {
			f.logger.Warn("Skipping instance, detail fetch failed",
				zap.String("instance", names[i]), zap.Error(failures[i].Err))
			result.Failures = append(result.Failures, failures[i])
		}
	}
	return result, nil
}

func (f *Fetcher) fetchInstance(ctx context.Context, name string) (*RawInstance, error) {
	base := "/1.0/instances/" + url.PathEscape(name)

	var inst RawInstance
	if err := f.get(ctx, base, &inst); err != nil {
		return nil, err
	}
	var state InstanceState
	if err := f.get(ctx, base+"/state", &state); err != nil {
		return nil, err
	}
	inst.State = &state
	inst.VolumeSizes = f.volumeSizes(ctx, inst)
	return &inst, nil
}

// volumeSizes resolves sizes for disk devices that do not declare one.
// Lookups are best effort: a missing volume leaves the size unknown.
func (f *Fetcher) volumeSizes(ctx context.Context, inst RawInstance) map[string]string {
	sizes := make(map[string]string)
	for devName, dev := range inst.EffectiveDevices() {
		if dev["type"] != "disk" || dev["size"] != "" || dev["pool"] == "" {
			continue
		}

		var candidates []string
		switch {
		case dev["path"] == "/":
			if inst.Type == "virtual-machine" {
				candidates = []string{"virtual-machine", "container"}
			} else {
				candidates = []string{"container", "virtual-machine"}
			}
			candidates = volumePaths(dev["pool"], candidates, inst.Name)
		case dev["source"] != "" && !strings.HasPrefix(dev["source"], "/"):
			candidates = volumePaths(dev["pool"], []string{"custom"}, dev["source"])
		default:
			continue
		}

		for _, p := range candidates {
			var vol StorageVolume
			if err := f.get(ctx, p, &vol); err != nil {
				f.logger.Debug("Volume lookup failed", zap.String("path", p), zap.Error(err))
				continue
			}
			if size := vol.Config["size"]; size != "" {
				sizes[devName] = size
				break
			}
		}
	}
	return sizes
}

func volumePaths(pool string, types []string, name string) []string {
	paths := make([]string, 0, len(types))
	for _, t := range types {
		paths = append(paths, fmt.Sprintf("/1.0/storage-pools/%s/volumes/%s/%s",
			url.PathEscape(pool), t, url.PathEscape(name)))
	}
	return paths
}

func (f *Fetcher) get(ctx context.Context, p string, out any) error {
	full := p
	if f.project != "" {
		full += "?project=" + url.QueryEscape(f.project)
	}

	resp, err := f.client.Request(ctx, http.MethodGet, full, nil)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &FetchError{Host: f.host, Path: p, Err: err}
	}
	if resp.Type != "sync" {
		return &FetchError{Host: f.host, Path: p, Err: fmt.Errorf("unexpected %q response", resp.Type)}
	}
	if err := resp.Decode(out); err != nil {
		return &FetchError{Host: f.host, Path: p, Err: err}
	}
	return nil
}

// instanceName extracts the name from an instance URL such as
// "/1.0/instances/web-01?project=default".
func instanceName(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	name, err := url.PathUnescape(path.Base(u))
	if err != nil || name == "." || name == "/" {
		return ""
	}
	return name
}
