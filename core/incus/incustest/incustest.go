// Package incustest provides an in-memory Incus API for tests.
package incustest

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"incus-sync/core/incus"
)

// API is an incus.Requester serving canned metadata per path.
// Paths are matched including any query string.
type API struct {
	mu       sync.Mutex
	metadata map[string]any
	errs     map[string]error
	hold     map[string]chan struct{}
	calls    []string
}

// New returns an empty API. Every unknown path answers 404.
func New() *API {
	return &API{
		metadata: map[string]any{},
		errs:     map[string]error{},
		hold:     map[string]chan struct{}{},
	}
}

// Set registers the metadata returned for path.
func (a *API) Set(path string, metadata any) *API {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.metadata[path] = metadata
	delete(a.errs, path)
	return a
}

// Fail makes requests for path return err.
func (a *API) Fail(path string, err error) *API {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errs[path] = err
	return a
}

// Hold blocks requests for path until the returned func is called or the
// request context ends.
func (a *API) Hold(path string) (release func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ch := make(chan struct{})
	a.hold[path] = ch
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Calls returns every request seen so far as "METHOD path".
func (a *API) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

// Request implements incus.Requester.
func (a *API) Request(ctx context.Context, method, path string, _ any) (*incus.Response, error) {
	a.mu.Lock()
	a.calls = append(a.calls, method+" "+path)
	hold := a.hold[path]
	a.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	a.mu.Lock()
	err, failed := a.errs[path]
	md, ok := a.metadata[path]
	a.mu.Unlock()

	if failed {
		return nil, err
	}
	if !ok {
		return nil, &incus.APIError{StatusCode: http.StatusNotFound, Message: "not found"}
	}
	raw, err := json.Marshal(md)
	if err != nil {
		return nil, err
	}
	return &incus.Response{Type: "sync", Status: "Success", StatusCode: http.StatusOK, Metadata: raw}, nil
}

// Server registers the /1.0 handshake answer for a trusted client.
func (a *API) Server(name, fingerprint string) *API {
	return a.Set("/1.0", map[string]any{
		"api_version": "1.0",
		"auth":        "trusted",
		"environment": map[string]any{
			"server_name":             name,
			"server_version":          "6.0",
			"certificate_fingerprint": fingerprint,
		},
	})
}

// Standalone registers a /1.0/cluster answer for a non-clustered host.
func (a *API) Standalone() *API {
	return a.Set("/1.0/cluster", map[string]any{"server_name": "", "enabled": false})
}

// Instance describes one instance served by the API.
type Instance struct {
	Name    string
	Status  string
	Type    string
	Config  map[string]string
	Devices map[string]map[string]string
	Network map[string]any
}

// Instances registers the listing plus detail and state of each instance.
func (a *API) Instances(instances ...Instance) *API {
	urls := make([]string, 0, len(instances))
	for _, inst := range instances {
		urls = append(urls, "/1.0/instances/"+inst.Name)
		a.Instance(inst)
	}
	return a.Set("/1.0/instances", urls)
}

// Instance registers the detail and state of one instance.
func (a *API) Instance(inst Instance) *API {
	typ := inst.Type
	if typ == "" {
		typ = "container"
	}
	base := "/1.0/instances/" + inst.Name
	a.Set(base, map[string]any{
		"name":             inst.Name,
		"status":           inst.Status,
		"type":             typ,
		"expanded_config":  inst.Config,
		"expanded_devices": inst.Devices,
	})
	return a.Set(base+"/state", map[string]any{
		"status":  inst.Status,
		"network": inst.Network,
	})
}
