package incus

import "time"

// ServerInfo is the subset of GET /1.0 used by the sync.
type ServerInfo struct {
	APIVersion  string            `json:"api_version"`
	Auth        string            `json:"auth"`
	Environment ServerEnvironment `json:"environment"`
}

// ServerEnvironment describes the daemon answering the request.
type ServerEnvironment struct {
	ServerName             string `json:"server_name"`
	ServerVersion          string `json:"server_version"`
	ServerClustered        bool   `json:"server_clustered"`
	CertificateFingerprint string `json:"certificate_fingerprint"`
}

// ClusterInfo is the payload of GET /1.0/cluster.
// ServerName is the local member name, not the cluster name.
type ClusterInfo struct {
	ServerName string `json:"server_name"`
	Enabled    bool   `json:"enabled"`
}

// RawInstance is one container or virtual machine as returned by Incus,
// with its runtime state and resolved volume sizes attached by the Fetcher.
type RawInstance struct {
	Name            string                       `json:"name"`
	Status          string                       `json:"status"`
	StatusCode      int                          `json:"status_code"`
	Type            string                       `json:"type"`
	Architecture    string                       `json:"architecture"`
	Description     string                       `json:"description"`
	Config          map[string]string            `json:"config"`
	Devices         map[string]map[string]string `json:"devices"`
	ExpandedConfig  map[string]string            `json:"expanded_config"`
	ExpandedDevices map[string]map[string]string `json:"expanded_devices"`
	Profiles        []string                     `json:"profiles"`
	CreatedAt       time.Time                    `json:"created_at"`
	Location        string                       `json:"location"`
	Project         string                       `json:"project"`

	State *InstanceState `json:"state,omitempty"`

	// VolumeSizes maps a disk device name to the size of its backing volume,
	// for devices that carry no explicit size.
	VolumeSizes map[string]string `json:"-"`
}

// EffectiveConfig returns the config with profiles applied, falling back to
// the local config when the daemon did not expand it.
func (r RawInstance) EffectiveConfig() map[string]string {
	if len(r.ExpandedConfig) > 0 {
		return r.ExpandedConfig
	}
	return r.Config
}

// EffectiveDevices returns the devices with profiles applied, falling back to
// the local devices when the daemon did not expand them.
func (r RawInstance) EffectiveDevices() map[string]map[string]string {
	if len(r.ExpandedDevices) > 0 {
		return r.ExpandedDevices
	}
	return r.Devices
}

// InstanceState is the payload of GET /1.0/instances/{name}/state.
type InstanceState struct {
	Status     string                  `json:"status"`
	StatusCode int                     `json:"status_code"`
	Network    map[string]NetworkState `json:"network"`
}

// NetworkState is the runtime view of one instance NIC.
type NetworkState struct {
	Addresses []NetworkAddress `json:"addresses"`
	Hwaddr    string           `json:"hwaddr"`
	HostName  string           `json:"host_name"`
	Mtu       int              `json:"mtu"`
	State     string           `json:"state"`
	Type      string           `json:"type"`
}

// NetworkAddress is one address configured on an instance NIC.
type NetworkAddress struct {
	Family  string `json:"family"`
	Address string `json:"address"`
	Netmask string `json:"netmask"`
	Scope   string `json:"scope"`
}

// StorageVolume is the subset of a storage volume needed to read its size.
type StorageVolume struct {
	Name   string            `json:"name"`
	Type   string            `json:"type"`
	Config map[string]string `json:"config"`
}
