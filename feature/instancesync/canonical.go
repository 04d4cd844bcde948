package instancesync

import "time"

// InstanceKey is the stable identity of an instance: its host and name.
type InstanceKey struct {
	Host string `json:"host"`
	Name string `json:"name"`
}

func (k InstanceKey) String() string {
	return k.Host + "/" + k.Name
}

// Disk roles.
const (
	DiskRoleRoot = "root"
	DiskRoleData = "data"
)

// CanonicalInstance is the normalized form of one Incus instance.
// Nil resource fields mean the limit is not set.
type CanonicalInstance struct {
	Key       InstanceKey
	Status    string
	RawStatus string
	VCPUs     *int
	Memory    *int64
	Disk      *int64
	Type      string
	Image     string
	Profiles  []string
	Location  string
	UUID      string
	CreatedAt time.Time
}

// CanonicalIP is an address in CIDR notation.
type CanonicalIP struct {
	Address string
	Family  int
	Global  bool
}

// CanonicalInterface is one network interface of an instance, keyed by name.
// Enabled and MTU are nil when the instance reports no live state for it.
type CanonicalInterface struct {
	Name          string
	MAC           *string
	Bridge        string
	HostInterface string
	NICType       string
	Enabled       *bool
	MTU           *int
	IPs           []CanonicalIP
}

// CanonicalDisk is one disk device of an instance.
// Key is the mount path, else the volume source, else the device name.
type CanonicalDisk struct {
	Key       string
	Device    string
	Size      *int64
	Pool      string
	Role      string
	Source    string
	MountPath string
}
