package models

import "time"

// Object types used to scope custom field values.
const (
	ObjectVirtualMachine = "virtualization.virtualmachine"
	ObjectVMInterface    = "virtualization.vminterface"
	ObjectVirtualDisk    = "virtualization.virtualdisk"
)

// Machine statuses.
const (
	StatusActive  = "active"
	StatusOffline = "offline"
)

// Journal entry kinds.
const (
	JournalInfo    = "info"
	JournalSuccess = "success"
	JournalWarning = "warning"
	JournalDanger  = "danger"
)

// ClusterType is the type registry entry of a cluster (e.g. "incus").
type ClusterType struct {
	ID   uint   `gorm:"column:id;primaryKey" json:"id"`
	Name string `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Slug string `gorm:"column:slug;type:varchar(100);uniqueIndex;not null" json:"slug"`
}

func (ClusterType) TableName() string {
	return "cluster_types"
}

// Cluster groups machines of one hypervisor cluster.
// Name is unique per type, which serializes concurrent first-time creation.
type Cluster struct {
	ID          uint      `gorm:"column:id;primaryKey" json:"id"`
	Name        string    `gorm:"column:name;type:varchar(100);uniqueIndex:idx_cluster_type_name;not null" json:"name"`
	TypeID      uint      `gorm:"column:type_id;uniqueIndex:idx_cluster_type_name;not null" json:"type_id"`
	Description string    `gorm:"column:description;type:varchar(200)" json:"description"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Cluster) TableName() string {
	return "clusters"
}

// VirtualMachine is the inventory record of one Incus instance.
// (SourceHost, Name) is its stable identity. Description and Comments belong
// to operators and are never written by the sync.
type VirtualMachine struct {
	ID           uint      `gorm:"column:id;primaryKey" json:"id"`
	SourceHost   string    `gorm:"column:source_host;type:varchar(100);uniqueIndex:idx_vm_host_name;not null" json:"source_host"`
	Name         string    `gorm:"column:name;type:varchar(64);uniqueIndex:idx_vm_host_name;not null" json:"name"`
	Status       string    `gorm:"column:status;type:varchar(50);not null" json:"status"`
	VCPUs        *int      `gorm:"column:vcpus" json:"vcpus"`
	Memory       *int64    `gorm:"column:memory" json:"memory"`
	Disk         *int64    `gorm:"column:disk" json:"disk"`
	ClusterID    *uint     `gorm:"column:cluster_id;index" json:"cluster_id"`
	PrimaryIP4ID *uint     `gorm:"column:primary_ip4_id" json:"primary_ip4_id"`
	PrimaryIP6ID *uint     `gorm:"column:primary_ip6_id" json:"primary_ip6_id"`
	Description  string    `gorm:"column:description;type:varchar(200)" json:"description"`
	Comments     string    `gorm:"column:comments;type:text" json:"comments"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`

	CustomFields map[string]string `gorm:"-" json:"custom_fields,omitempty"`
}

func (VirtualMachine) TableName() string {
	return "virtual_machines"
}

// VMInterface is a network interface of a machine, unique by name within it.
type VMInterface struct {
	ID               uint    `gorm:"column:id;primaryKey" json:"id"`
	VirtualMachineID uint    `gorm:"column:virtual_machine_id;uniqueIndex:idx_iface_vm_name;not null" json:"virtual_machine_id"`
	Name             string  `gorm:"column:name;type:varchar(64);uniqueIndex:idx_iface_vm_name;not null" json:"name"`
	MACAddress       *string `gorm:"column:mac_address;type:varchar(18)" json:"mac_address"`
	MTU              *int    `gorm:"column:mtu" json:"mtu"`
	Enabled          bool    `gorm:"column:enabled" json:"enabled"`
	Description      string  `gorm:"column:description;type:varchar(200)" json:"description"`

	CustomFields map[string]string `gorm:"-" json:"custom_fields,omitempty"`
}

func (VMInterface) TableName() string {
	return "vm_interfaces"
}

// IPAddress is an address in CIDR notation assigned to an interface.
type IPAddress struct {
	ID                  uint   `gorm:"column:id;primaryKey" json:"id"`
	Address             string `gorm:"column:address;type:varchar(64);uniqueIndex:idx_ip_iface_address;not null" json:"address"`
	Family              int    `gorm:"column:family;not null" json:"family"`
	Status              string `gorm:"column:status;type:varchar(50);not null" json:"status"`
	AssignedInterfaceID *uint  `gorm:"column:assigned_interface_id;uniqueIndex:idx_ip_iface_address" json:"assigned_interface_id"`
	Description         string `gorm:"column:description;type:varchar(200)" json:"description"`
}

func (IPAddress) TableName() string {
	return "ip_addresses"
}

// VirtualDisk is a disk of a machine, unique by key within it.
// Key is the mount path, else the volume source, else the device name.
type VirtualDisk struct {
	ID               uint   `gorm:"column:id;primaryKey" json:"id"`
	VirtualMachineID uint   `gorm:"column:virtual_machine_id;uniqueIndex:idx_disk_vm_key;not null" json:"virtual_machine_id"`
	Key              string `gorm:"column:disk_key;type:varchar(255);uniqueIndex:idx_disk_vm_key;not null" json:"key"`
	Name             string `gorm:"column:name;type:varchar(64);not null" json:"name"`
	Size             *int64 `gorm:"column:size" json:"size"`
	Description      string `gorm:"column:description;type:varchar(200)" json:"description"`

	CustomFields map[string]string `gorm:"-" json:"custom_fields,omitempty"`
}

func (VirtualDisk) TableName() string {
	return "virtual_disks"
}

// Tag labels machines. Slug is unique.
type Tag struct {
	ID    uint   `gorm:"column:id;primaryKey" json:"id"`
	Name  string `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Slug  string `gorm:"column:slug;type:varchar(100);uniqueIndex;not null" json:"slug"`
	Color string `gorm:"column:color;type:varchar(20)" json:"color"`
}

func (Tag) TableName() string {
	return "tags"
}

// MachineTag assigns a tag to a machine.
type MachineTag struct {
	ID               uint `gorm:"column:id;primaryKey"`
	VirtualMachineID uint `gorm:"column:virtual_machine_id;uniqueIndex:idx_vm_tag;not null"`
	TagID            uint `gorm:"column:tag_id;uniqueIndex:idx_vm_tag;index;not null"`
}

func (MachineTag) TableName() string {
	return "virtual_machine_tags"
}

// JournalEntry is an append-only history line attached to a machine.
type JournalEntry struct {
	ID               uint      `gorm:"column:id;primaryKey" json:"id"`
	VirtualMachineID uint      `gorm:"column:virtual_machine_id;index;not null" json:"virtual_machine_id"`
	Kind             string    `gorm:"column:kind;type:varchar(30);not null" json:"kind"`
	Comments         string    `gorm:"column:comments;type:text;not null" json:"comments"`
	CreatedAt        time.Time `gorm:"column:created_at" json:"created_at"`
}

func (JournalEntry) TableName() string {
	return "journal_entries"
}

// CustomFieldValue stores one extension attribute of one object.
// Each value is its own row so that writes stay field-level.
type CustomFieldValue struct {
	ID         uint   `gorm:"column:id;primaryKey"`
	ObjectType string `gorm:"column:object_type;type:varchar(100);uniqueIndex:idx_cf_object_field;not null"`
	ObjectID   uint   `gorm:"column:object_id;uniqueIndex:idx_cf_object_field;not null"`
	Name       string `gorm:"column:name;type:varchar(50);uniqueIndex:idx_cf_object_field;not null"`
	Value      string `gorm:"column:value;type:text;not null"`
}

func (CustomFieldValue) TableName() string {
	return "custom_field_values"
}

// All lists every inventory model, in migration order.
func All() []any {
	return []any{
		&ClusterType{},
		&Cluster{},
		&VirtualMachine{},
		&VMInterface{},
		&IPAddress{},
		&VirtualDisk{},
		&JournalEntry{},
		&CustomFieldValue{},
		&Tag{},
		&MachineTag{},
	}
}
