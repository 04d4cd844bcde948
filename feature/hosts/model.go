package hosts

import (
	"time"

	"incus-sync/core/incus"
)

// Host is one Incus endpoint registered by an operator.
// Certificate fields hold file paths only.
type Host struct {
	ID               uint      `gorm:"column:id;primaryKey" json:"id"`
	Name             string    `gorm:"column:name;type:varchar(100);uniqueIndex;not null" json:"name" validate:"required,max=100,hostname_rfc1123"`
	ConnectionType   string    `gorm:"column:connection_type;type:varchar(10);not null" json:"connection_type" validate:"required,oneof=unix https"`
	SocketPath       string    `gorm:"column:socket_path;type:varchar(255)" json:"socket_path,omitempty" validate:"omitempty,startswith=/"`
	URL              string    `gorm:"column:https_url;type:varchar(255)" json:"https_url,omitempty" validate:"required_if=ConnectionType https,omitempty,url,startswith=https://"`
	ClientCertPath   string    `gorm:"column:client_cert_path;type:varchar(255)" json:"client_cert_path,omitempty" validate:"required_if=ConnectionType https,omitempty,startswith=/"`
	ClientKeyPath    string    `gorm:"column:client_key_path;type:varchar(255)" json:"client_key_path,omitempty" validate:"required_if=ConnectionType https,omitempty,startswith=/"`
	CACertPath       string    `gorm:"column:ca_cert_path;type:varchar(255)" json:"ca_cert_path,omitempty" validate:"omitempty,startswith=/"`
	VerifyTLS        bool      `gorm:"column:verify_tls" json:"verify_tls"`
	Project          string    `gorm:"column:project;type:varchar(100)" json:"project,omitempty"`
	Enabled          bool      `gorm:"column:enabled" json:"enabled"`
	DefaultClusterID *uint     `gorm:"column:default_cluster_id" json:"default_cluster_id,omitempty"`
	ClusterName      string    `gorm:"column:cluster_name;type:varchar(100)" json:"cluster_name,omitempty" validate:"max=100"`
	Description      string    `gorm:"column:description;type:varchar(200)" json:"description,omitempty"`
	CreatedAt        time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Host) TableName() string {
	return "incus_hosts"
}

// Endpoint returns the connection settings of the host.
func (h Host) Endpoint() incus.Endpoint {
	return incus.Endpoint{
		Name:           h.Name,
		Type:           incus.ConnectionType(h.ConnectionType),
		SocketPath:     h.SocketPath,
		URL:            h.URL,
		ClientCertPath: h.ClientCertPath,
		ClientKeyPath:  h.ClientKeyPath,
		CACertPath:     h.CACertPath,
		VerifyTLS:      h.VerifyTLS,
		Project:        h.Project,
	}
}

// Address returns where the host is reached, for display.
func (h Host) Address() string {
	if h.ConnectionType == string(incus.ConnectionHTTPS) {
		return h.URL
	}
	if h.SocketPath == "" {
		return "unix://" + incus.DefaultSocketPath
	}
	return "unix://" + h.SocketPath
}
