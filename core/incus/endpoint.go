package incus

import "time"

// ConnectionType selects the transport used to reach an Incus daemon.
type ConnectionType string

const (
	// ConnectionUnix talks to the local daemon over its unix socket.
	ConnectionUnix ConnectionType = "unix"
	// ConnectionHTTPS talks to a remote daemon with a TLS client certificate.
	ConnectionHTTPS ConnectionType = "https"
)

// DefaultSocketPath is where Incus listens locally unless configured otherwise.
const DefaultSocketPath = "/var/lib/incus/unix.socket"

// DefaultTimeout bounds every request to the daemon.
const DefaultTimeout = 30 * time.Second

// Endpoint describes how to reach one Incus daemon.
// Certificate fields are file paths; the files are read when dialing.
type Endpoint struct {
	Name           string
	Type           ConnectionType
	SocketPath     string
	URL            string
	ClientCertPath string
	ClientKeyPath  string
	CACertPath     string
	VerifyTLS      bool
	Project        string
}
