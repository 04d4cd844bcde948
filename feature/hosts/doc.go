// Package hosts manages the registry of Incus hosts to synchronize.
//
// A host is either a local unix socket or a remote HTTPS endpoint
// authenticated with a client certificate. Only paths to certificate
// files are stored, never their contents. Hosts are validated with
// go-playground/validator before being written.
//
// # Routes
//
//   - GET /hosts: every registered host
//   - GET /hosts/:name: one host
//   - GET /hosts/:name/test: dial the host and run the API handshake
package hosts
