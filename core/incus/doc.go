// Package incus talks to the Incus REST API.
//
// # Transports
//
// Dial builds a Client for one Endpoint. Two transports are supported and selected
// by Endpoint.Type:
//   - unix: the local daemon socket, no credentials
//   - https: a remote daemon authenticated with a TLS client certificate
//
// Certificate and key files are read and parsed by Dial, so a broken path fails
// before any request is made. Their contents never appear in errors or logs.
// Both transports expose the same Requester interface. Close releases the pooled
// connections at the end of a sync pass.
//
// # Fetching
//
// Handshake reads the server description and rejects untrusted clients.
// Fetcher lists the instances of a host and reads detail and runtime state for
// each of them, plus best-effort storage volume sizes. A failed listing is fatal
// for the host; a failed detail call skips only the affected instance.
//
// # Errors
//
//   - ConnectionError: transport or authentication failure
//   - FetchError: a read failed (listing, detail or cluster status)
//   - APIError: the daemon answered with an error envelope
//   - DetailError: one skipped instance
package incus
