// Package integrity provides health checks for a sync deployment.
//
// Where the sync feature reconciles inventory content, this package
// validates what the sync depends on.
//
// # Checks Provided
//
//   - Schema: the inventory and host tables match the GORM models (columns, types).
//   - Credentials: unix sockets exist; client certificates and keys are readable,
//     form a pair and are not close to expiry; keys are not wider than 0640.
//   - Hosts: every enabled host answers the API handshake with a trusted client.
//   - Bucket: the report archive bucket exists (supports ?fix=true).
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/schema : Runs schema check.
//   - GET /integrity/credentials : Runs credentials check.
//   - GET /integrity/hosts : Runs connectivity check.
//   - GET /integrity/bucket : Runs bucket check (supports ?fix=true).
package integrity
