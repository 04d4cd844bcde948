// Package middleware groups the Fiber handlers that wrap the sync API.
//
// # Subpackages
//
//   - rayid: tags each request with an X-Ray-ID, reusing the caller's value
//     when present, and stores it in the request locals so log lines and
//     sync runs triggered over HTTP carry the same id.
//   - auth: checks the API key from X-API-Key or an Authorization Bearer
//     token. An empty key turns the check off; Skip prefixes such as
//     /swagger and /metrics stay public.
//
// cmd/start.go installs rayid first so rejected requests are still tagged.
package middleware
