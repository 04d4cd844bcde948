// Package utils provides helpers shared across packages that do not belong to a feature.
// It holds the parsers for Incus resource notations (sizes and CPU limits) and
// the byte formatter used in journal text.
package utils
