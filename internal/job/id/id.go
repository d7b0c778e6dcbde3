// Package id provides unique identifier generation for requests.
package id

import "github.com/google/uuid"

// Prefix starts every generated ID.
const Prefix = "req-"

// Generate creates a new unique request ID.
// The ID doubles as the name of the request's storage namespace, so it only
// contains characters that are safe in a path segment.
// Example: req-9b2f6c1e-3d4a-4f6b-8e1a-0c5d7f3b2a91
func Generate() string {
	return Prefix + uuid.NewString()
}
