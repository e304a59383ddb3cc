// Package naming generates collision-free identifiers for uploaded,
// intermediate and produced artifacts.
//
// Identifiers are random version 4 UUIDs rendered as 32 hex characters, so
// concurrent callers never need to coordinate or inspect the storage
// directories.
package naming
