// Package stores provides the Redis-backed, short-lived record store for the
// SMS two-factor login challenge.
//
// # Design
//
// The store persists a versioned, binary-encoded record in Redis with a TTL,
// keyed by account number so that issuing a new challenge atomically replaces
// the prior one. The failure path (RecordFailure) uses WATCH/MULTI optimistic
// transactions with automatic retry on contention. Records are single-use:
// deleted on successful verification, and enforce an attempt bound to resist
// brute force.
//
// # What this package must NOT do
//
//   - Generate codes or make authentication decisions — the Engine owns those.
//   - Import storeauth or any sibling internal package.
//   - Log challenge codes.
package stores
