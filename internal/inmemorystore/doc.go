// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the statestore.Store interface.
//
// # Purpose
//
// This package backs runs that live inside a single process: the CLI, local
// development and the engine's tests. Entries carry an absolute expiry and
// are treated as absent once it passes, so TTL behaviour matches the
// persistent backends.
//
// # Concurrency Model
//
// A single mutex guards the map. CompareAndSet must observe and replace an
// entry in one step, which sync.Map cannot express for byte-slice values
// without a retry loop, so the whole store serializes on one lock.
//
// # Expiry
//
// Expired entries are dropped lazily on access. Long-lived processes may
// call Sweep periodically to reclaim memory held by runs nobody touches.
//
// For state shared between processes use internal/pgstore.
package inmemorystore
