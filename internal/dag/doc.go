// Package dag builds the explicit dependency graph of a chain definition and
// checks it before any run starts: every JobRef must name a declared job,
// no job may reference itself, and the graph must be acyclic.
//
// The engine never consults this package. Its readiness checks work from
// parameters alone, so a graph that skipped validation still runs, and a
// cyclic part of it simply never becomes ready.
package dag
