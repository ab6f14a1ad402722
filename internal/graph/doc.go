// Package graph holds the immutable Graph Definition of a job chain: the
// ordered set of jobs, their executor targets and parameter templates, and
// the terminal job whose completion ends a run.
//
// Dependency edges are never declared. They are derived from the JobRef
// placeholders found anywhere in a job's parameters, so a job with no JobRef
// is a root and is dispatched as soon as a run starts.
//
// A Definition is safe for concurrent use once built; nothing mutates it.
package graph
