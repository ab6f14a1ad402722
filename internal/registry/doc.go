// Package registry maps job types to the Go handlers that execute them.
//
// A chain names the work of each job with an opaque type string (prefixed
// with the chain namespace when one is set). Modules register a handler per
// type at startup; the local executor looks the handler up for every
// submission it receives.
package registry
