// Package app contains the core application logic. It wires the loader,
// state store, notifiers, executor and engine together and drives a single
// chain run to completion, decoupled from any specific entrypoint like a
// CLI or server.
package app
