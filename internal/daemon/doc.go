// Package daemon coordinates the long-running Whorl process.
//
// It wires configuration, the visitor store, and the matching engine into a
// single lifecycle with flock-based locking to prevent multiple instances,
// and serves the HTTP identification API while running. IPC control arrives
// through the ipc package, which calls back into the daemon for status,
// stats, and maintenance operations.
//
// Keep orchestration logic here: identification semantics belong to the
// matching package and persistence to visitors, while the daemon focuses on
// startup, shutdown, and high level coordination.
package daemon
