// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs, reusing
// the HTTP API's wire types where the payloads coincide so both surfaces
// report identical shapes. The server embeds the daemon while the client
// fails fast with a short dial timeout when the daemon is offline.
//
// Reuse these types when adding new RPC endpoints to keep the protocol
// stable and compatible with existing command implementations.
package ipc
