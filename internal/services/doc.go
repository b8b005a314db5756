// Package services defines request-scoped context annotations shared by the
// HTTP surface, the matching engine, and structured logging.
//
// Handlers stamp each request with a correlation identifier, then the engine
// adds the resolved visitor id and match type as the pipeline settles them.
// Logging extracts whatever is present, so a single log line can be traced
// back to the request and visitor it belongs to without plumbing extra
// arguments through every call.
package services
