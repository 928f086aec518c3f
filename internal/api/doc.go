// Package api defines the wire-format types, converters and client for the
// daemon HTTP API. It translates stored projects and workflow state into
// transport-friendly DTOs so the CLI and other consumers can render them
// without coupling to internal types.
//
// DTOs use camelCase JSON tags. Statuses are exposed as lowercase strings and
// timestamps use RFC3339 with milliseconds.
package api
