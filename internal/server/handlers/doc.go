// Package handlers contains the HTTP handlers of the txbridge listeners.
//
// This package provides handlers for:
//   - The forge webhook and conversion callback entry points
//   - Health, version and lifecycle event endpoints (admin)
//   - Shared response helper functions
//
// Pipeline failures are rendered through the foundation/errors HTTP adapter so
// every normalized failure reaches the client as a "Bad Request: ..." body.
package handlers
