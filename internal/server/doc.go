// Package server provides HTTP routing, middleware and the JSON API for the
// playlist tracker.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first),
// following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with
// method filtering.
//
// # API
//
// [TrackerHandler] serves the tracker endpoints:
//   - POST /api/upcs — submit a batch of codes for an immediate check
//   - GET /api/hits — all recorded playlist placements, most recent first
//   - GET /api/queue — codes still awaiting a scheduled check
//
// Handlers implement the [Handler] interface, which wraps the stdlib handler
// interface and adds routes, allowing one handler to encapsulate several
// related route definitions.
package server
