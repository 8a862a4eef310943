// Package server exposes the album sync engine over HTTP.
//
// # Routes
//
//	POST /albums/sync              start a background sync (202, or 409 while the album is busy)
//	GET  /albums/mappings?album_id= stored mappings and the last run of an album
//	GET  /tracks/status?id=        live state plus the stored mapping of one track
//	GET  /status/stream            server-sent events for every track state change
//
// # Router Infrastructure
//
// [BasicRouter] wraps [http.ServeMux] with method filtering and a [Middleware] stack. Middleware is
// applied in reverse order, so the first one added runs first. [Logging] and [Recover] are installed
// by [New].
//
// Custom handlers can implement [Handler], which pairs [http.Handler] with the path patterns it
// serves.
package server
