// Package httpapi exposes the task façade over HTTP.
//
// The server accepts analysis requests, serves task status and results for
// polling clients, and reports daemon health. Handlers translate store and
// dispatcher errors into a stable JSON error envelope; infrastructure
// failures surface as 5xx responses and are never written onto task rows.
package httpapi
