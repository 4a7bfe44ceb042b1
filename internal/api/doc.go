// Package api serves the bridge over HTTP.
//
//	GET  /api/v1/health                 liveness and version
//	GET  /api/v1/devices                configured devices with receive counters
//	POST /api/v1/devices/{name}/send    transmit {"code": N}
//	GET  /api/v1/history                recent codes (?device=&direction=&limit=)
//	GET  /api/v1/history/{id}           one recorded code
//	GET  /api/v1/ws                     live code.received / code.sent events
//
// Errors are JSON objects with status, code and message fields.
package api
