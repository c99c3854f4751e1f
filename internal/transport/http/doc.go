// Package http implements the read-only HTTP handlers of the score API.
// Handlers stay thin: they parse and validate parameters, call a service,
// and render JSON.
//
// # Routes
//
//	GET /api/health                                        liveness summary
//	GET /api/health/ready                                  readiness, 503 when not ready
//	GET /api/health/live                                   runtime stats
//	GET /api/version                                       build and format versions
//	GET /api/files                                         configured categories
//	GET /api/files/{category}/sheets/{sheet}?from=&to=     one score sheet
//	GET /api/files/{category}/sheets/{sheet}/entities/{code}
//
// Dates in from and to use the YYYYMMDD form. Undefined cells render as null.
//
// # Error Handling
//
// All errors follow RFC 7807 Problem Details:
//
//	{
//	    "type": "/errors/validation",
//	    "title": "Bad Request",
//	    "status": 400,
//	    "detail": "Request validation failed",
//	    "instance": "/api/files/US_TECH/sheets/s20",
//	    "trace_id": "..."
//	}
//
// # Testing
//
// Handlers are tested with httptest against a mock ScoreServiceInterface.
package http
