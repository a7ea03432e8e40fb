// Package api exposes the gateway over HTTP.
//
// Routes:
//   - GET|POST /api/v1/invoke/{code}: call an API
//   - GET /api/v1/apis, GET /api/v1/apis/{code}: list and describe definitions (private networks only)
//   - GET /api/v1/health, GET /api/v1/status
//   - GET /metrics when enabled (private networks only)
//
// # Response Format
//
// All successful responses wrap data in a "data" field:
//
//	{
//	  "data": { /* response payload */ }
//	}
//
// Error responses use the following format:
//
//	{
//	  "error": {
//	    "code": "ERROR_CODE",
//	    "message": "Human-readable error message",
//	    "request_id": "uuid",
//	    "details": { /* optional context */ }
//	  }
//	}
//
// Pipeline failures map to statuses as follows: unknown code 404, invalid
// parameters 400, caller not allowlisted 403, no backend host 503, invalid
// metadata or unassemblable results 500 with a generic message.
package api
