// Package api implements the subset of the Sentry web API used by
// sentry-cli.
//
// # Endpoints
//
// Debug information files:
//   - GET /api/0/projects/{org}/{project}/files/dsyms/ - List uploaded files
//   - POST /api/0/projects/{org}/{project}/files/dsyms/ - Upload a file (multipart, field "file")
//
// # Authentication
//
// Requests carry "Authorization: Bearer <token>" when a token is configured.
//
// # Error Handling
//
// Non-2xx responses are returned as *clierror.CLIError values: 401 and 403
// map to NOT_AUTHORIZED, 404 to PROJECT_NOT_FOUND, 429 to RATE_LIMITED, and
// anything else to API_ERROR. Transport failures map to CONNECTION_FAILED.
package api
