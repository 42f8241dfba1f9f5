// Package handlers implements the HTTP API for the content platform.
//
// All /api responses use a uniform envelope: {"success":true,"data":...} on
// success and {"success":false,"error":...,"code":...,"details":...} on
// failure, with a machine-readable code matching the HTTP status.
package handlers
