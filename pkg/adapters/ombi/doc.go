// Package ombi implements ports.CatalogClient against the Ombi v1 REST API.
//
// Transport failures (connection errors, timeouts) and protocol failures
// (non-2xx answers, undecodable payloads) are returned as *domain.CatalogError.
// Individual malformed records in a result list are skipped with a warning.
package ombi
