// Package nationbuilder provides a client for the NationBuilder API v1:
// https://nationbuilder.com/api_documentation
//
// Features:
// - OAuth token exchange and refresh, rate-limit backoff and retries.
// - Typed people, donation and webhook endpoints with iterator-based pagination.
// - Receiving webhook deliveries through an [http.Handler].
package nationbuilder
