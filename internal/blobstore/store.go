// Package blobstore persists JSON artifacts (raw audits in, pipeline
// results out) at deterministic paths.
package blobstore

import "context"

// Store reads and writes JSON documents keyed by path, e.g.
// tickets/printerpix.com/2026-02-16/tickets.json.
type Store interface {
	WriteJSON(ctx context.Context, path string, value any) error
	ReadJSON(ctx context.Context, path string, out any) error
	Close(ctx context.Context) error
}

// SingleDomainPath is where a single-domain run's result artifact lives.
func SingleDomainPath(domain, auditDate string) string {
	return "tickets/" + domain + "/" + auditDate + "/tickets.json"
}

// CombinedPath is where a cross-domain run's result artifact lives.
func CombinedPath(runDate string) string {
	return "tickets/combined/" + runDate + "/tickets.json"
}
