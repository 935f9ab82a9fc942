// Package cache holds the short-TTL report cache. Reports are re-derived from
// the ledger on every miss; the cache only smooths repeated dashboard polls.
// Write-side services invalidate per organization so stale rollups never
// outlive a mutation.
package cache

import (
	"context"
	"time"
)

// ReportCache stores serialized report payloads keyed by organization and
// report name. Implementations must treat a miss and an error identically
// from the caller's perspective: reports always fall back to the ledger.
type ReportCache interface {
	Get(ctx context.Context, orgID, key string) ([]byte, bool, error)
	Set(ctx context.Context, orgID, key string, payload []byte, ttl time.Duration) error
	// InvalidateOrg drops every cached report for the organization.
	InvalidateOrg(ctx context.Context, orgID string) error
}

// NoopReportCache disables caching; used in tests and when redis is not
// configured.
type NoopReportCache struct{}

func (NoopReportCache) Get(ctx context.Context, orgID, key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(ctx context.Context, orgID, key string, payload []byte, ttl time.Duration) error {
	return nil
}

func (NoopReportCache) InvalidateOrg(ctx context.Context, orgID string) error {
	return nil
}
