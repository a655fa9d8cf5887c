// Package metrics defines the Prometheus collectors for Tabsplit.
// All collectors register on the default registry and are exposed by the
// server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReceiptsIngested counts parsed receipts accepted at the ingestion
	// boundary, labeled by outcome ("created", "reparsed", "error").
	ReceiptsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tabsplit_receipts_ingested_total",
		Help: "Parsed receipts accepted from the vision parser, by outcome.",
	}, []string{"outcome"})

	// ClaimToggles counts claim mutations, labeled by action
	// ("claim", "unclaim", "assign").
	ClaimToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tabsplit_claim_toggles_total",
		Help: "Item claim mutations, by action.",
	}, []string{"action"})

	// ShareCodesIssued counts GetOrCreate results, labeled by outcome
	// ("new", "reused").
	ShareCodesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tabsplit_share_codes_issued_total",
		Help: "Share codes handed out, by outcome.",
	}, []string{"outcome"})

	// ShareCodeCollisions counts redraws caused by an active code collision.
	ShareCodeCollisions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tabsplit_share_code_collisions_total",
		Help: "Redraws caused by a candidate code colliding with an active one.",
	})

	// ShareCodeCollisionAccepts counts codes accepted after exhausting the
	// redraw budget. Nonzero values mean two receipts may briefly share a
	// code.
	ShareCodeCollisionAccepts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tabsplit_share_code_collision_accepts_total",
		Help: "Codes accepted while still colliding, after exhausting redraws.",
	})

	// ShareCodeResolves counts Resolve lookups, labeled by result
	// ("hit", "miss").
	ShareCodeResolves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tabsplit_share_code_resolves_total",
		Help: "Share code lookups, by result.",
	}, []string{"result"})
)
