// Package orchestrate sequences collection across many entities and many
// sources under a rate-limit, backoff, and partial-failure policy,
// feeding every observation through the reconciliation engine.
package orchestrate

import (
	"context"

	"github.com/bankatlas/bankatlas/pkg/entities"
	"github.com/bankatlas/bankatlas/pkg/sources"
)

// Target identifies one entity a batch should collect data for.
type Target struct {
	EntityKey string `json:"entity_key,omitempty"`
	Name      string `json:"name,omitempty"`
	CertID    int    `json:"cert_id,omitempty"`
}

// Collector is the per-source collection contract. The orchestrator
// treats every collector identically regardless of transport: REST
// client, file parse, or anything else that can yield observations.
type Collector interface {
	// Source returns the source identifier whose reliability weight tags
	// the returned observations.
	Source() sources.Type

	// Fetch returns zero or more observations for the target. A returned
	// error fails only this (target, source) attempt, never the batch.
	Fetch(ctx context.Context, target Target) ([]entities.Observation, error)
}

// CollectorFunc adapts a function to the Collector interface.
type CollectorFunc struct {
	Src sources.Type
	Fn  func(ctx context.Context, target Target) ([]entities.Observation, error)
}

// Source implements Collector.
func (c CollectorFunc) Source() sources.Type {
	return c.Src
}

// Fetch implements Collector.
func (c CollectorFunc) Fetch(ctx context.Context, target Target) ([]entities.Observation, error) {
	return c.Fn(ctx, target)
}
