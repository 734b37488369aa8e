package entities

import (
	"time"

	"github.com/bankatlas/bankatlas/pkg/sources"
)

// CollectionStatus is the outcome of one collection attempt.
type CollectionStatus string

// Collection statuses.
const (
	CollectionSuccess CollectionStatus = "success"
	CollectionPartial CollectionStatus = "partial"
	CollectionFailed  CollectionStatus = "failed"
)

// CollectionKind labels what a collection attempt was doing.
type CollectionKind string

// Collection kinds.
const (
	CollectionFullRefresh  CollectionKind = "full_refresh"
	CollectionUpdate       CollectionKind = "update"
	CollectionVerification CollectionKind = "verification"
	CollectionExtraction   CollectionKind = "extraction"
)

// CollectionLogEntry is an immutable audit record of one collection or
// extraction attempt. The log is append-only.
type CollectionLogEntry struct {
	EntityKey      string           `json:"entity_key,omitempty" yaml:"entity_key,omitempty"`
	Source         sources.Type     `json:"source" yaml:"source"`
	Kind           CollectionKind   `json:"kind" yaml:"kind"`
	Status         CollectionStatus `json:"status" yaml:"status"`
	RecordsChanged int              `json:"records_changed" yaml:"records_changed"`
	Errors         int              `json:"errors" yaml:"errors"`
	Duration       time.Duration    `json:"duration" yaml:"duration"`
	Detail         string           `json:"detail,omitempty" yaml:"detail,omitempty"`
	Timestamp      time.Time        `json:"timestamp" yaml:"timestamp"`
}
