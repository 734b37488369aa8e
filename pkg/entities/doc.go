// Package entities defines the canonical data model for BankAtlas:
// merged bank and person records, the field-value envelope that carries
// per-field provenance, observations produced by collectors, research
// tasks, and collection audit log entries.
package entities
