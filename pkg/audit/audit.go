// Package audit records the compliance trail of plan compilation: how each
// well's field resolution was satisfied, whether the policy was complete,
// and what diagnostics the plan carried. Events are append-only and
// hash-stamped so a filing reviewer can verify the trail was not edited
// after the fact.
//
// The engine records decisions, not plans; plan persistence belongs to the
// callers.
package audit

import (
	"context"
	"time"
)

// Event is one compile's compliance-trail entry.
type Event struct {
	ID   string    `json:"id"`
	Time time.Time `json:"time"`

	API14         string `json:"api14,omitempty"`
	PolicyID      string `json:"policy_id"`
	PolicyVersion string `json:"policy_version"`

	District string `json:"district,omitempty"`
	County   string `json:"county,omitempty"`
	Field    string `json:"field,omitempty"`

	ResolutionMethod  string   `json:"resolution_method"`
	MatchedField      string   `json:"matched_field,omitempty"`
	MatchedInCounty   string   `json:"matched_in_county,omitempty"`
	NearestDistanceKM *float64 `json:"nearest_distance_km,omitempty"`

	PolicyComplete    bool     `json:"policy_complete"`
	IncompleteReasons []string `json:"incomplete_reasons,omitempty"`

	PlanID         string `json:"plan_id,omitempty"`
	StepCount      int    `json:"step_count"`
	ViolationCount int    `json:"violation_count"`

	// PayloadHash is the SHA-256 of the canonical event payload, set by the
	// recorder for tamper evidence.
	PayloadHash string `json:"payload_hash,omitempty"`
}

// Query filters stored events.
type Query struct {
	API14    string
	PolicyID string
	District string
	Since    time.Time
	Until    time.Time
	Limit    int
	Offset   int
}

// Storage is a backend for the compliance trail.
type Storage interface {
	// Store persists one event.
	Store(ctx context.Context, event *Event) error

	// Query retrieves events matching the filters, newest first.
	Query(ctx context.Context, query *Query) ([]*Event, error)

	// Prune deletes events older than the cutoff and returns how many were
	// removed.
	Prune(ctx context.Context, olderThan time.Time) (int64, error)

	// Close releases backend resources.
	Close() error
}
