// Package audit records who changed a registrant collection, how, and with
// what outcome. Events are append-only and transport-agnostic so stores and
// sinks can fan out.
package audit

import "time"

// Event is emitted from domain logic to capture key actions.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	OwnerID   string    `json:"ownerId"`
	Action    string    `json:"action"`  // "reconcile", "registrant.create", "registrant.update", "registrant.delete"
	Outcome   string    `json:"outcome"` // "success" or "failure"
	Detail    string    `json:"detail,omitempty"`
	Count     int       `json:"count"`
}

// Outcome values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
