// Package extsource talks to the external registration database. The schema
// is not ours and drifts per deployment, so table and column names are
// discovered at runtime from candidate lists instead of being hardcoded.
package extsource

import "eventdesk/internal/registration"

// DefaultMissingLookup is the display value for registrants whose district or
// church lookup row is absent upstream.
const DefaultMissingLookup = "Não informado"

// MaxRows caps a single fetch. The ascending created-at ordering below this
// cap is load-bearing: it fixes the dense numbering assigned downstream.
const MaxRows = 5000

// Lot is the pricing/time-window tier a registrant purchased under.
type Lot struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	StartsAt string `json:"startsAt,omitempty"`
	EndsAt   string `json:"endsAt,omitempty"`
}

// Record is one externally-sourced registration, reshaped into the canonical
// intermediate form the reconciler consumes. Ephemeral per fetch.
type Record struct {
	ExternalID string `json:"externalId"`
	FullName   string `json:"fullName"`
	BirthDate  string `json:"birthDate,omitempty"` // YYYY-MM-DD
	Age        int    `json:"age"`
	District   string `json:"district"`
	Church     string `json:"church"`
	PhotoURL   string `json:"photoUrl,omitempty"`
	RawStatus  string `json:"rawStatus"`
	Lot        *Lot   `json:"lot,omitempty"`
	CreatedAt  string `json:"createdAt"` // RFC3339
}

// Filter bounds a fetch. An empty status set, a set equal to {ALL}, or the
// full PAID/PENDING/CANCELLED set all mean "no status restriction".
type Filter struct {
	EventID  string
	Statuses []registration.PaymentStatus
}

// Event is an upstream event row, when an events table exists at all.
type Event struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Column is one described column of an upstream table.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}
