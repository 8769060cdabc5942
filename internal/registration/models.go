// Package registration holds the canonical registrant model and the payment
// status vocabulary shared by the sync pipeline, the stores, and the draw
// module.
package registration

import "time"

// Registrant is the locally authoritative representation of a participant.
// Number is dense (1..N) per owner after every reconciliation pass and doubles
// as display ID and sort key.
type Registrant struct {
	ID             string        `json:"id"`
	OwnerID        string        `json:"-"`
	Number         int           `json:"number"`
	Name           string        `json:"name"`
	BirthDate      string        `json:"birthDate,omitempty"` // YYYY-MM-DD, empty when unknown
	Age            int           `json:"age"`
	Church         string        `json:"church"`
	District       string        `json:"district"`
	PhotoURL       string        `json:"photoUrl,omitempty"`
	PaymentStatus  PaymentStatus `json:"paymentStatus"`
	IsManual       bool          `json:"isManual"`
	ExternalID     string        `json:"externalId,omitempty"` // set iff IsManual is false
	WalkbandNumber string        `json:"walkbandNumber"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// EligibleForDraw reports whether the registrant may be assigned to a team.
// Pending and cancelled payments block eligibility.
func (r Registrant) EligibleForDraw() bool {
	return r.PaymentStatus != StatusPending && r.PaymentStatus != StatusCancelled
}

// SortField selects the list ordering column.
type SortField string

const (
	SortByNumber SortField = "number"
	SortByName   SortField = "name"
)

// ListOptions filters and orders a registrant listing. Search matches
// case-insensitively over name, number, church and district.
type ListOptions struct {
	Search     string
	SortBy     SortField
	Descending bool
}
