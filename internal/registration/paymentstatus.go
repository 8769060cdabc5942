package registration

import "strings"

// PaymentStatus is the closed status enumeration. Anything the external
// source sends that cannot be normalized lands on StatusPending rather than
// dropping the registrant.
type PaymentStatus string

const (
	StatusPaid      PaymentStatus = "PAID"
	StatusPending   PaymentStatus = "PENDING"
	StatusCancelled PaymentStatus = "CANCELLED"
	StatusManual    PaymentStatus = "MANUAL"
)

// AllStatuses lists the closed set in a stable order.
var AllStatuses = []PaymentStatus{StatusPaid, StatusPending, StatusCancelled, StatusManual}

// statusSynonyms maps each canonical status to the upstream spellings known
// to appear in external sources. Used both for collapsing fetched values and
// for expanding status filters into query predicates.
var statusSynonyms = map[PaymentStatus][]string{
	StatusPaid:      {"PAID", "APPROVED", "PAGO", "CONFIRMED", "CONFIRMADO"},
	StatusPending:   {"PENDING", "PENDENTE", "AGUARDANDO", "WAITING"},
	StatusCancelled: {"CANCELLED", "CANCELED", "CANCELADO"},
}

// Valid reports membership in the closed set.
func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusPaid, StatusPending, StatusCancelled, StatusManual:
		return true
	}
	return false
}

// sanitizeStatus strips everything outside printable ASCII, then uppercases
// and trims. External transports have been observed to smuggle control bytes
// and mojibake into status columns.
func sanitizeStatus(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= 0x20 && r <= 0x7e {
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(strings.TrimSpace(b.String()))
}

// NormalizeStatus maps an arbitrary status string onto the closed set. Total
// over all inputs, including empty. Substring checks run in priority order:
// PAID tokens must win before the generic fallback because upstream values
// may embed localized text around the core token.
func NormalizeStatus(raw string) PaymentStatus {
	s := sanitizeStatus(raw)
	switch {
	case strings.Contains(s, "PAID") || strings.Contains(s, "PAGO"):
		return StatusPaid
	case strings.Contains(s, "CANCEL"):
		return StatusCancelled
	case strings.Contains(s, "MANUAL"):
		return StatusManual
	case strings.Contains(s, "PEND"):
		return StatusPending
	}
	if st := PaymentStatus(s); st.Valid() {
		return st
	}
	return StatusPending
}

// MapExternalStatus collapses a known upstream synonym onto its canonical
// status before falling back to NormalizeStatus. This is the mapping the
// reconciliation pass applies to fetched records.
func MapExternalStatus(raw string) PaymentStatus {
	s := sanitizeStatus(raw)
	for canonical, synonyms := range statusSynonyms {
		for _, syn := range synonyms {
			if s == syn {
				return canonical
			}
		}
	}
	return NormalizeStatus(raw)
}

// SynonymsFor returns the upstream spellings for a canonical status, for use
// in case-insensitive query predicates. Unknown statuses return only their
// own spelling.
func SynonymsFor(status PaymentStatus) []string {
	if syns, ok := statusSynonyms[status]; ok {
		out := make([]string, len(syns))
		copy(out, syns)
		return out
	}
	return []string{string(status)}
}
