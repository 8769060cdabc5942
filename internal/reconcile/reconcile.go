// Package reconcile merges freshly fetched external registrations with
// manually entered records into one densely numbered collection. The merge
// is a pure function of its ordered inputs, which makes repeated runs over
// the same snapshot idempotent.
package reconcile

import (
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"eventdesk/internal/extsource"
	"eventdesk/internal/registration"
)

// idNamespace makes registrant IDs a deterministic function of owner and
// external ID, so re-running the same snapshot yields identical output.
var idNamespace = uuid.MustParse("9a1c3f52-7c18-4c9e-9f2e-5f4bafc21d3a")

// Merge maps external records onto canonical registrants numbered 1..E in
// input order, then appends the manual records renumbered E+1..E+M with
// their relative order preserved. Manual records are never dropped. With
// zero external records the manual set is renumbered from 1.
func Merge(ownerID string, external []extsource.Record, manual []registration.Registrant) []registration.Registrant {
	out := make([]registration.Registrant, 0, len(external)+len(manual))

	for i, rec := range external {
		number := i + 1
		out = append(out, registration.Registrant{
			ID:             uuid.NewSHA1(idNamespace, []byte(ownerID+"/"+rec.ExternalID)).String(),
			OwnerID:        ownerID,
			Number:         number,
			Name:           rec.FullName,
			BirthDate:      rec.BirthDate,
			Age:            rec.Age,
			Church:         rec.Church,
			District:       rec.District,
			PhotoURL:       rec.PhotoURL,
			PaymentStatus:  registration.MapExternalStatus(rec.RawStatus),
			IsManual:       false,
			ExternalID:     rec.ExternalID,
			WalkbandNumber: strconv.Itoa(number),
			CreatedAt:      parseCreatedAt(rec.CreatedAt),
		})
	}

	ordered := make([]registration.Registrant, len(manual))
	copy(ordered, manual)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })
	for i, reg := range ordered {
		number := len(external) + i + 1
		reg.Number = number
		reg.WalkbandNumber = strconv.Itoa(number)
		reg.IsManual = true
		reg.ExternalID = ""
		out = append(out, reg)
	}
	return out
}

func parseCreatedAt(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
