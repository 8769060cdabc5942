package reconcile

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventdesk/internal/extsource"
	"eventdesk/internal/registration"
)

func extRecord(id, name, status string) extsource.Record {
	return extsource.Record{
		ExternalID: id,
		FullName:   name,
		RawStatus:  status,
		District:   "Leste",
		Church:     "Central",
		CreatedAt:  "2026-01-15T10:00:00Z",
	}
}

func manualReg(id string, number int, name string) registration.Registrant {
	return registration.Registrant{
		ID:            id,
		OwnerID:       "owner-1",
		Number:        number,
		Name:          name,
		PaymentStatus: registration.StatusManual,
		IsManual:      true,
	}
}

func TestMergeNumbersAreDense(t *testing.T) {
	external := []extsource.Record{
		extRecord("e1", "Ana", "approved"),
		extRecord("e2", "Bia", "CANCELED"),
		extRecord("e3", "Caio", "pending"),
	}
	manual := []registration.Registrant{
		manualReg("m1", 9, "Manual Nine"),
		manualReg("m2", 4, "Manual Four"),
	}

	merged := Merge("owner-1", external, manual)
	require.Len(t, merged, 5)

	for i, reg := range merged {
		assert.Equal(t, i+1, reg.Number)
		assert.Equal(t, strconv.Itoa(reg.Number), reg.WalkbandNumber)
	}
}

func TestMergeStatusMappingPreservesOrder(t *testing.T) {
	external := []extsource.Record{
		extRecord("e1", "Ana", "approved"),
		extRecord("e2", "Bia", "CANCELED"),
		extRecord("e3", "Caio", "pending"),
	}

	merged := Merge("owner-1", external, nil)
	require.Len(t, merged, 3)
	assert.Equal(t, registration.StatusPaid, merged[0].PaymentStatus)
	assert.Equal(t, registration.StatusCancelled, merged[1].PaymentStatus)
	assert.Equal(t, registration.StatusPending, merged[2].PaymentStatus)
}

func TestMergePreservesManualRecordsAndRelativeOrder(t *testing.T) {
	external := []extsource.Record{extRecord("e1", "Ana", "PAGO")}
	manual := []registration.Registrant{
		manualReg("m-late", 7, "Later"),
		manualReg("m-early", 2, "Earlier"),
	}

	merged := Merge("owner-1", external, manual)
	require.Len(t, merged, 3)

	// Manual records follow the external block, ordered by their previous
	// numbers, never dropped.
	assert.Equal(t, "m-early", merged[1].ID)
	assert.Equal(t, 2, merged[1].Number)
	assert.Equal(t, "m-late", merged[2].ID)
	assert.Equal(t, 3, merged[2].Number)
	for _, reg := range merged[1:] {
		assert.True(t, reg.IsManual)
		assert.Empty(t, reg.ExternalID)
	}
}

func TestMergeZeroExternalRenumbersManualFromOne(t *testing.T) {
	manual := []registration.Registrant{
		manualReg("m1", 5, "A"),
		manualReg("m2", 8, "B"),
	}
	merged := Merge("owner-1", nil, manual)
	require.Len(t, merged, 2)
	assert.Equal(t, 1, merged[0].Number)
	assert.Equal(t, 2, merged[1].Number)
}

func TestMergeExternalInvariants(t *testing.T) {
	merged := Merge("owner-1", []extsource.Record{extRecord("e9", "Ana", "xyz")}, nil)
	require.Len(t, merged, 1)
	reg := merged[0]
	assert.False(t, reg.IsManual)
	assert.Equal(t, "e9", reg.ExternalID)
	// Unparseable statuses never drop a registrant; they land on PENDING.
	assert.Equal(t, registration.StatusPending, reg.PaymentStatus)
}

func TestMergeIsIdempotent(t *testing.T) {
	external := []extsource.Record{
		extRecord("e1", "Ana", "approved"),
		extRecord("e2", "Bia", "pending"),
	}
	manual := []registration.Registrant{manualReg("m1", 3, "Manual")}

	first := Merge("owner-1", external, manual)
	second := Merge("owner-1", external, manual)
	assert.Equal(t, first, second)

	// Feeding the merged manual subset back in changes nothing either.
	var manualAgain []registration.Registrant
	for _, reg := range first {
		if reg.IsManual {
			manualAgain = append(manualAgain, reg)
		}
	}
	third := Merge("owner-1", external, manualAgain)
	assert.Equal(t, first, third)
}
