package draw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventdesk/internal/registration"
)

func collection() []registration.Registrant {
	return []registration.Registrant{
		{ID: "a", Number: 1, Name: "Ana", PaymentStatus: registration.StatusPaid},
		{ID: "b", Number: 2, Name: "Bruno", PaymentStatus: registration.StatusPending},
		{ID: "c", Number: 3, Name: "Carla", PaymentStatus: registration.StatusManual},
		{ID: "d", Number: 4, Name: "Diego", PaymentStatus: registration.StatusCancelled},
		{ID: "e", Number: 5, Name: "Elisa", PaymentStatus: registration.StatusPaid},
		{ID: "f", Number: 6, Name: "Fabio", PaymentStatus: registration.StatusPaid},
	}
}

func memberIDs(teams []Team) []string {
	var ids []string
	for _, t := range teams {
		for _, m := range t.Members {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

func TestAssignExcludesPendingAndCancelled(t *testing.T) {
	teams, err := Assign(collection(), 2, 42)
	require.NoError(t, err)

	ids := memberIDs(teams)
	assert.Len(t, ids, 4)
	assert.NotContains(t, ids, "b")
	assert.NotContains(t, ids, "d")
}

func TestAssignDealsRoundRobin(t *testing.T) {
	teams, err := Assign(collection(), 3, 42)
	require.NoError(t, err)
	require.Len(t, teams, 3)

	// Four eligible registrants over three teams: sizes 2, 1, 1.
	assert.Len(t, teams[0].Members, 2)
	assert.Len(t, teams[1].Members, 1)
	assert.Len(t, teams[2].Members, 1)
	assert.Equal(t, 1, teams[0].Number)
	assert.Equal(t, 3, teams[2].Number)
}

func TestAssignIsDeterministicPerSeed(t *testing.T) {
	first, err := Assign(collection(), 2, 7)
	require.NoError(t, err)
	second, err := Assign(collection(), 2, 7)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Input order must not change the outcome for a fixed seed.
	shuffledInput := collection()
	shuffledInput[0], shuffledInput[5] = shuffledInput[5], shuffledInput[0]
	third, err := Assign(shuffledInput, 2, 7)
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestAssignRejectsInvalidTeamCount(t *testing.T) {
	_, err := Assign(collection(), 0, 1)
	require.Error(t, err)
}

func TestAssignEmptyCollection(t *testing.T) {
	teams, err := Assign(nil, 2, 1)
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Empty(t, teams[0].Members)
	assert.Empty(t, teams[1].Members)
}
