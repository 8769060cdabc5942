// Package draw deals registrants into teams for gincana-style activities.
// Assignment is pure: the same collection and seed always yield the same
// teams.
package draw

import (
	"math/rand"
	"sort"

	"eventdesk/internal/registration"
	dErrors "eventdesk/pkg/domain-errors"
)

// Team is one drawn team. Numbers start at 1.
type Team struct {
	Number  int                       `json:"number"`
	Members []registration.Registrant `json:"members"`
}

// Assign shuffles the eligible registrants with the seeded source and deals
// them round-robin into teamCount teams. Registrants with a pending or
// cancelled payment are excluded before the shuffle.
func Assign(regs []registration.Registrant, teamCount int, seed int64) ([]Team, error) {
	if teamCount < 1 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "team count must be at least 1")
	}

	eligible := make([]registration.Registrant, 0, len(regs))
	for _, reg := range regs {
		if reg.EligibleForDraw() {
			eligible = append(eligible, reg)
		}
	}
	// Input order must not leak into the outcome, so fix it before shuffling.
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].Number < eligible[j].Number })

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})

	teams := make([]Team, teamCount)
	for i := range teams {
		teams[i] = Team{Number: i + 1, Members: []registration.Registrant{}}
	}
	for i, reg := range eligible {
		t := i % teamCount
		teams[t].Members = append(teams[t].Members, reg)
	}
	return teams, nil
}
