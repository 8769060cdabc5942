package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventdesk/pkg/requestcontext"
)

type failingSink struct{ calls int }

func (s *failingSink) Publish(context.Context, Event) error {
	s.calls++
	return errors.New("broker down")
}

func TestEmitFillsDefaultsAndPersists(t *testing.T) {
	store := NewMemoryStore()
	pub := NewPublisher(store, nil)

	fixed := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), fixed)

	err := pub.Emit(ctx, Event{OwnerID: "owner-1", Action: "reconcile", Outcome: OutcomeSuccess, Count: 12})
	require.NoError(t, err)

	events, err := pub.List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, fixed, events[0].Timestamp)
	assert.Equal(t, 12, events[0].Count)
}

func TestEmitSurvivesSinkFailure(t *testing.T) {
	store := NewMemoryStore()
	sink := &failingSink{}
	pub := NewPublisher(store, nil, sink)

	err := pub.Emit(context.Background(), Event{OwnerID: "owner-1", Action: "manual_create", Outcome: OutcomeSuccess})
	require.NoError(t, err)
	assert.Equal(t, 1, sink.calls)
}

func TestListIsOwnerScopedNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	pub := NewPublisher(store, nil)
	ctx := context.Background()

	require.NoError(t, pub.Emit(ctx, Event{OwnerID: "owner-1", Action: "a"}))
	require.NoError(t, pub.Emit(ctx, Event{OwnerID: "owner-2", Action: "b"}))
	require.NoError(t, pub.Emit(ctx, Event{OwnerID: "owner-1", Action: "c"}))

	events, err := pub.List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "c", events[0].Action)
	assert.Equal(t, "a", events[1].Action)
}
