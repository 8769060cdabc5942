package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventdesk/internal/audit"
	"eventdesk/internal/platform/middleware"
	dErrors "eventdesk/pkg/domain-errors"
	"eventdesk/pkg/testutil"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*middleware.TokenClaims, error) {
	if token != "good-token" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return &middleware.TokenClaims{OwnerID: "owner-1"}, nil
}

type listResponse struct {
	Success bool          `json:"success"`
	Events  []audit.Event `json:"events"`
}

func newRouter(t *testing.T, store *audit.MemoryStore) chi.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := audit.NewPublisher(store, logger)
	h := New(publisher, logger, nil, stubValidator{})
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func TestListReturnsOwnerTrail(t *testing.T) {
	store := audit.NewMemoryStore()
	publisher := audit.NewPublisher(store, nil)
	ctx := context.Background()
	require.NoError(t, publisher.Emit(ctx, audit.Event{
		OwnerID: "owner-1", Action: "reconcile", Outcome: audit.OutcomeSuccess, Count: 12,
	}))
	require.NoError(t, publisher.Emit(ctx, audit.Event{
		OwnerID: "owner-2", Action: "reconcile", Outcome: audit.OutcomeFailure,
	}))

	r := newRouter(t, store)
	req := testutil.NewJSONRequest(t, http.MethodGet, "/audit", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rr := testutil.DoRequest(r, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	resp := testutil.UnmarshalResponse[listResponse](t, rr)
	assert.True(t, resp.Success)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "reconcile", resp.Events[0].Action)
	assert.Equal(t, 12, resp.Events[0].Count)
}

func TestListRequiresAuth(t *testing.T) {
	r := newRouter(t, audit.NewMemoryStore())
	req := testutil.NewJSONRequest(t, http.MethodGet, "/audit", nil)
	rr := testutil.DoRequest(r, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
