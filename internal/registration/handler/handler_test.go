package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"eventdesk/internal/platform/middleware"
	"eventdesk/internal/registration"
	"eventdesk/internal/registration/service"
	regstore "eventdesk/internal/registration/store"
	dErrors "eventdesk/pkg/domain-errors"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*middleware.TokenClaims, error) {
	if token != "good-token" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return &middleware.TokenClaims{OwnerID: "owner-1"}, nil
}

type RegistrantHandlerSuite struct {
	suite.Suite

	store  *regstore.MemoryStore
	router chi.Router
}

func TestRegistrantHandlerSuite(t *testing.T) {
	suite.Run(t, new(RegistrantHandlerSuite))
}

func (s *RegistrantHandlerSuite) SetupTest() {
	s.store = regstore.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := service.New(s.store, service.WithLogger(logger))
	s.Require().NoError(err)

	h := New(svc, logger, nil, stubValidator{})
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *RegistrantHandlerSuite) request(method, target string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RegistrantHandlerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var resp map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *RegistrantHandlerSuite) seed(names ...string) {
	for i, name := range names {
		s.Require().NoError(s.store.Insert(context.Background(), registration.Registrant{
			ID: name, OwnerID: "owner-1", Number: i + 1, Name: name,
			IsManual: true, PaymentStatus: registration.StatusManual,
		}))
	}
}

func (s *RegistrantHandlerSuite) TestListRequiresAuth() {
	req := httptest.NewRequest(http.MethodGet, "/registrants", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *RegistrantHandlerSuite) TestList() {
	s.Run("returns the owner collection", func() {
		s.SetupTest()
		s.seed("Ana", "Bruno")

		w := s.request(http.MethodGet, "/registrants", nil)
		s.Equal(http.StatusOK, w.Code)
		resp := s.decode(w)
		s.Equal(true, resp["success"])
		s.Len(resp["registrants"], 2)
	})

	s.Run("applies search", func() {
		s.SetupTest()
		s.seed("Ana", "Bruno")

		w := s.request(http.MethodGet, "/registrants?search=bru", nil)
		s.Equal(http.StatusOK, w.Code)
		regs := s.decode(w)["registrants"].([]any)
		s.Require().Len(regs, 1)
		s.Equal("Bruno", regs[0].(map[string]any)["name"])
	})

	s.Run("sorts by name descending", func() {
		s.SetupTest()
		s.seed("Ana", "Carla", "Bruno")

		w := s.request(http.MethodGet, "/registrants?sortBy=name&order=desc", nil)
		s.Equal(http.StatusOK, w.Code)
		regs := s.decode(w)["registrants"].([]any)
		s.Require().Len(regs, 3)
		s.Equal("Carla", regs[0].(map[string]any)["name"])
		s.Equal("Ana", regs[2].(map[string]any)["name"])
	})

	s.Run("rejects unknown sort fields", func() {
		s.SetupTest()
		w := s.request(http.MethodGet, "/registrants?sortBy=age", nil)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *RegistrantHandlerSuite) TestCreate() {
	s.Run("creates a manual registrant", func() {
		s.SetupTest()
		w := s.request(http.MethodPost, "/registrants", service.ManualInput{Name: "Carla"})
		s.Equal(http.StatusCreated, w.Code)

		reg := s.decode(w)["registrant"].(map[string]any)
		s.Equal("Carla", reg["name"])
		s.Equal(float64(1), reg["number"])
		s.Equal(true, reg["isManual"])
		s.Equal(string(registration.StatusManual), reg["paymentStatus"])
	})

	s.Run("rejects a missing name", func() {
		s.SetupTest()
		w := s.request(http.MethodPost, "/registrants", service.ManualInput{Name: "  "})
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal(false, s.decode(w)["success"])
	})
}

func (s *RegistrantHandlerSuite) TestUpdate() {
	s.Run("edits a manual registrant", func() {
		s.SetupTest()
		s.seed("Ana")

		w := s.request(http.MethodPut, "/registrants/Ana", service.ManualInput{Name: "Ana Clara"})
		s.Equal(http.StatusOK, w.Code)
		s.Equal("Ana Clara", s.decode(w)["registrant"].(map[string]any)["name"])
	})

	s.Run("404s for an unknown id", func() {
		s.SetupTest()
		w := s.request(http.MethodPut, "/registrants/ghost", service.ManualInput{Name: "Ghost"})
		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("409s for an externally-synced registrant", func() {
		s.SetupTest()
		s.Require().NoError(s.store.Insert(context.Background(), registration.Registrant{
			ID: "ext", OwnerID: "owner-1", Number: 1, Name: "Ana",
			ExternalID: "10", PaymentStatus: registration.StatusPaid,
		}))

		w := s.request(http.MethodPut, "/registrants/ext", service.ManualInput{Name: "Ana"})
		s.Equal(http.StatusConflict, w.Code)
	})
}

func (s *RegistrantHandlerSuite) TestDelete() {
	s.Run("deletes and renumbers", func() {
		s.SetupTest()
		s.seed("Ana", "Bruno", "Carla")

		w := s.request(http.MethodDelete, "/registrants/Bruno", nil)
		s.Equal(http.StatusNoContent, w.Code)

		list := s.request(http.MethodGet, "/registrants", nil)
		regs := s.decode(list)["registrants"].([]any)
		s.Require().Len(regs, 2)
		s.Equal(float64(1), regs[0].(map[string]any)["number"])
		s.Equal(float64(2), regs[1].(map[string]any)["number"])
	})

	s.Run("404s for an unknown id", func() {
		s.SetupTest()
		w := s.request(http.MethodDelete, "/registrants/ghost", nil)
		s.Equal(http.StatusNotFound, w.Code)
	})
}

func (s *RegistrantHandlerSuite) TestDraw() {
	s.SetupTest()
	s.seed("Ana", "Bruno", "Carla", "Diego")

	w := s.request(http.MethodPost, "/registrants/draw", map[string]any{"teams": 2, "seed": 42})
	s.Equal(http.StatusOK, w.Code)

	resp := s.decode(w)
	teams := resp["teams"].([]any)
	s.Require().Len(teams, 2)
	s.Equal(float64(42), resp["seed"])

	total := 0
	for _, t := range teams {
		total += len(t.(map[string]any)["members"].([]any))
	}
	s.Equal(4, total)

	// Deterministic per seed.
	again := s.request(http.MethodPost, "/registrants/draw", map[string]any{"teams": 2, "seed": 42})
	s.Equal(w.Body.String(), again.Body.String())
}
