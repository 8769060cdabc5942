// Package httptransport assembles the service router: domain handlers plus
// the operational endpoints.
package httptransport

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	platformredis "eventdesk/internal/platform/redis"
	"eventdesk/internal/transport/http/shared"
)

// Registrar is anything that can attach its routes to the root router.
type Registrar interface {
	Register(r chi.Router)
}

// Deps are the router's wiring inputs. DB and Cache feed the health
// endpoint; Cache may be nil.
type Deps struct {
	Handlers []Registrar
	DB       *sql.DB
	Cache    *platformredis.Client
}

// NewRouter builds the complete service router.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", healthHandler(deps.DB, deps.Cache))
	r.Handle("/metrics", promhttp.Handler())

	for _, h := range deps.Handlers {
		h.Register(r)
	}
	return r
}

func healthHandler(db *sql.DB, cache *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				shared.WriteJSON(w, http.StatusServiceUnavailable,
					map[string]any{"status": "degraded", "postgres": err.Error()})
				return
			}
		}
		if err := cache.Health(ctx); err != nil {
			shared.WriteJSON(w, http.StatusServiceUnavailable,
				map[string]any{"status": "degraded", "redis": err.Error()})
			return
		}
		shared.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}
}
