package extsource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	platformredis "eventdesk/internal/platform/redis"
	dErrors "eventdesk/pkg/domain-errors"
)

// DefaultEventsTTL bounds how stale a cached upstream event list may get.
var DefaultEventsTTL = 5 * time.Minute

// EventLister lists upstream events, caching results in Redis when a client
// is configured. The cache is best-effort: a nil client or a cache failure
// degrades to a direct query, never to an error.
type EventLister struct {
	cache  *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewEventLister constructs an EventLister. cache may be nil.
func NewEventLister(cache *platformredis.Client, logger *slog.Logger) *EventLister {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventLister{cache: cache, ttl: DefaultEventsTTL, logger: logger}
}

// List returns the upstream events, or an empty slice when the source has no
// recognizable events table. sourceKey identifies the external source (its
// DSN) so caches for different deployments never collide.
func (l *EventLister) List(ctx context.Context, q Querier, sourceKey string) ([]Event, error) {
	key := eventsCacheKey(sourceKey)
	if cached, ok := l.fromCache(ctx, key); ok {
		return cached, nil
	}

	events, err := listEvents(ctx, q)
	if err != nil {
		return nil, err
	}
	l.toCache(ctx, key, events)
	return events, nil
}

func listEvents(ctx context.Context, q Querier) ([]Event, error) {
	table, err := DiscoverEventsTable(ctx, q)
	if err != nil {
		return nil, err
	}
	if table == nil {
		// No events table is a valid, non-fatal outcome.
		return []Event{}, nil
	}

	query := fmt.Sprintf("SELECT %s, %s FROM %s ORDER BY %s",
		quoteIdent(table.IDColumn), quoteIdent(table.NameColumn),
		quoteIdent(table.Table), quoteIdent(table.IDColumn))
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list external events")
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var id, name any
		if err := rows.Scan(&id, &name); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "scan external event")
		}
		events = append(events, Event{ID: asString(id), Name: asString(name)})
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list external events")
	}
	return events, nil
}

func (l *EventLister) fromCache(ctx context.Context, key string) ([]Event, bool) {
	if l.cache == nil {
		return nil, false
	}
	payload, err := l.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var events []Event
	if err := json.Unmarshal(payload, &events); err != nil {
		return nil, false
	}
	return events, true
}

func (l *EventLister) toCache(ctx context.Context, key string, events []Event) {
	if l.cache == nil {
		return
	}
	payload, err := json.Marshal(events)
	if err != nil {
		return
	}
	if err := l.cache.Set(ctx, key, payload, l.ttl).Err(); err != nil {
		l.logger.WarnContext(ctx, "failed to cache event list", "error", err.Error())
	}
}

func eventsCacheKey(sourceKey string) string {
	sum := sha256.Sum256([]byte(sourceKey))
	return "eventdesk:events:" + hex.EncodeToString(sum[:8])
}
