package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/fellowship/internal/cache"
	"github.com/geocoder89/fellowship/internal/config"
	"github.com/geocoder89/fellowship/internal/domain/event"
	"github.com/geocoder89/fellowship/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	defaultEventsLimit = 20
	maxEventsLimit     = 100
)

type EventsStore interface {
	Create(ctx context.Context, req event.CreateEventRequest) (event.Event, error)
	GetByID(ctx context.Context, id string) (event.Event, error)
	ListCursor(ctx context.Context, f event.ListEventsFilter, afterStartAt time.Time, afterID string) ([]event.Event, *string, bool, error)
	Update(ctx context.Context, id string, req event.UpdateEventRequest) (event.Event, error)
	Delete(ctx context.Context, id string) error
}

// EventsPage is the public list response.
type EventsPage struct {
	Items      []event.Event `json:"items"`
	Count      int           `json:"count"`
	Limit      int           `json:"limit"`
	NextCursor *string       `json:"nextCursor,omitempty"`
	HasMore    bool          `json:"hasMore"`
}

type EventsHandler struct {
	repo  EventsStore
	cache *cache.TTL[EventsPage]
	log   *slog.Logger
}

func NewEventsHandler(repo EventsStore) *EventsHandler {
	return &EventsHandler{repo: repo, log: slog.Default()}
}

// NewEventsHandlerWithCache serves list pages from c; any admin write clears it.
func NewEventsHandlerWithCache(repo EventsStore, c *cache.TTL[EventsPage]) *EventsHandler {
	return &EventsHandler{repo: repo, cache: c, log: slog.Default()}
}

func (h *EventsHandler) ListEvents(ctx *gin.Context) {
	limit := defaultEventsLimit
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			RespondBadRequest(ctx, "Invalid limit", gin.H{"limit": raw})
			return
		}
		limit = min(n, maxEventsLimit)
	}

	filter := event.ListEventsFilter{Limit: limit}

	from, ok := parseTimeQuery(ctx, "from")
	if !ok {
		return
	}
	filter.From = from

	to, ok := parseTimeQuery(ctx, "to")
	if !ok {
		return
	}
	filter.To = to

	var afterStartAt time.Time
	var afterID string

	if raw := ctx.Query("cursor"); raw != "" {
		cur, err := utils.DecodeEventCursor(raw)
		if err != nil {
			RespondBadRequest(ctx, "Invalid cursor", nil)
			return
		}
		afterStartAt, afterID = cur.StartAt, cur.ID
	}

	key := eventsCacheKey(filter, ctx.Query("cursor"))
	if h.cache != nil {
		if page, ok := h.cache.Get(key); ok {
			RespondJSONWithETag(ctx, http.StatusOK, page)
			return
		}
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	items, next, hasMore, err := h.repo.ListCursor(cctx, filter, afterStartAt, afterID)
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "list events failed", "err", err)
		RespondInternal(ctx, "Could not list events")
		return
	}

	page := EventsPage{
		Items:      items,
		Count:      len(items),
		Limit:      limit,
		NextCursor: next,
		HasMore:    hasMore,
	}

	if h.cache != nil {
		h.cache.Set(key, page)
	}

	RespondJSONWithETag(ctx, http.StatusOK, page)
}

func (h *EventsHandler) GetEventById(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Event not found")
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	e, err := h.repo.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "get event failed", "event_id", id, "err", err)
		RespondInternal(ctx, "Could not fetch event")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, e)
}

func (h *EventsHandler) CreateEvent(ctx *gin.Context) {
	var req event.CreateEventRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	e, err := h.repo.Create(cctx, sanitizeEvent(req))
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "create event failed", "err", err)
		RespondInternal(ctx, "Could not create event")
		return
	}

	h.invalidate()
	ctx.JSON(http.StatusCreated, e)
}

func (h *EventsHandler) UpdateEvent(ctx *gin.Context) {
	id := ctx.Param("id")

	var req event.UpdateEventRequest
	if !BindJSON(ctx, &req) {
		return
	}

	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Event not found")
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	e, err := h.repo.Update(cctx, id, sanitizeEvent(req))
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "update event failed", "event_id", id, "err", err)
		RespondInternal(ctx, "Could not update event")
		return
	}

	h.invalidate()
	ctx.JSON(http.StatusOK, e)
}

func (h *EventsHandler) DeleteEvent(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Event not found")
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, id)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "delete event failed", "event_id", id, "err", err)
		RespondInternal(ctx, "Could not delete event")
		return
	}

	h.invalidate()
	ctx.Status(http.StatusNoContent)
}

func (h *EventsHandler) invalidate() {
	if h.cache != nil {
		h.cache.Clear()
	}
}

func parseTimeQuery(ctx *gin.Context, name string) (*time.Time, bool) {
	raw := ctx.Query(name)
	if raw == "" {
		return nil, true
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		RespondBadRequest(ctx, "Invalid "+name+" time, expected RFC3339", gin.H{name: raw})
		return nil, false
	}

	t = t.UTC()
	return &t, true
}

func eventsCacheKey(f event.ListEventsFilter, cursor string) string {
	from, to := "", ""
	if f.From != nil {
		from = f.From.Format(time.RFC3339Nano)
	}
	if f.To != nil {
		to = f.To.Format(time.RFC3339Nano)
	}

	return "events:list:v1:limit=" + strconv.Itoa(f.Limit) +
		":from=" + from +
		":to=" + to +
		":cursor=" + cursor
}
