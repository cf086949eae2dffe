package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/fellowship/internal/domain/event"
	"github.com/geocoder89/fellowship/internal/utils"
	"github.com/jackc/pgx/v5"
)

const eventColumns = `id, title, description, location, start_at, capacity, created_at, updated_at`

type EventsRepo struct {
	db *DB
}

func NewEventsRepo(db *DB) *EventsRepo {
	return &EventsRepo{db: db}
}

func scanEvent(row pgx.Row) (event.Event, error) {
	var e event.Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.StartAt, &e.Capacity, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *EventsRepo) Create(ctx context.Context, req event.CreateEventRequest) (event.Event, error) {
	e := event.NewFromCreateRequest(req)

	err := r.db.run(ctx, "events.create", func(q Querier) error {
		_, err := q.Exec(ctx,
			`INSERT INTO events (`+eventColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			e.ID, e.Title, e.Description, e.Location, e.StartAt, e.Capacity, e.CreatedAt, e.UpdatedAt)
		return err
	})

	if err != nil {
		return event.Event{}, err
	}

	return e, nil
}

// ListCursor pages events by (start_at, id) ascending. A zero afterStartAt starts from the
// first page. It reads one extra row to learn whether another page exists.
func (r *EventsRepo) ListCursor(
	ctx context.Context,
	f event.ListEventsFilter,
	afterStartAt time.Time,
	afterID string,
) ([]event.Event, *string, bool, error) {
	var conds []string
	var args []any

	argsPosition := 1

	if f.From != nil {
		conds = append(conds, fmt.Sprintf("start_at >= $%d", argsPosition))
		args = append(args, *f.From)
		argsPosition++
	}

	if f.To != nil {
		conds = append(conds, fmt.Sprintf("start_at <= $%d", argsPosition))
		args = append(args, *f.To)
		argsPosition++
	}

	if !afterStartAt.IsZero() && afterID != "" {
		conds = append(conds, fmt.Sprintf("(start_at, id) > ($%d, $%d)", argsPosition, argsPosition+1))
		args = append(args, afterStartAt, afterID)
		argsPosition += 2
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	// stable ordering for pagination
	query += fmt.Sprintf(" ORDER BY start_at ASC, id ASC LIMIT $%d", argsPosition)
	args = append(args, f.Limit+1)

	out := make([]event.Event, 0, f.Limit+1)

	err := r.db.run(ctx, "events.list_cursor", func(q Querier) error {
		rows, err := q.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scanEvent(rows)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, nil, false, err
	}

	hasMore := len(out) > f.Limit
	if !hasMore {
		return out, nil, false, nil
	}

	out = out[:f.Limit]
	last := out[len(out)-1]

	next, err := utils.EncodeEventCursor(last.StartAt, last.ID)
	if err != nil {
		return nil, nil, false, err
	}

	return out, &next, true, nil
}

func (r *EventsRepo) GetByID(ctx context.Context, id string) (event.Event, error) {
	var e event.Event

	err := r.db.run(ctx, "events.get_by_id", func(q Querier) error {
		var err error
		e, err = scanEvent(q.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}

	return e, nil
}

func (r *EventsRepo) Update(ctx context.Context, id string, req event.UpdateEventRequest) (event.Event, error) {
	var e event.Event

	err := r.db.run(ctx, "events.update", func(q Querier) error {
		var err error
		e, err = scanEvent(q.QueryRow(ctx, `
			UPDATE events
			SET title = $2,
				description = $3,
				location = $4,
				start_at = $5,
				capacity = $6,
				updated_at = NOW()
			WHERE id = $1
			RETURNING `+eventColumns,
			id, req.Title, req.Description, req.Location, req.StartAt.UTC(), req.Capacity,
		))
		return err
	})

	if err != nil {
		// if there are no rows matching the id
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}

	return e, nil
}

func (r *EventsRepo) Delete(ctx context.Context, id string) error {
	var affected int64

	err := r.db.run(ctx, "events.delete", func(q Querier) error {
		tag, err := q.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return err
	}

	// if no rows were deleted as a result return a not found error
	if affected == 0 {
		return event.ErrNotFound
	}

	return nil
}
