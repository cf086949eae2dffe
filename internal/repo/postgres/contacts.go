package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/geocoder89/fellowship/internal/domain/contact"
	"github.com/google/uuid"
)

type ContactsRepo struct {
	db *DB
}

func NewContactsRepo(db *DB) *ContactsRepo {
	return &ContactsRepo{db: db}
}

func (r *ContactsRepo) Create(ctx context.Context, req contact.CreateRequest) (contact.Submission, error) {
	interests := req.Interests
	if interests == nil {
		interests = []string{}
	}

	s := contact.Submission{
		ID:        uuid.NewString(),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Interests: interests,
		Message:   req.Message,
		CreatedAt: time.Now().UTC(),
	}

	err := r.db.run(ctx, "contacts.create", func(q Querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO contact_submissions (id, first_name, last_name, email, phone, interests, message, is_read, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,FALSE,$8)
		`, s.ID, s.FirstName, s.LastName, s.Email, s.Phone, s.Interests, s.Message, s.CreatedAt)
		return err
	})

	if err != nil {
		return contact.Submission{}, err
	}
	return s, nil
}

func (r *ContactsRepo) List(ctx context.Context, f contact.ListFilter) ([]contact.Submission, error) {
	query := `
		SELECT id, first_name, last_name, email, phone, interests, message, is_read, created_at
		FROM contact_submissions`

	args := []any{}
	if f.UnreadOnly {
		query += ` WHERE is_read = FALSE`
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args)+1)
	args = append(args, f.Limit)

	out := make([]contact.Submission, 0, f.Limit)

	err := r.db.run(ctx, "contacts.list", func(q Querier) error {
		rows, err := q.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var s contact.Submission
			err := rows.Scan(&s.ID, &s.FirstName, &s.LastName, &s.Email, &s.Phone, &s.Interests, &s.Message, &s.IsRead, &s.CreatedAt)
			if err != nil {
				return err
			}
			out = append(out, s)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ContactsRepo) MarkRead(ctx context.Context, id string) error {
	var affected int64

	err := r.db.run(ctx, "contacts.mark_read", func(q Querier) error {
		tag, err := q.Exec(ctx, `UPDATE contact_submissions SET is_read = TRUE WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return err
	}
	if affected == 0 {
		return contact.ErrNotFound
	}
	return nil
}

func (r *ContactsRepo) CountUnread(ctx context.Context) (int, error) {
	var n int

	err := r.db.run(ctx, "contacts.count_unread", func(q Querier) error {
		return q.QueryRow(ctx, `SELECT COUNT(*) FROM contact_submissions WHERE is_read = FALSE`).Scan(&n)
	})

	return n, err
}
