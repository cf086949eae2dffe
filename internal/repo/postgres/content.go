package postgres

import (
	"context"
	"time"

	"github.com/geocoder89/fellowship/internal/domain/content"
)

type ContentRepo struct {
	db *DB
}

func NewContentRepo(db *DB) *ContentRepo {
	return &ContentRepo{db: db}
}

// ListPage returns every item of page ordered by section then key. Readable by anyone.
func (r *ContentRepo) ListPage(ctx context.Context, page string) ([]content.Item, error) {
	out := make([]content.Item, 0)

	err := r.db.run(ctx, "content.list_page", func(q Querier) error {
		rows, err := q.Query(ctx, `
			SELECT page, section, key, value, updated_at, updated_by
			FROM content_items
			WHERE page = $1
			ORDER BY section ASC, key ASC
		`, page)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var it content.Item
			if err := rows.Scan(&it.Page, &it.Section, &it.Key, &it.Value, &it.UpdatedAt, &it.UpdatedBy); err != nil {
				return err
			}
			out = append(out, it)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ContentRepo) Upsert(ctx context.Context, req content.UpsertRequest, updatedBy string) (content.Item, error) {
	it := content.Item{
		Page:      req.Page,
		Section:   req.Section,
		Key:       req.Key,
		Value:     req.Value,
		UpdatedAt: time.Now().UTC(),
		UpdatedBy: &updatedBy,
	}

	err := r.db.run(ctx, "content.upsert", func(q Querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO content_items (page, section, key, value, updated_at, updated_by)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (page, section, key) DO UPDATE
			SET value = EXCLUDED.value,
				updated_at = EXCLUDED.updated_at,
				updated_by = EXCLUDED.updated_by
		`, it.Page, it.Section, it.Key, it.Value, it.UpdatedAt, it.UpdatedBy)
		return err
	})

	if err != nil {
		return content.Item{}, err
	}
	return it, nil
}
