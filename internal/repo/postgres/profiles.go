package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/fellowship/internal/domain/profile"
	"github.com/jackc/pgx/v5"
)

const profileColumns = `id, email, role, nickname, can_comment, gender, profile_picture_url, created_at, updated_at`

// ProfilesRepo reads and writes profiles. Built on a session DB it sees what row level
// security allows the actor; built on the service DB it sees everything.
type ProfilesRepo struct {
	db *DB
}

func NewProfilesRepo(db *DB) *ProfilesRepo {
	return &ProfilesRepo{db: db}
}

func scanProfile(row pgx.Row) (profile.Profile, error) {
	var p profile.Profile
	var role string

	err := row.Scan(
		&p.ID,
		&p.Email,
		&role,
		&p.Nickname,
		&p.CanComment,
		&p.Gender,
		&p.ProfilePictureURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return profile.Profile{}, err
	}

	// a value outside the enum cannot come from our writes; surface it instead of guessing
	p.Role, err = profile.ParseRole(role)
	if err != nil {
		return profile.Profile{}, err
	}

	return p, nil
}

func (r *ProfilesRepo) GetByID(ctx context.Context, id string) (profile.Profile, error) {
	var p profile.Profile

	err := r.db.run(ctx, "profiles.get_by_id", func(q Querier) error {
		var err error
		p, err = scanProfile(q.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profile.Profile{}, profile.ErrNotFound
		}
		return profile.Profile{}, err
	}

	return p, nil
}

// GetRole is the single point lookup behind role resolution. It is never cached.
func (r *ProfilesRepo) GetRole(ctx context.Context, id string) (profile.Role, error) {
	var raw string

	err := r.db.run(ctx, "profiles.get_role", func(q Querier) error {
		return q.QueryRow(ctx, `SELECT role FROM profiles WHERE id = $1`, id).Scan(&raw)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", profile.ErrNotFound
		}
		return "", err
	}

	return profile.ParseRole(raw)
}

func (r *ProfilesRepo) List(ctx context.Context) ([]profile.Profile, error) {
	out := make([]profile.Profile, 0)

	err := r.db.run(ctx, "profiles.list", func(q Querier) error {
		rows, err := q.Query(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC, id ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanProfile(rows)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// UpdateSelf changes only the member-editable columns. Absent fields keep their value.
func (r *ProfilesRepo) UpdateSelf(ctx context.Context, id string, req profile.UpdateSelfRequest) (profile.Profile, error) {
	var p profile.Profile

	err := r.db.run(ctx, "profiles.update_self", func(q Querier) error {
		var err error
		p, err = scanProfile(q.QueryRow(ctx, `
			UPDATE profiles
			SET nickname = COALESCE($2, nickname),
				gender = COALESCE($3, gender),
				profile_picture_url = COALESCE($4, profile_picture_url),
				updated_at = NOW()
			WHERE id = $1
			RETURNING `+profileColumns,
			id, req.Nickname, req.Gender, req.ProfilePictureURL,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profile.Profile{}, profile.ErrNotFound
		}
		return profile.Profile{}, err
	}

	return p, nil
}

// SetRole is last-write-wins; there is no version check between concurrent admins.
func (r *ProfilesRepo) SetRole(ctx context.Context, id string, role profile.Role) error {
	return r.updateOne(ctx, "profiles.set_role",
		`UPDATE profiles SET role = $2, updated_at = NOW() WHERE id = $1`, id, string(role))
}

func (r *ProfilesRepo) SetCanComment(ctx context.Context, id string, canComment bool) error {
	return r.updateOne(ctx, "profiles.set_can_comment",
		`UPDATE profiles SET can_comment = $2, updated_at = NOW() WHERE id = $1`, id, canComment)
}

func (r *ProfilesRepo) updateOne(ctx context.Context, op, sql string, args ...any) error {
	var affected int64

	err := r.db.run(ctx, op, func(q Querier) error {
		tag, err := q.Exec(ctx, sql, args...)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return err
	}

	if affected == 0 {
		return profile.ErrNotFound
	}

	return nil
}

func (r *ProfilesRepo) Count(ctx context.Context) (int, error) {
	var n int

	err := r.db.run(ctx, "profiles.count", func(q Querier) error {
		return q.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n)
	})

	return n, err
}
