package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/fellowship/internal/domain/profile"
	"github.com/geocoder89/fellowship/internal/domain/user"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UsersRepo owns auth identities. It must be built on the service DB.
type UsersRepo struct {
	db *DB
}

func NewUsersRepo(db *DB) *UsersRepo {
	return &UsersRepo{db: db}
}

func (r *UsersRepo) Create(ctx context.Context, email, passwordHash string, nickname *string) (user.User, error) {
	now := time.Now().UTC()
	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.db.runTx(ctx, "users.create", func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5)`,
			u.ID, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
		)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO profiles (id, email, role, nickname, can_comment, created_at, updated_at)
			VALUES ($1,$2,$3,$4,TRUE,$5,$5)`,
			u.ID, u.Email, profile.DefaultRole, nickname, now,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailAlreadyUsed
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.db.run(ctx, "users.get_by_email", func(q Querier) error {
		return q.QueryRow(
			ctx,
			`SELECT id, email, password_hash, created_at, updated_at
			FROM users
			WHERE email = $1`,
			email,
		).Scan(
			&u.ID,
			&u.Email,
			&u.PasswordHash,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

// Delete removes the identity; profiles, refresh tokens, posts and comments cascade.
func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	var affected int64

	err := r.db.run(ctx, "users.delete", func(q Querier) error {
		tag, err := q.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return err
	}

	if affected == 0 {
		return user.ErrNotFound
	}

	return nil
}
