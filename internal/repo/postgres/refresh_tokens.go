package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/fellowship/internal/domain/user"
	"github.com/jackc/pgx/v5"
)

// RefreshTokensRepo persists refresh sessions. It must be built on the service DB.
type RefreshTokensRepo struct {
	db *DB
}

func NewRefreshTokensRepo(db *DB) *RefreshTokensRepo {
	return &RefreshTokensRepo{db: db}
}

func (r *RefreshTokensRepo) Create(ctx context.Context, row user.RefreshToken) error {
	return r.db.run(ctx, "refresh_tokens.create", func(q Querier) error {
		return insertRefreshToken(ctx, q, row)
	})
}

func insertRefreshToken(ctx context.Context, q Querier, row user.RefreshToken) error {
	_, err := q.Exec(ctx,
		`INSERT INTO refresh_tokens (id, session_id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		row.ID, row.SessionID, row.UserID, row.TokenHash, row.ExpiresAt, row.RevokedAt, row.ReplacedBy, row.CreatedAt,
	)
	return err
}

// Rotate locks the presented row so two concurrent refreshes cannot both succeed.
func (r *RefreshTokensRepo) Rotate(ctx context.Context, presentedID, presentedHash string, next user.RefreshToken) error {
	return r.db.runTx(ctx, "refresh_tokens.rotate", func(tx pgx.Tx) error {
		var row user.RefreshToken

		err := tx.QueryRow(ctx, `
			SELECT id, session_id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at
			FROM refresh_tokens
			WHERE id = $1
			FOR UPDATE
		`, presentedID).Scan(
			&row.ID,
			&row.SessionID,
			&row.UserID,
			&row.TokenHash,
			&row.ExpiresAt,
			&row.RevokedAt,
			&row.ReplacedBy,
			&row.CreatedAt,
		)

		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return user.ErrRefreshTokenNotFound
			}
			return err
		}

		// verify hash matches the presented token (prevents token substitution)
		if err := row.CheckPresented(presentedHash, time.Now().UTC()); err != nil {
			return err
		}

		// a rotation never moves a token into another session
		if next.SessionID != row.SessionID {
			return user.ErrRefreshTokenMismatch
		}

		_, err = tx.Exec(ctx, `
			UPDATE refresh_tokens
			SET revoked_at = NOW(), replaced_by = $2
			WHERE id = $1
		`, row.ID, next.ID)
		if err != nil {
			return err
		}

		return insertRefreshToken(ctx, tx, next)
	})
}

// RevokeSession revokes every row of the session. Already revoked rows keep their time.
func (r *RefreshTokensRepo) RevokeSession(ctx context.Context, sessionID string) error {
	return r.db.run(ctx, "refresh_tokens.revoke_session", func(q Querier) error {
		_, err := q.Exec(ctx, `
			UPDATE refresh_tokens
			SET revoked_at = COALESCE(revoked_at, NOW())
			WHERE session_id = $1
		`, sessionID)
		return err
	})
}

// SessionActive is the per-request check behind access tokens. Deleting the identity
// cascades to its rows, so a deleted user's session is inactive too.
func (r *RefreshTokensRepo) SessionActive(ctx context.Context, sessionID string) (bool, error) {
	var active bool

	err := r.db.run(ctx, "refresh_tokens.session_active", func(q Querier) error {
		return q.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM refresh_tokens
				WHERE session_id = $1 AND revoked_at IS NULL AND expires_at > NOW()
			)
		`, sessionID).Scan(&active)
	})

	return active, err
}

// DeleteExpired prunes rows past expiry; run from the CLI maintenance command.
func (r *RefreshTokensRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var affected int64

	err := r.db.run(ctx, "refresh_tokens.delete_expired", func(q Querier) error {
		tag, err := q.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, before)
		affected = tag.RowsAffected()
		return err
	})

	return affected, err
}
