package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/fellowship/internal/domain/settings"
	"github.com/jackc/pgx/v5"
)

// AdminSettingsRepo holds the singleton privileged-password row. Service DB only.
type AdminSettingsRepo struct {
	db *DB
}

func NewAdminSettingsRepo(db *DB) *AdminSettingsRepo {
	return &AdminSettingsRepo{db: db}
}

const adminSettingsSelect = `
	SELECT id, COALESCE(delete_password_hash, ''), password_set_date, password_history_hashes
	FROM admin_settings
	WHERE id = $1`

func scanAdminSettings(row pgx.Row) (settings.AdminSettings, error) {
	var s settings.AdminSettings

	err := row.Scan(&s.ID, &s.DeletePasswordHash, &s.PasswordSetDate, &s.PasswordHistoryHashes)
	if err != nil {
		return settings.AdminSettings{}, err
	}
	if s.PasswordHistoryHashes == nil {
		s.PasswordHistoryHashes = []string{}
	}
	return s, nil
}

// Get returns settings.ErrNotConfigured when the singleton row does not exist yet.
func (r *AdminSettingsRepo) Get(ctx context.Context) (settings.AdminSettings, error) {
	var s settings.AdminSettings

	err := r.db.run(ctx, "admin_settings.get", func(q Querier) error {
		var err error
		s, err = scanAdminSettings(q.QueryRow(ctx, adminSettingsSelect, settings.SingletonID))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return settings.AdminSettings{}, settings.ErrNotConfigured
		}
		return settings.AdminSettings{}, err
	}

	return s, nil
}

// Rotate locks the singleton row, hands the current state to decide and stores the
// digest it returns. The previous digest, if any, is appended to the history.
// decide runs inside the transaction; any error it returns aborts the rotation.
func (r *AdminSettingsRepo) Rotate(ctx context.Context, decide func(current settings.AdminSettings) (string, error)) error {
	return r.db.runTx(ctx, "admin_settings.rotate", func(tx pgx.Tx) error {
		// FOR UPDATE locks nothing while the row is missing, so make sure it exists.
		// A concurrent first set blocks here until the other transaction ends.
		_, err := tx.Exec(ctx, `INSERT INTO admin_settings (id) VALUES ($1) ON CONFLICT DO NOTHING`, settings.SingletonID)
		if err != nil {
			return err
		}

		current, err := scanAdminSettings(tx.QueryRow(ctx, adminSettingsSelect+` FOR UPDATE`, settings.SingletonID))
		if err != nil {
			return err
		}

		next, err := decide(current)
		if err != nil {
			return err
		}

		history := current.PasswordHistoryHashes
		if current.HasPassword() {
			history = append(history, current.DeletePasswordHash)
		}

		_, err = tx.Exec(ctx, `
			UPDATE admin_settings
			SET delete_password_hash = $2,
				password_set_date = NOW(),
				password_history_hashes = $3
			WHERE id = $1
		`, settings.SingletonID, next, history)
		return err
	})
}
