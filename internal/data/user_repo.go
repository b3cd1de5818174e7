package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/target/mmk-accounts/internal/data/pgxutil"
	"github.com/target/mmk-accounts/internal/domain/account"
	apperrors "github.com/target/mmk-accounts/internal/errors"
	"github.com/target/mmk-accounts/internal/ports"
)

var _ ports.UserStore = (*UserRepo)(nil)

// UserRepo persists users in PostgreSQL.
type UserRepo struct {
	DB *sql.DB
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

const userColumns = `id, given_name, middle_name, family_name, username, emails, pending_email,
	hashed_password, created_at, updated_at`

// Get returns the user with id.
func (r *UserRepo) Get(ctx context.Context, id string) (*account.User, error) {
	var u *account.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
		var scanErr error
		u, scanErr = scanUser(row)
		return scanErr
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", id, account.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", apperrors.MapDBError(err))
	}
	return u, nil
}

// Put inserts or replaces the user keyed by ID. A username already taken by
// another row fails with a conflict AppError.
func (r *UserRepo) Put(ctx context.Context, user *account.User) error {
	if user == nil || user.ID == "" {
		return apperrors.ValidationField("id", "user id is required")
	}
	emails := make([]string, 0, len(user.Emails))
	for _, e := range user.Emails {
		emails = append(emails, e.Value)
	}
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, execErr := conn.Exec(ctx, `
			INSERT INTO users (`+userColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE SET
				given_name = EXCLUDED.given_name,
				middle_name = EXCLUDED.middle_name,
				family_name = EXCLUDED.family_name,
				username = EXCLUDED.username,
				emails = EXCLUDED.emails,
				pending_email = EXCLUDED.pending_email,
				hashed_password = EXCLUDED.hashed_password,
				updated_at = EXCLUDED.updated_at`,
			user.ID,
			user.Name.GivenName,
			user.Name.MiddleName,
			user.Name.FamilyName,
			user.Username,
			emails,
			user.PendingEmail,
			user.HashedPassword,
			user.CreatedAt,
			user.UpdatedAt,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("put user: %w", apperrors.MapDBError(err))
	}
	return nil
}

// FindByEmail matches the username or any confirmed address, ignoring case.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*account.User, error) {
	email = account.NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	var found []*account.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+userColumns+` FROM users
			WHERE lower(username) = $1
			   OR EXISTS (SELECT 1 FROM unnest(emails) AS e WHERE lower(e) = $1)
			LIMIT 2`, email)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			found = append(found, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", apperrors.MapDBError(err))
	}
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	default:
		return nil, account.ErrAmbiguousEmail
	}
}

func scanUser(row pgx.Row) (*account.User, error) {
	var (
		u      account.User
		emails []string
	)
	if err := row.Scan(
		&u.ID,
		&u.Name.GivenName,
		&u.Name.MiddleName,
		&u.Name.FamilyName,
		&u.Username,
		&emails,
		&u.PendingEmail,
		&u.HashedPassword,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	for _, e := range emails {
		u.Emails = append(u.Emails, account.EmailAddress{Value: e})
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}
