package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/souqify/auth-service/internal/auth/entity"
	"github.com/souqify/auth-service/internal/pkg/goerror"
)

const (
	queryGetUserByEmail = `SELECT id, email, name, password, created_at, updated_at
FROM auth_users
WHERE email = $1`

	queryCreateUser = `INSERT INTO auth_users (id, email, name, password)
VALUES ($1, $2, $3, $4)`

	queryUpdateUserPassword = `UPDATE auth_users
SET password = $2, updated_at = now()
WHERE email = $1`
)

func (s *DB) GetUserByEmail(ctx context.Context, email string) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByEmail")
	defer func() { s.endSpan(span, err) }()

	var (
		u        entity.User
		password pgtype.Text
	)
	err = s.conn.QueryRow(ctx, queryGetUserByEmail, email).
		Scan(&u.ID, &u.Email, &u.Name, &password, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, s.mapError(err)
	}
	u.Password = password.String

	return &u, nil
}

func (s *DB) CreateUser(ctx context.Context, in entity.NewUser) (err error) {
	ctx, span := s.startSpan(ctx, "CreateUser")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, queryCreateUser, in.ID, in.Email, in.Name,
		pgtype.Text{String: in.PasswordHash, Valid: in.PasswordHash != ""})
	err = s.mapError(err)
	return err
}

// UpdateUserPassword sets the password hash of the account with email.
func (s *DB) UpdateUserPassword(ctx context.Context, email, hash string) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateUserPassword")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, queryUpdateUserPassword, email, hash)
	if err != nil {
		err = s.mapError(err)
		return err
	}
	if tag.RowsAffected() == 0 {
		err = goerror.ErrNotFound
	}
	return err
}

// Ping checks the database connection through a trivial query.
func (s *DB) Ping(ctx context.Context) error {
	var one int
	return s.conn.QueryRow(ctx, "SELECT 1").Scan(&one)
}
