package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"yitro.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

const uniqueViolation = "23505"

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Users() UserStore       { return &userStore{db: s.db} }
func (s *PGStore) Sessions() SessionStore { return &sessionStore{db: s.db} }

// User store ---------------------------------------------------------------
type userStore struct{ db *sql.DB }

func (s *userStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	u.Email = NormalizeEmail(u.Email)
	_, err := s.db.ExecContext(ctx,
		`insert into auth_users(id, email, display_name, password_hash, role, email_verified)
		 values($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Email, u.DisplayName, u.PasswordHash, u.Role, u.EmailVerified,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (s *userStore) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, email, display_name, password_hash, role, email_verified, last_login, created_at, updated_at
		 from auth_users where id=$1`, id)
	return scanUser(row)
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, email, display_name, password_hash, role, email_verified, last_login, created_at, updated_at
		 from auth_users where email=lower($1)`, NormalizeEmail(email))
	return scanUser(row)
}

func (s *userStore) List(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, email, display_name, role, email_verified, last_login, created_at, updated_at
		 from auth_users order by created_at desc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var (
			u         User
			lastLogin sql.NullTime
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Role, &u.EmailVerified, &lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		if lastLogin.Valid {
			t := lastLogin.Time
			u.LastLogin = &t
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

func (s *userStore) RecordLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`update auth_users set last_login=$2, updated_at=now() where id=$1`, id, at)
	return err
}

func scanUser(row *sql.Row) (*User, error) {
	var (
		u         User
		lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Role, &u.EmailVerified, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

// Session store ------------------------------------------------------------
type sessionStore struct{ db *sql.DB }

func (s *sessionStore) DeactivateAll(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`update auth_sessions set is_active=false where user_id=$1 and is_active`, userID)
	return err
}

func (s *sessionStore) Create(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into auth_sessions(id, user_id, token_hash, expires_at, ip_address, user_agent, is_active)
		 values($1,$2,$3,$4,$5,$6,$7)`,
		sess.ID, sess.UserID, sess.TokenHash, sess.ExpiresAt, sess.IPAddress, sess.UserAgent, sess.Active,
	)
	return err
}

func (s *sessionStore) Replace(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = ids.New()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`update auth_sessions set is_active=false where user_id=$1 and is_active`, sess.UserID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`insert into auth_sessions(id, user_id, token_hash, expires_at, ip_address, user_agent, is_active)
		 values($1,$2,$3,$4,$5,$6,true)`,
		sess.ID, sess.UserID, sess.TokenHash, sess.ExpiresAt, sess.IPAddress, sess.UserAgent); err != nil {
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
