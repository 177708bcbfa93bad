// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/essence/internal/platform/apperr"
	"github.com/taibuivan/essence/internal/platform/database/schema"
	"github.com/taibuivan/essence/internal/platform/dberr"
)

var (
	account = schema.UserAccount
	stored  = schema.UserSession
)

// # Accounts

// PostgresUserRepository stores accounts in users.account. Soft-deleted rows are invisible.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

var selectUser = fmt.Sprintf(`
	SELECT %s, COALESCE(%s, ''), COALESCE(%s, ''), %s, COALESCE(%s, ''), %s, %s, %s, %s, %s
	FROM %s
	WHERE %s IS NULL`,
	account.ID, account.Email, account.Password, account.Provider, account.ProviderID,
	account.Metadata, account.Status, account.LastSignInAt, account.CreatedAt, account.UpdatedAt,
	account.Table, account.DeletedAt,
)

func scanUser(row pgx.CollectableRow) (*User, error) {
	var user User
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Provider, &user.ProviderID,
		&user.Metadata, &user.Status, &user.LastSignInAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if user.Metadata == nil {
		user.Metadata = map[string]any{}
	}
	return &user, err
}

func (repository *PostgresUserRepository) findOne(context context.Context, action, condition string, args ...any) (*User, error) {
	rows, err := repository.pool.Query(context, selectUser+" AND "+condition, args...)
	if err != nil {
		return nil, dberr.Wrap(err, action)
	}
	user, err := pgx.CollectOneRow(rows, scanUser)
	if err != nil {
		return nil, dberr.WrapRow(err, "User", action)
	}
	return user, nil
}

func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	return repository.findOne(context, "find_user_by_id", account.ID+" = $1", id)
}

// FindByEmail matches case-insensitively, like the unique index.
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	return repository.findOne(context, "find_user_by_email", "LOWER("+account.Email+") = LOWER($1)", email)
}

func (repository *PostgresUserRepository) FindByProvider(context context.Context, provider, providerID string) (*User, error) {
	return repository.findOne(context, "find_user_by_provider",
		account.Provider+" = $1 AND "+account.ProviderID+" = $2", provider, providerID)
}

var insertUser = fmt.Sprintf(`
	INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s)
	VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, NULLIF($5, ''), $6, $7, $8, $8)`,
	account.Table, account.ID, account.Email, account.Password, account.Provider, account.ProviderID,
	account.Metadata, account.Status, account.CreatedAt, account.UpdatedAt,
)

// Create inserts user. The raw driver error is kept so callers can detect a
// unique violation with dberr.IsUniqueViolation.
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.UpdatedAt = user.CreatedAt

	_, err := repository.pool.Exec(context, insertUser,
		user.ID, user.Email, user.PasswordHash, user.Provider, user.ProviderID,
		user.Metadata, user.Status, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_user_create_failed: %w", err)
	}
	return nil
}

// setColumn updates one column on a live account; NOT_FOUND when nothing matched.
func (repository *PostgresUserRepository) setColumn(context context.Context, action, column, userID string, value any) error {
	query := fmt.Sprintf("UPDATE %s SET %s = $2, %s = NOW() WHERE %s = $1 AND %s IS NULL",
		account.Table, column, account.UpdatedAt, account.ID, account.DeletedAt)

	tag, err := repository.pool.Exec(context, query, userID, value)
	if err != nil {
		return dberr.Wrap(err, action)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}
	return nil
}

// UpdateMetadata replaces the whole attribute bag.
func (repository *PostgresUserRepository) UpdateMetadata(context context.Context, userID string, metadata map[string]any) error {
	return repository.setColumn(context, "update_user_metadata", account.Metadata, userID, metadata)
}

func (repository *PostgresUserRepository) UpdateStatus(context context.Context, userID string, status Status) error {
	return repository.setColumn(context, "update_user_status", account.Status, userID, status)
}

func (repository *PostgresUserRepository) TouchSignIn(context context.Context, userID string, at time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET %s = $2 WHERE %s = $1", account.Table, account.LastSignInAt, account.ID)
	_, err := repository.pool.Exec(context, query, userID, at)
	return dberr.Wrap(err, "touch_user_sign_in")
}

// # Sessions

// PostgresSessionRepository stores sessions in users.session keyed by the
// SHA-256 of the refresh token. Lookups only see live rows.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

var selectLiveSession = fmt.Sprintf(`
	SELECT %s, %s, %s, COALESCE(%s, ''), COALESCE(%s, ''), %s, %s
	FROM %s
	WHERE %s = FALSE AND %s > NOW()`,
	stored.ID, stored.UserID, stored.TokenHash, stored.UserAgent, stored.IPAddress, stored.ExpiresAt, stored.CreatedAt,
	stored.Table, stored.IsRevoked, stored.ExpiresAt,
)

func scanSession(row pgx.CollectableRow) (*Session, error) {
	var session Session
	err := row.Scan(
		&session.ID, &session.UserID, &session.TokenHash, &session.UserAgent,
		&session.IPAddress, &session.ExpiresAt, &session.CreatedAt,
	)
	return &session, err
}

func (repository *PostgresSessionRepository) findLive(context context.Context, action, column, value string) (*Session, error) {
	rows, err := repository.pool.Query(context, selectLiveSession+" AND "+column+" = $1", value)
	if err != nil {
		return nil, dberr.Wrap(err, action)
	}
	session, err := pgx.CollectOneRow(rows, scanSession)
	if err != nil {
		return nil, dberr.WrapRow(err, "Session", action)
	}
	return session, nil
}

var insertSession = fmt.Sprintf(`
	INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
	VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)`,
	stored.Table, stored.ID, stored.UserID, stored.TokenHash, stored.UserAgent, stored.IPAddress,
	stored.ExpiresAt, stored.IsRevoked, stored.CreatedAt,
)

func (repository *PostgresSessionRepository) Create(context context.Context, session *Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	_, err := repository.pool.Exec(context, insertSession,
		session.ID, session.UserID, session.TokenHash, session.UserAgent,
		session.IPAddress, session.ExpiresAt, session.CreatedAt,
	)
	return dberr.Wrap(err, "create_session")
}

func (repository *PostgresSessionRepository) FindByTokenHash(context context.Context, tokenHash string) (*Session, error) {
	return repository.findLive(context, "find_session_by_token", stored.TokenHash, tokenHash)
}

func (repository *PostgresSessionRepository) FindByID(context context.Context, id string) (*Session, error) {
	return repository.findLive(context, "find_session_by_id", stored.ID, id)
}

// Rotate swaps the token hash and expiry in place; the session ID is kept.
func (repository *PostgresSessionRepository) Rotate(context context.Context, sessionID, tokenHash string, expiresAt time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET %s = $2, %s = $3, %s = NOW() WHERE %s = $1 AND %s = FALSE",
		stored.Table, stored.TokenHash, stored.ExpiresAt, stored.RefreshedAt, stored.ID, stored.IsRevoked)

	tag, err := repository.pool.Exec(context, query, sessionID, tokenHash, expiresAt)
	if err != nil {
		return dberr.Wrap(err, "rotate_session")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Session")
	}
	return nil
}

var revokeSessions = fmt.Sprintf("UPDATE %s SET %s = TRUE, %s = NOW() WHERE %s = FALSE",
	stored.Table, stored.IsRevoked, stored.RevokedAt, stored.IsRevoked)

func (repository *PostgresSessionRepository) Revoke(context context.Context, sessionID string) error {
	_, err := repository.pool.Exec(context, revokeSessions+" AND "+stored.ID+" = $1", sessionID)
	return dberr.Wrap(err, "revoke_session")
}

// RevokeAll returns the token hashes it revoked so the cache can be evicted.
func (repository *PostgresSessionRepository) RevokeAll(context context.Context, userID string) ([]string, error) {
	query := revokeSessions + " AND " + stored.UserID + " = $1 RETURNING " + stored.TokenHash

	rows, err := repository.pool.Query(context, query, userID)
	if err != nil {
		return nil, dberr.Wrap(err, "revoke_user_sessions")
	}
	hashes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, dberr.Wrap(err, "collect_revoked_sessions")
	}
	return hashes, nil
}

// DeleteExpired drops expired rows and rows revoked more than a day ago.
func (repository *PostgresSessionRepository) DeleteExpired(context context.Context) ([]PurgedSession, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE %s <= NOW() OR (%s AND %s < NOW() - INTERVAL '1 day')
		RETURNING %s, %s, %s`,
		stored.Table, stored.ExpiresAt, stored.IsRevoked, stored.RevokedAt,
		stored.ID, stored.UserID, stored.IsRevoked)

	rows, err := repository.pool.Query(context, query)
	if err != nil {
		return nil, dberr.Wrap(err, "delete_expired_sessions")
	}
	purged, err := pgx.CollectRows(rows, pgx.RowToStructByPos[PurgedSession])
	if err != nil {
		return nil, dberr.Wrap(err, "collect_expired_sessions")
	}
	return purged, nil
}
