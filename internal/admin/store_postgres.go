// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/essence/internal/identity"
	"github.com/taibuivan/essence/internal/platform/database/schema"
	"github.com/taibuivan/essence/internal/platform/dberr"
	"github.com/taibuivan/essence/internal/platform/postgres"
	"github.com/taibuivan/essence/pkg/pagination"
)

// PostgresStore implements [Store] using pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a new [PostgresStore].
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// # Users

/*
ListUsers pages through live accounts, newest first.

Returns:
  - []UserSummary: One page
  - int: Total matching rows
  - error: Storage failures
*/
func (repository *PostgresStore) ListUsers(context context.Context, filter UserFilter, page pagination.Params) ([]UserSummary, int, error) {
	account := schema.UserAccount

	conditions := []string{account.DeletedAt + " IS NULL"}
	args := []any{}

	if filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(%s ILIKE $%d OR %s->>'username' ILIKE $%d)",
			account.Email, len(args), account.Metadata, len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", account.Status, len(args)))
	}
	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s;", account.Table, where)
	if err := repository.pool.QueryRow(context, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_users")
	}

	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`
		SELECT %s, COALESCE(%s, ''), COALESCE(%s->>'username', ''), COALESCE(%s->>'role', ''),
		       %s, %s, %s, %s
		FROM %s
		WHERE %s
		ORDER BY %s DESC
		LIMIT $%d OFFSET $%d;
	`,
		account.ID,
		account.Email,
		account.Metadata,
		account.Metadata,
		account.Status,
		account.Provider,
		account.LastSignInAt,
		account.CreatedAt,
		account.Table,
		where,
		account.CreatedAt,
		len(args)-1, len(args),
	)

	rows, err := repository.pool.Query(context, query, args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_users")
	}
	defer rows.Close()

	users := []UserSummary{}
	for rows.Next() {
		var user UserSummary
		if err := rows.Scan(&user.ID, &user.Email, &user.Username, &user.Role,
			&user.Status, &user.Provider, &user.LastSignInAt, &user.CreatedAt); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_user")
		}
		users = append(users, user)
	}
	return users, total, dberr.Wrap(rows.Err(), "iterate_users")
}

// # License Keys

// CreateKeys inserts every key and the activity entry in one transaction.
func (repository *PostgresStore) CreateKeys(context context.Context, keys []LicenseKey, activity Activity) error {
	table := schema.AdminLicenseKey

	return postgres.WithTx(context, repository.pool, func(tx pgx.Tx) error {
		rows := make([][]any, 0, len(keys))
		for _, key := range keys {
			rows = append(rows, []any{key.ID, key.Key, key.Duration, key.Status, key.GeneratedBy, nullable(key.AssignedTo), key.CreatedAt})
		}

		_, err := tx.CopyFrom(context,
			pgx.Identifier(strings.Split(table.Table, ".")),
			[]string{table.ID, table.Key, table.Duration, table.Status, table.GeneratedBy, table.AssignedTo, table.CreatedAt},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return dberr.Wrap(err, "copy_license_keys")
		}

		return insertActivity(context, tx, activity)
	})
}

func (repository *PostgresStore) ListKeys(context context.Context, status KeyStatus, page pagination.Params) ([]LicenseKey, int, error) {
	table := schema.AdminLicenseKey

	where := "TRUE"
	args := []any{}
	if status != "" {
		args = append(args, status)
		where = fmt.Sprintf("%s = $1", table.Status)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s;", table.Table, where)
	if err := repository.pool.QueryRow(context, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_license_keys")
	}

	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, COALESCE(%s::text, ''), COALESCE(%s::text, ''), %s, COALESCE(%s::text, ''), %s
		FROM %s
		WHERE %s
		ORDER BY %s DESC
		LIMIT $%d OFFSET $%d;
	`,
		table.ID,
		table.Key,
		table.Duration,
		table.Status,
		table.GeneratedBy,
		table.RedeemedBy,
		table.RedeemedAt,
		table.AssignedTo,
		table.CreatedAt,
		table.Table,
		where,
		table.CreatedAt,
		len(args)-1, len(args),
	)

	rows, err := repository.pool.Query(context, query, args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_license_keys")
	}
	defer rows.Close()

	keys := []LicenseKey{}
	for rows.Next() {
		var key LicenseKey
		if err := rows.Scan(&key.ID, &key.Key, &key.Duration, &key.Status,
			&key.GeneratedBy, &key.RedeemedBy, &key.RedeemedAt, &key.AssignedTo, &key.CreatedAt); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_license_key")
		}
		keys = append(keys, key)
	}
	return keys, total, dberr.Wrap(rows.Err(), "iterate_license_keys")
}

// # Resellers

// resellerQuery selects reseller rows with their allocation counts. where
// filters the account table aliased as a.
func resellerQuery(where, tail string) string {
	account := schema.UserAccount
	key := schema.AdminLicenseKey

	return fmt.Sprintf(`
		SELECT a.%[1]s, COALESCE(a.%[2]s, ''), COALESCE(a.%[3]s->>'username', ''), a.%[4]s,
		       COUNT(k.%[5]s), COUNT(k.%[5]s) FILTER (WHERE k.%[6]s = '%[7]s'), a.%[8]s
		FROM %[9]s a
		LEFT JOIN %[10]s k ON k.%[11]s = a.%[1]s
		WHERE %[12]s
		GROUP BY a.%[1]s
		%[13]s;
	`,
		account.ID,
		account.Email,
		account.Metadata,
		account.Status,
		key.ID,
		key.Status,
		KeyStatusActive,
		account.CreatedAt,
		account.Table,
		key.Table,
		key.AssignedTo,
		where,
		tail,
	)
}

// resellerConditions restricts a.* to live reseller accounts.
func resellerConditions() []string {
	account := schema.UserAccount
	return []string{
		fmt.Sprintf("a.%s IS NULL", account.DeletedAt),
		fmt.Sprintf("a.%s->>'role' = '%s'", account.Metadata, identity.RoleReseller),
	}
}

/*
ListResellers pages through live reseller accounts, newest first.

Returns:
  - []ResellerSummary: One page
  - int: Total matching accounts
  - error: Storage failures
*/
func (repository *PostgresStore) ListResellers(context context.Context, search string, page pagination.Params) ([]ResellerSummary, int, error) {
	account := schema.UserAccount

	conditions := resellerConditions()
	args := []any{}
	if search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		conditions = append(conditions, fmt.Sprintf("(a.%s ILIKE $%d OR a.%s->>'username' ILIKE $%d)",
			account.Email, len(args), account.Metadata, len(args)))
	}
	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s a WHERE %s;", account.Table, where)
	if err := repository.pool.QueryRow(context, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_resellers")
	}

	args = append(args, page.Limit, page.Offset())
	tail := fmt.Sprintf("ORDER BY a.%s DESC LIMIT $%d OFFSET $%d", account.CreatedAt, len(args)-1, len(args))

	rows, err := repository.pool.Query(context, resellerQuery(where, tail), args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_resellers")
	}

	resellers, err := pgx.CollectRows(rows, pgx.RowToStructByPos[ResellerSummary])
	if err != nil {
		return nil, 0, dberr.Wrap(err, "scan_resellers")
	}
	return resellers, total, nil
}

func (repository *PostgresStore) FindReseller(context context.Context, id string) (*ResellerSummary, error) {
	conditions := append(resellerConditions(), fmt.Sprintf("a.%s = $1", schema.UserAccount.ID))

	rows, err := repository.pool.Query(context, resellerQuery(strings.Join(conditions, " AND "), ""), id)
	if err != nil {
		return nil, dberr.Wrap(err, "find_reseller")
	}

	reseller, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByPos[ResellerSummary])
	if err != nil {
		return nil, dberr.WrapRow(err, "Reseller", "scan_reseller")
	}
	return reseller, nil
}

// # Insights

func (repository *PostgresStore) Stats(context context.Context, since time.Time) (*Stats, error) {
	account := schema.UserAccount
	key := schema.AdminLicenseKey
	session := schema.UserSession

	query := fmt.Sprintf(`
		SELECT
			(SELECT COUNT(*) FROM %[1]s WHERE %[2]s IS NULL),
			(SELECT COUNT(*) FROM %[3]s WHERE %[4]s = 'active'),
			(SELECT COUNT(*) FROM %[1]s WHERE %[2]s IS NULL AND %[5]s >= $1),
			(SELECT COUNT(*) FROM %[6]s WHERE %[7]s = FALSE AND %[8]s > NOW());
	`,
		account.Table,
		account.DeletedAt,
		key.Table,
		key.Status,
		account.LastSignInAt,
		session.Table,
		session.IsRevoked,
		session.ExpiresAt,
	)

	stats := &Stats{}
	err := repository.pool.QueryRow(context, query, since).
		Scan(&stats.RegisteredUsers, &stats.ActiveKeys, &stats.DailySignIns, &stats.ActiveSessions)
	if err != nil {
		return nil, dberr.Wrap(err, "admin_stats")
	}
	return stats, nil
}

// # Activity Log

func (repository *PostgresStore) RecordActivity(context context.Context, activity Activity) error {
	return insertActivity(context, repository.pool, activity)
}

func insertActivity(context context.Context, querier postgres.Querier, activity Activity) error {
	table := schema.AdminActivityLog
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES (NULLIF($1, '')::uuid, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), $7);
	`,
		table.Table,
		table.ActorID,
		table.Action,
		table.EntityType,
		table.EntityID,
		table.Details,
		table.IPAddress,
		table.CreatedAt,
	)

	_, err := querier.Exec(context, query,
		activity.ActorID,
		activity.Action,
		activity.EntityType,
		activity.EntityID,
		activity.Details,
		activity.IPAddress,
		activity.CreatedAt,
	)
	return dberr.Wrap(err, "insert_activity")
}

func (repository *PostgresStore) RecentActivity(context context.Context, limit int) ([]Activity, error) {
	table := schema.AdminActivityLog
	query := fmt.Sprintf(`
		SELECT %s, COALESCE(%s::text, ''), %s, %s, COALESCE(%s, ''), %s, COALESCE(%s, ''), %s
		FROM %s
		ORDER BY %s DESC
		LIMIT $1;
	`,
		table.ID,
		table.ActorID,
		table.Action,
		table.EntityType,
		table.EntityID,
		table.Details,
		table.IPAddress,
		table.CreatedAt,
		table.Table,
		table.ID,
	)

	rows, err := repository.pool.Query(context, query, limit)
	if err != nil {
		return nil, dberr.Wrap(err, "list_activity")
	}
	defer rows.Close()

	entries := []Activity{}
	for rows.Next() {
		var entry Activity
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.Action, &entry.EntityType,
			&entry.EntityID, &entry.Details, &entry.IPAddress, &entry.CreatedAt); err != nil {
			return nil, dberr.Wrap(err, "scan_activity")
		}
		entries = append(entries, entry)
	}
	return entries, dberr.Wrap(rows.Err(), "iterate_activity")
}

// nullable maps an empty identifier to SQL NULL.
func nullable(id string) any {
	if id == "" {
		return nil
	}
	return id
}

// escapeLike neutralises LIKE wildcards in user input.
func escapeLike(raw string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(raw)
}
