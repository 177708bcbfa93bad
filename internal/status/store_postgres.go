// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package status

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/essence/internal/platform/database/schema"
	"github.com/taibuivan/essence/internal/platform/dberr"
	"github.com/taibuivan/essence/internal/platform/postgres"
)

// systemRowID is the key of the single system status row.
const systemRowID = 1

// PostgresStore implements [Store] using pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a new [PostgresStore].
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (repository *PostgresStore) System(context context.Context) (*System, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, COALESCE(%s::text, ''), %s
		FROM %s
		WHERE %s = $1;
	`,
		schema.AdminSystemStatus.Status,
		schema.AdminSystemStatus.Message,
		schema.AdminSystemStatus.UpdatedBy,
		schema.AdminSystemStatus.UpdatedAt,
		schema.AdminSystemStatus.Table,
		schema.AdminSystemStatus.ID,
	)

	system := &System{}
	err := repository.pool.QueryRow(context, query, systemRowID).
		Scan(&system.Status, &system.Message, &system.UpdatedBy, &system.UpdatedAt)
	if err != nil {
		return nil, dberr.Wrap(err, "get_system_status")
	}
	return system, nil
}

/*
UpdateSystem upserts the system row and records the change in one transaction.

Returns:
  - *System: The stored row
  - error: Storage failures
*/
func (repository *PostgresStore) UpdateSystem(context context.Context, update System) (*System, error) {
	upsert := fmt.Sprintf(`
		INSERT INTO %[1]s (%[2]s, %[3]s, %[4]s, %[5]s, %[6]s)
		VALUES ($1, $2, $3, NULLIF($4, '')::uuid, $5)
		ON CONFLICT (%[2]s) DO UPDATE
		SET %[3]s = EXCLUDED.%[3]s, %[4]s = EXCLUDED.%[4]s, %[5]s = EXCLUDED.%[5]s, %[6]s = EXCLUDED.%[6]s;
	`,
		schema.AdminSystemStatus.Table,
		schema.AdminSystemStatus.ID,
		schema.AdminSystemStatus.Status,
		schema.AdminSystemStatus.Message,
		schema.AdminSystemStatus.UpdatedBy,
		schema.AdminSystemStatus.UpdatedAt,
	)

	history := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4);
	`,
		schema.AdminStatusHistory.Table,
		schema.AdminStatusHistory.Status,
		schema.AdminStatusHistory.Message,
		schema.AdminStatusHistory.ChangedBy,
		schema.AdminStatusHistory.CreatedAt,
	)

	update.UpdatedAt = time.Now().UTC()

	err := postgres.WithTx(context, repository.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(context, upsert, systemRowID, update.Status, update.Message, update.UpdatedBy, update.UpdatedAt); err != nil {
			return dberr.Wrap(err, "upsert_system_status")
		}
		if _, err := tx.Exec(context, history, update.Status, update.Message, update.UpdatedBy, update.UpdatedAt); err != nil {
			return dberr.Wrap(err, "insert_status_history")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &update, nil
}

func (repository *PostgresStore) History(context context.Context, limit int) ([]Change, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, COALESCE(%s::text, ''), %s
		FROM %s
		ORDER BY %s DESC, %s DESC
		LIMIT $1;
	`,
		schema.AdminStatusHistory.ID,
		schema.AdminStatusHistory.Status,
		schema.AdminStatusHistory.Message,
		schema.AdminStatusHistory.ChangedBy,
		schema.AdminStatusHistory.CreatedAt,
		schema.AdminStatusHistory.Table,
		schema.AdminStatusHistory.CreatedAt,
		schema.AdminStatusHistory.ID,
	)

	rows, err := repository.pool.Query(context, query, limit)
	if err != nil {
		return nil, dberr.Wrap(err, "list_status_history")
	}
	defer rows.Close()

	changes := []Change{}
	for rows.Next() {
		var change Change
		if err := rows.Scan(&change.ID, &change.Status, &change.Message, &change.ChangedBy, &change.CreatedAt); err != nil {
			return nil, dberr.Wrap(err, "scan_status_history")
		}
		changes = append(changes, change)
	}
	return changes, dberr.Wrap(rows.Err(), "iterate_status_history")
}

func (repository *PostgresStore) Services(context context.Context) ([]Service, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, COALESCE(%s, ''), %s
		FROM %s
		ORDER BY %s ASC;
	`,
		schema.AdminServiceStatus.ID,
		schema.AdminServiceStatus.Name,
		schema.AdminServiceStatus.Status,
		schema.AdminServiceStatus.Message,
		schema.AdminServiceStatus.UpdatedAt,
		schema.AdminServiceStatus.Table,
		schema.AdminServiceStatus.Name,
	)

	rows, err := repository.pool.Query(context, query)
	if err != nil {
		return nil, dberr.Wrap(err, "list_service_statuses")
	}
	defer rows.Close()

	services := []Service{}
	for rows.Next() {
		var item Service
		if err := rows.Scan(&item.ID, &item.Name, &item.Status, &item.Message, &item.UpdatedAt); err != nil {
			return nil, dberr.Wrap(err, "scan_service_status")
		}
		services = append(services, item)
	}
	return services, dberr.Wrap(rows.Err(), "iterate_service_statuses")
}

func (repository *PostgresStore) UpdateService(context context.Context, id int, level Level, message string) (*Service, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = NULLIF($3, ''), %s = NOW()
		WHERE %s = $1
		RETURNING %s, %s, %s, COALESCE(%s, ''), %s;
	`,
		schema.AdminServiceStatus.Table,
		schema.AdminServiceStatus.Status,
		schema.AdminServiceStatus.Message,
		schema.AdminServiceStatus.UpdatedAt,
		schema.AdminServiceStatus.ID,
		schema.AdminServiceStatus.ID,
		schema.AdminServiceStatus.Name,
		schema.AdminServiceStatus.Status,
		schema.AdminServiceStatus.Message,
		schema.AdminServiceStatus.UpdatedAt,
	)

	item := &Service{}
	err := repository.pool.QueryRow(context, query, id, level, message).
		Scan(&item.ID, &item.Name, &item.Status, &item.Message, &item.UpdatedAt)
	if err != nil {
		return nil, dberr.Wrap(err, "update_service_status")
	}
	return item, nil
}
