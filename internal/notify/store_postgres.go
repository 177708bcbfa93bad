// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/essence/internal/platform/apperr"
	"github.com/taibuivan/essence/internal/platform/database/schema"
	"github.com/taibuivan/essence/internal/platform/dberr"
)

// PostgresStore implements [Store] using pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a new [PostgresStore].
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (repository *PostgresStore) Create(context context.Context, notification *Notification) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6, NULLIF($7, '')::uuid, $8);
	`,
		schema.AdminNotification.Table,
		schema.AdminNotification.ID,
		schema.AdminNotification.UserID,
		schema.AdminNotification.Title,
		schema.AdminNotification.Message,
		schema.AdminNotification.Type,
		schema.AdminNotification.IsGlobal,
		schema.AdminNotification.SentBy,
		schema.AdminNotification.CreatedAt,
	)

	_, err := repository.pool.Exec(context, query,
		notification.ID,
		notification.UserID,
		notification.Title,
		notification.Message,
		notification.Type,
		notification.Global,
		notification.SentBy,
		notification.CreatedAt,
	)
	return dberr.Wrap(err, "create_notification")
}

// visibleTo filters notices addressed to $1 or to everyone.
var visibleTo = fmt.Sprintf("(n.%s = $1 OR n.%s = TRUE)",
	schema.AdminNotification.UserID,
	schema.AdminNotification.IsGlobal,
)

/*
ListForUser returns the user's inbox joined with their receipts.

Returns:
  - []Notification: Newest first, dismissed notices excluded
  - error: Storage failures
*/
func (repository *PostgresStore) ListForUser(context context.Context, userID string, limit int) ([]Notification, error) {
	query := fmt.Sprintf(`
		SELECT n.%s, COALESCE(n.%s::text, ''), n.%s, n.%s, n.%s, n.%s,
		       r.%s IS NOT NULL, COALESCE(n.%s::text, ''), n.%s
		FROM %s n
		LEFT JOIN %s r ON r.%s = n.%s AND r.%s = $1
		WHERE %s AND r.%s IS NULL
		ORDER BY n.%s DESC
		LIMIT $2;
	`,
		schema.AdminNotification.ID,
		schema.AdminNotification.UserID,
		schema.AdminNotification.Title,
		schema.AdminNotification.Message,
		schema.AdminNotification.Type,
		schema.AdminNotification.IsGlobal,
		schema.AdminNotificationReceipt.ReadAt,
		schema.AdminNotification.SentBy,
		schema.AdminNotification.CreatedAt,
		schema.AdminNotification.Table,
		schema.AdminNotificationReceipt.Table,
		schema.AdminNotificationReceipt.NotificationID,
		schema.AdminNotification.ID,
		schema.AdminNotificationReceipt.UserID,
		visibleTo,
		schema.AdminNotificationReceipt.DismissedAt,
		schema.AdminNotification.CreatedAt,
	)

	rows, err := repository.pool.Query(context, query, userID, limit)
	if err != nil {
		return nil, dberr.Wrap(err, "list_notifications")
	}
	defer rows.Close()

	notifications := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Global, &n.Read, &n.SentBy, &n.CreatedAt); err != nil {
			return nil, dberr.Wrap(err, "scan_notification")
		}
		notifications = append(notifications, n)
	}
	return notifications, dberr.Wrap(rows.Err(), "iterate_notifications")
}

func (repository *PostgresStore) MarkRead(context context.Context, userID, notificationID string) error {
	return repository.receipt(context, userID, notificationID, schema.AdminNotificationReceipt.ReadAt, "mark_notification_read")
}

func (repository *PostgresStore) Dismiss(context context.Context, userID, notificationID string) error {
	return repository.receipt(context, userID, notificationID, schema.AdminNotificationReceipt.DismissedAt, "dismiss_notification")
}

// receipt stamps column on the user's receipt for a notice they can see.
func (repository *PostgresStore) receipt(context context.Context, userID, notificationID, column, action string) error {
	query := fmt.Sprintf(`
		INSERT INTO %[1]s (%[2]s, %[3]s, %[4]s)
		SELECT n.%[5]s, $1, NOW()
		FROM %[6]s n
		WHERE n.%[5]s = $2 AND %[7]s
		ON CONFLICT (%[2]s, %[3]s) DO UPDATE
		SET %[4]s = COALESCE(%[1]s.%[4]s, EXCLUDED.%[4]s);
	`,
		schema.AdminNotificationReceipt.Table,
		schema.AdminNotificationReceipt.NotificationID,
		schema.AdminNotificationReceipt.UserID,
		column,
		schema.AdminNotification.ID,
		schema.AdminNotification.Table,
		visibleTo,
	)

	tag, err := repository.pool.Exec(context, query, userID, notificationID)
	if err != nil {
		return dberr.Wrap(err, action)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Notification")
	}
	return nil
}

func (repository *PostgresStore) MarkAllRead(context context.Context, userID string) (int64, error) {
	query := fmt.Sprintf(`
		INSERT INTO %[1]s (%[2]s, %[3]s, %[4]s)
		SELECT n.%[5]s, $1, NOW()
		FROM %[6]s n
		WHERE %[7]s
		ON CONFLICT (%[2]s, %[3]s) DO UPDATE
		SET %[4]s = EXCLUDED.%[4]s
		WHERE %[1]s.%[4]s IS NULL;
	`,
		schema.AdminNotificationReceipt.Table,
		schema.AdminNotificationReceipt.NotificationID,
		schema.AdminNotificationReceipt.UserID,
		schema.AdminNotificationReceipt.ReadAt,
		schema.AdminNotification.ID,
		schema.AdminNotification.Table,
		visibleTo,
	)

	tag, err := repository.pool.Exec(context, query, userID)
	if err != nil {
		return 0, dberr.Wrap(err, "mark_all_notifications_read")
	}
	return tag.RowsAffected(), nil
}
