// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/essence/internal/platform/validate"
	"github.com/taibuivan/essence/pkg/uuid"
)

const (
	FieldTitle   = "title"
	FieldMessage = "message"
	FieldType    = "type"
	FieldUserID  = "user_id"

	maxTitleLength   = 120
	maxMessageLength = 1000

	DefaultListLimit = 50
)

// Service sends notices and manages each user's inbox.
type Service struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
}

// NewService constructs a new [Service].
func NewService(store Store, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{store: store, publisher: publisher, logger: logger}
}

/*
Send validates, stores and publishes a notice.

A publish failure is logged and does not fail the call: the notice is already
stored and will appear in the inbox on the next fetch.

Returns:
  - *Notification: The stored notice
  - error: Validation or storage failures
*/
func (service *Service) Send(context context.Context, input Input) (*Notification, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Message = strings.TrimSpace(input.Message)
	if input.Type == "" {
		input.Type = TypeInfo
	}

	validator := &validate.Validator{}
	validator.Required(FieldTitle, input.Title).MaxLen(FieldTitle, input.Title, maxTitleLength)
	validator.Required(FieldMessage, input.Message).MaxLen(FieldMessage, input.Message, maxMessageLength)
	validator.FailIf(FieldType, !input.Type.Valid(), validate.OneOfMessage("info", "success", "warning", "error"))
	if input.UserID != "" {
		validator.UUID(FieldUserID, input.UserID)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	notification := &Notification{
		ID:        uuid.New(),
		UserID:    input.UserID,
		Title:     input.Title,
		Message:   input.Message,
		Type:      input.Type,
		Global:    input.UserID == "",
		SentBy:    input.SentBy,
		CreatedAt: time.Now().UTC(),
	}

	if err := service.store.Create(context, notification); err != nil {
		return nil, fmt.Errorf("notify_create_failed: %w", err)
	}

	if err := service.publisher.Publish(context, *notification); err != nil {
		service.logger.WarnContext(context, "notification_publish_failed",
			slog.String("notification_id", notification.ID),
			slog.String("error", err.Error()),
		)
	}

	service.logger.InfoContext(context, "notification_sent",
		slog.String("notification_id", notification.ID),
		slog.Bool("global", notification.Global),
	)
	return notification, nil
}

// Inbox lists the caller's notices.
func (service *Service) Inbox(context context.Context, userID string) ([]Notification, error) {
	return service.store.ListForUser(context, userID, DefaultListLimit)
}

// MarkRead marks one notice as read for userID.
func (service *Service) MarkRead(context context.Context, userID, notificationID string) error {
	if err := validateID(notificationID); err != nil {
		return err
	}
	return service.store.MarkRead(context, userID, notificationID)
}

// MarkAllRead marks every visible notice as read and reports how many changed.
func (service *Service) MarkAllRead(context context.Context, userID string) (int64, error) {
	return service.store.MarkAllRead(context, userID)
}

// Dismiss hides one notice from userID's inbox.
func (service *Service) Dismiss(context context.Context, userID, notificationID string) error {
	if err := validateID(notificationID); err != nil {
		return err
	}
	return service.store.Dismiss(context, userID, notificationID)
}

// Subscribe streams live notices for userID.
func (service *Service) Subscribe(context context.Context, userID string) (<-chan Notification, func(), error) {
	return service.publisher.Subscribe(context, userID)
}

func validateID(id string) error {
	validator := &validate.Validator{}
	validator.UUID("id", id)
	return validator.Err()
}
