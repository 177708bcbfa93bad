// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package status

import (
	"context"
	"fmt"
	"strings"

	"github.com/taibuivan/essence/internal/platform/validate"
)

const (
	FieldStatus  = "status"
	FieldMessage = "message"

	maxMessageLength = 500

	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 50
)

// Board validates status changes before they reach the [Store].
type Board struct {
	store Store
}

// NewService constructs a new [Board].
func NewService(store Store) *Board {
	return &Board{store: store}
}

// Overview returns the system status together with every service status.
func (service *Board) Overview(context context.Context) (*Overview, error) {
	system, err := service.store.System(context)
	if err != nil {
		return nil, fmt.Errorf("status_overview_system_failed: %w", err)
	}

	services, err := service.store.Services(context)
	if err != nil {
		return nil, fmt.Errorf("status_overview_services_failed: %w", err)
	}

	return &Overview{System: system, Services: services}, nil
}

/*
UpdateSystem sets the platform-wide status.

Parameters:
  - context: context.Context
  - actorID: string (the administrator making the change)
  - level: Level
  - message: string

Returns:
  - *System: The stored status
  - error: Validation or storage failures
*/
func (service *Board) UpdateSystem(context context.Context, actorID string, level Level, message string) (*System, error) {
	message = strings.TrimSpace(message)
	if err := validateChange(level, message, true); err != nil {
		return nil, err
	}

	return service.store.UpdateSystem(context, System{Status: level, Message: message, UpdatedBy: actorID})
}

// History returns the latest system status changes, newest first.
func (service *Board) History(context context.Context, limit int) ([]Change, error) {
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return service.store.History(context, limit)
}

// Services lists service statuses ordered by name.
func (service *Board) Services(context context.Context) ([]Service, error) {
	return service.store.Services(context)
}

// UpdateService sets the status of one service. The message is optional.
func (service *Board) UpdateService(context context.Context, id int, level Level, message string) (*Service, error) {
	message = strings.TrimSpace(message)
	if err := validateChange(level, message, false); err != nil {
		return nil, err
	}
	return service.store.UpdateService(context, id, level, message)
}

func validateChange(level Level, message string, messageRequired bool) error {
	validator := &validate.Validator{}
	validator.FailIf(FieldStatus, !level.Valid(), validate.OneOfMessage("operational", "degraded", "maintenance", "outage"))
	if messageRequired {
		validator.Required(FieldMessage, message)
	}
	validator.MaxLen(FieldMessage, message, maxMessageLength)
	return validator.Err()
}
