// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/essence/internal/identity"
	"github.com/taibuivan/essence/internal/notify"
	"github.com/taibuivan/essence/internal/platform/apperr"
	"github.com/taibuivan/essence/internal/platform/validate"
	"github.com/taibuivan/essence/internal/session"
	"github.com/taibuivan/essence/internal/status"
	"github.com/taibuivan/essence/pkg/pagination"
	"github.com/taibuivan/essence/pkg/uuid"
)

const (
	FieldRole     = "role"
	FieldStatus   = "status"
	FieldQuantity = "quantity"
	FieldDuration = "duration"

	// statsWindow is the look-back of the daily sign-in counter.
	statsWindow = 24 * time.Hour
)

// Dependencies groups what the console needs.
type Dependencies struct {
	Store    Store
	Accounts Accounts
	Statuses *status.Board
	Notifier Notifier
	Logger   *slog.Logger

	// Random feeds key generation. Defaults to crypto/rand.
	Random io.Reader
}

// Service implements the console operations.
type Service struct {
	store    Store
	accounts Accounts
	statuses *status.Board
	notifier Notifier
	logger   *slog.Logger
	random   io.Reader
	now      func() time.Time
}

// NewService constructs a new [Service].
func NewService(deps Dependencies) *Service {
	random := deps.Random
	if random == nil {
		random = rand.Reader
	}
	return &Service{
		store:    deps.Store,
		accounts: deps.Accounts,
		statuses: deps.Statuses,
		notifier: deps.Notifier,
		logger:   deps.Logger,
		random:   random,
		now:      time.Now,
	}
}

// # Users

// ListUsers returns one page of accounts, newest first.
func (service *Service) ListUsers(context context.Context, filter UserFilter, page pagination.Params) ([]UserSummary, int, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, validate.Invalid(FieldStatus, validate.OneOfMessage("active", "inactive", "suspended"))
	}
	return service.store.ListUsers(context, filter, page)
}

/*
SetUserRole changes the role of an account.

Connected clients of that account re-resolve their elevation through the
session event bus. An administrator cannot change their own role.

Returns:
  - *session.User: The updated account
  - error: Validation, Forbidden or NotFound
*/
func (service *Service) SetUserRole(context context.Context, actor Actor, userID, roleName string) (*session.User, error) {
	role := identity.ParseRole(roleName)
	if !role.Known() {
		return nil, validate.Invalid(FieldRole, "Unknown role")
	}
	if userID == actor.ID {
		return nil, apperr.Forbidden("You cannot change your own role")
	}

	user, err := service.accounts.SetRole(context, userID, role)
	if err != nil {
		return nil, err
	}

	service.record(context, actor, ActionRoleChanged, entityUser, userID, map[string]any{"role": role.String()})
	return user, nil
}

/*
SetUserStatus changes the administrative status of an account.

Suspending an account revokes all of its sessions. An administrator cannot
change their own status.
*/
func (service *Service) SetUserStatus(context context.Context, actor Actor, userID string, status session.Status) (*session.User, error) {
	if !status.Valid() {
		return nil, validate.Invalid(FieldStatus, validate.OneOfMessage("active", "inactive", "suspended"))
	}
	if userID == actor.ID {
		return nil, apperr.Forbidden("You cannot change your own status")
	}

	user, err := service.accounts.SetStatus(context, userID, status)
	if err != nil {
		return nil, err
	}

	service.record(context, actor, ActionStatusChanged, entityUser, userID, map[string]any{"status": string(status)})
	return user, nil
}

// # License Keys

/*
GenerateKeys creates quantity fresh keys valid for duration.

Parameters:
  - context: context.Context
  - actor: Actor
  - quantity: int (1 to 100)
  - duration: KeyDuration

Returns:
  - []LicenseKey: The stored keys
  - error: Validation or storage failures
*/
func (service *Service) GenerateKeys(context context.Context, actor Actor, quantity int, duration KeyDuration) ([]LicenseKey, error) {
	if err := validateBatch(quantity, duration); err != nil {
		return nil, err
	}

	keys, err := service.mintKeys(actor, quantity, duration, "")
	if err != nil {
		return nil, err
	}

	activity := service.activity(actor, ActionKeysGenerated, entityLicenseKey, "", map[string]any{
		"quantity": quantity,
		"duration": string(duration),
	})
	if err := service.store.CreateKeys(context, keys, activity); err != nil {
		return nil, fmt.Errorf("admin_create_keys_failed: %w", err)
	}

	service.logger.InfoContext(context, "license_keys_generated",
		slog.String("actor_id", actor.ID),
		slog.Int("quantity", quantity),
		slog.String("duration", string(duration)),
	)
	return keys, nil
}

func validateBatch(quantity int, duration KeyDuration) error {
	validator := &validate.Validator{}
	validator.Range(FieldQuantity, quantity, MinKeyQuantity, MaxKeyQuantity)
	validator.FailIf(FieldDuration, !duration.Valid(), validate.OneOfMessage("1d", "7d", "30d", "lifetime"))
	return validator.Err()
}

// mintKeys draws quantity distinct keys. assignedTo is empty for unallocated keys.
func (service *Service) mintKeys(actor Actor, quantity int, duration KeyDuration, assignedTo string) ([]LicenseKey, error) {
	now := service.now().UTC()
	seen := make(map[string]struct{}, quantity)
	keys := make([]LicenseKey, 0, quantity)

	for len(keys) < quantity {
		key, err := GenerateKey(service.random)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		keys = append(keys, LicenseKey{
			ID:          uuid.New(),
			Key:         key,
			Duration:    duration,
			Status:      KeyStatusActive,
			GeneratedBy: actor.ID,
			AssignedTo:  assignedTo,
			CreatedAt:   now,
		})
	}
	return keys, nil
}

// ListKeys returns one page of keys, newest first. An empty status lists all.
func (service *Service) ListKeys(context context.Context, keyStatus KeyStatus, page pagination.Params) ([]LicenseKey, int, error) {
	switch keyStatus {
	case "", KeyStatusActive, KeyStatusRedeemed, KeyStatusRevoked:
	default:
		return nil, 0, validate.Invalid(FieldStatus, validate.OneOfMessage("active", "redeemed", "revoked"))
	}
	return service.store.ListKeys(context, keyStatus, page)
}

// # Resellers

// ListResellers returns one page of reseller accounts with their key counts.
func (service *Service) ListResellers(context context.Context, search string, page pagination.Params) ([]ResellerSummary, int, error) {
	return service.store.ListResellers(context, strings.TrimSpace(search), page)
}

/*
AllocateResellerKeys generates a batch of keys assigned to a reseller.

Only active reseller accounts receive keys. The keys and their activity entry
are stored together.

Returns:
  - []LicenseKey: The allocated keys
  - error: Validation, NotFound, Conflict or storage failures
*/
func (service *Service) AllocateResellerKeys(context context.Context, actor Actor, resellerID string, quantity int, duration KeyDuration) ([]LicenseKey, error) {
	if err := validateBatch(quantity, duration); err != nil {
		return nil, err
	}
	if !uuid.Valid(resellerID) {
		return nil, apperr.NotFound("Reseller")
	}

	reseller, err := service.store.FindReseller(context, resellerID)
	if err != nil {
		return nil, err
	}
	if reseller.Status != session.StatusActive {
		return nil, apperr.Conflict("Reseller account is not active")
	}

	keys, err := service.mintKeys(actor, quantity, duration, reseller.ID)
	if err != nil {
		return nil, err
	}

	activity := service.activity(actor, ActionKeysAllocated, entityReseller, reseller.ID, map[string]any{
		"quantity": quantity,
		"duration": string(duration),
	})
	if err := service.store.CreateKeys(context, keys, activity); err != nil {
		return nil, fmt.Errorf("admin_allocate_keys_failed: %w", err)
	}

	service.logger.InfoContext(context, "reseller_keys_allocated",
		slog.String("actor_id", actor.ID),
		slog.String("reseller_id", reseller.ID),
		slog.Int("quantity", quantity),
		slog.String("duration", string(duration)),
	)
	return keys, nil
}

// # Platform Status

// UpdateSystemStatus sets the platform-wide status.
func (service *Service) UpdateSystemStatus(context context.Context, actor Actor, level status.Level, message string) (*status.System, error) {
	system, err := service.statuses.UpdateSystem(context, actor.ID, level, message)
	if err != nil {
		return nil, err
	}

	service.record(context, actor, ActionSystemStatusSet, entitySystemStatus, "", map[string]any{"status": string(level)})
	return system, nil
}

// StatusHistory lists recent system status changes.
func (service *Service) StatusHistory(context context.Context, limit int) ([]status.Change, error) {
	return service.statuses.History(context, limit)
}

// Services lists service statuses.
func (service *Service) Services(context context.Context) ([]status.Service, error) {
	return service.statuses.Services(context)
}

// UpdateServiceStatus sets the status of one service.
func (service *Service) UpdateServiceStatus(context context.Context, actor Actor, id int, level status.Level, message string) (*status.Service, error) {
	item, err := service.statuses.UpdateService(context, id, level, message)
	if err != nil {
		return nil, err
	}

	service.record(context, actor, ActionServiceStatusSet, entityServiceStatus, fmt.Sprint(id), map[string]any{
		"name":   item.Name,
		"status": string(level),
	})
	return item, nil
}

// # Notifications

// SendNotification sends a global notice, or a direct one when input.UserID is set.
func (service *Service) SendNotification(context context.Context, actor Actor, input notify.Input) (*notify.Notification, error) {
	input.SentBy = actor.ID

	notification, err := service.notifier.Send(context, input)
	if err != nil {
		return nil, err
	}

	service.record(context, actor, ActionNotificationSent, entityNotification, notification.ID, map[string]any{
		"global": notification.Global,
		"type":   string(notification.Type),
	})
	return notification, nil
}

// # Insights

// Stats returns the dashboard counters.
func (service *Service) Stats(context context.Context) (*Stats, error) {
	return service.store.Stats(context, service.now().Add(-statsWindow))
}

// RecentActivity returns the latest activity entries, newest first.
func (service *Service) RecentActivity(context context.Context, limit int) ([]Activity, error) {
	if limit < 1 {
		limit = DefaultActivityLimit
	}
	if limit > MaxActivityLimit {
		limit = MaxActivityLimit
	}
	return service.store.RecentActivity(context, limit)
}

// # Activity Log

func (service *Service) activity(actor Actor, action, entityType, entityID string, details map[string]any) Activity {
	return Activity{
		ActorID:    actor.ID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		IPAddress:  actor.IPAddress,
		CreatedAt:  service.now().UTC(),
	}
}

// record appends to the activity log. Failures are logged only.
func (service *Service) record(context context.Context, actor Actor, action, entityType, entityID string, details map[string]any) {
	entry := service.activity(actor, action, entityType, entityID, details)
	if err := service.store.RecordActivity(context, entry); err != nil {
		service.logger.ErrorContext(context, "admin_activity_record_failed",
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
}
