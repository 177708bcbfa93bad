// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package admin implements the administrator console.

Every operation here is reachable only by elevated principals. Account changes
are delegated to the session service so that connected clients re-resolve
their elevation; everything else is stored in the admin schema. Each mutation
leaves an entry in the activity log.
*/
package admin

import (
	"context"
	"time"

	"github.com/taibuivan/essence/internal/identity"
	"github.com/taibuivan/essence/internal/notify"
	"github.com/taibuivan/essence/internal/session"
	"github.com/taibuivan/essence/pkg/pagination"
)

// # Domain Types

// Actor is the administrator performing an operation.
type Actor struct {
	ID        string
	IPAddress string
}

// UserSummary is one row of the user list.
type UserSummary struct {
	ID           string         `json:"id"`
	Email        string         `json:"email,omitempty"`
	Username     string         `json:"username,omitempty"`
	Role         string         `json:"role,omitempty"`
	Status       session.Status `json:"status"`
	Provider     string         `json:"provider"`
	LastSignInAt *time.Time     `json:"last_sign_in_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// UserFilter narrows the user list.
type UserFilter struct {
	// Search matches email or username, case-insensitively.
	Search string
	Status session.Status
}

// ResellerSummary is one row of the reseller console. Key counts cover keys
// allocated to the reseller; remaining keys are those not yet redeemed or revoked.
type ResellerSummary struct {
	ID            string         `json:"id"`
	Email         string         `json:"email,omitempty"`
	Username      string         `json:"username,omitempty"`
	Status        session.Status `json:"status"`
	KeysGenerated int            `json:"keys_generated"`
	KeysRemaining int            `json:"keys_remaining"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Stats are the dashboard counters.
type Stats struct {
	RegisteredUsers int `json:"registered_users"`
	ActiveKeys      int `json:"active_keys"`
	DailySignIns    int `json:"daily_sign_ins"`
	ActiveSessions  int `json:"active_sessions"`
}

// Activity is one entry of the activity log.
type Activity struct {
	ID         int64          `json:"id"`
	ActorID    string         `json:"actor_id,omitempty"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	IPAddress  string         `json:"ip_address,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Activity actions.
const (
	ActionRoleChanged      = "user.role_changed"
	ActionStatusChanged    = "user.status_changed"
	ActionKeysGenerated    = "keys.generated"
	ActionKeysAllocated    = "reseller.keys_allocated"
	ActionSystemStatusSet  = "status.system_updated"
	ActionServiceStatusSet = "status.service_updated"
	ActionNotificationSent = "notification.sent"
)

const (
	entityUser          = "user"
	entityLicenseKey    = "license_key"
	entityReseller      = "reseller"
	entitySystemStatus  = "system_status"
	entityServiceStatus = "service_status"
	entityNotification  = "notification"

	DefaultActivityLimit = 10
	MaxActivityLimit     = 100
)

// # Dependencies

// Store persists console data.
type Store interface {
	ListUsers(context context.Context, filter UserFilter, page pagination.Params) ([]UserSummary, int, error)

	// CreateKeys inserts keys and their activity entry atomically.
	CreateKeys(context context.Context, keys []LicenseKey, activity Activity) error

	ListKeys(context context.Context, status KeyStatus, page pagination.Params) ([]LicenseKey, int, error)

	// ListResellers pages through live reseller accounts. Search matches
	// email or username.
	ListResellers(context context.Context, search string, page pagination.Params) ([]ResellerSummary, int, error)

	// FindReseller returns NotFound unless id is a live reseller account.
	FindReseller(context context.Context, id string) (*ResellerSummary, error)

	Stats(context context.Context, since time.Time) (*Stats, error)

	RecordActivity(context context.Context, activity Activity) error

	RecentActivity(context context.Context, limit int) ([]Activity, error)
}

// Accounts changes account state and fans the change out to live sessions.
type Accounts interface {
	SetRole(context context.Context, userID string, role identity.Role) (*session.User, error)
	SetStatus(context context.Context, userID string, status session.Status) (*session.User, error)
}

// Notifier sends notices to users.
type Notifier interface {
	Send(context context.Context, input notify.Input) (*notify.Notification, error)
}
