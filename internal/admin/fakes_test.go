// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin_test

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/essence/internal/admin"
	"github.com/taibuivan/essence/internal/identity"
	"github.com/taibuivan/essence/internal/notify"
	"github.com/taibuivan/essence/internal/platform/apperr"
	"github.com/taibuivan/essence/internal/session"
	"github.com/taibuivan/essence/internal/status"
	"github.com/taibuivan/essence/pkg/pagination"
)

const (
	adminID    = "01920000-0000-7000-8000-0000000000ad"
	userID     = "01920000-0000-7000-8000-000000000001"
	resellerID = "01920000-0000-7000-8000-0000000000e1"
)

// memoryStore implements admin.Store in memory.
type memoryStore struct {
	users       []admin.UserSummary
	resellers   []admin.ResellerSummary
	keys        []admin.LicenseKey
	activity    []admin.Activity
	activityErr error
	since       time.Time
}

func (store *memoryStore) ListUsers(_ context.Context, filter admin.UserFilter, page pagination.Params) ([]admin.UserSummary, int, error) {
	matched := []admin.UserSummary{}
	for _, user := range store.users {
		if filter.Status == "" || user.Status == filter.Status {
			matched = append(matched, user)
		}
	}
	end := min(page.Offset()+page.Limit, len(matched))
	if page.Offset() >= len(matched) {
		return []admin.UserSummary{}, len(matched), nil
	}
	return matched[page.Offset():end], len(matched), nil
}

func (store *memoryStore) CreateKeys(_ context.Context, keys []admin.LicenseKey, activity admin.Activity) error {
	store.keys = append(store.keys, keys...)
	store.activity = append(store.activity, activity)
	return nil
}

func (store *memoryStore) ListKeys(_ context.Context, keyStatus admin.KeyStatus, page pagination.Params) ([]admin.LicenseKey, int, error) {
	matched := []admin.LicenseKey{}
	for _, key := range store.keys {
		if keyStatus == "" || key.Status == keyStatus {
			matched = append(matched, key)
		}
	}
	return matched, len(matched), nil
}

func (store *memoryStore) ListResellers(_ context.Context, search string, page pagination.Params) ([]admin.ResellerSummary, int, error) {
	matched := []admin.ResellerSummary{}
	for _, reseller := range store.resellers {
		if search == "" || strings.Contains(reseller.Username, search) || strings.Contains(reseller.Email, search) {
			matched = append(matched, store.counted(reseller))
		}
	}
	if page.Offset() >= len(matched) {
		return []admin.ResellerSummary{}, len(matched), nil
	}
	return matched[page.Offset():min(page.Offset()+page.Limit, len(matched))], len(matched), nil
}

func (store *memoryStore) FindReseller(_ context.Context, id string) (*admin.ResellerSummary, error) {
	for _, reseller := range store.resellers {
		if reseller.ID == id {
			counted := store.counted(reseller)
			return &counted, nil
		}
	}
	return nil, apperr.NotFound("Reseller")
}

// counted fills the key counts from the allocated keys.
func (store *memoryStore) counted(reseller admin.ResellerSummary) admin.ResellerSummary {
	for _, key := range store.keys {
		if key.AssignedTo != reseller.ID {
			continue
		}
		reseller.KeysGenerated++
		if key.Status == admin.KeyStatusActive {
			reseller.KeysRemaining++
		}
	}
	return reseller
}

func (store *memoryStore) Stats(_ context.Context, since time.Time) (*admin.Stats, error) {
	store.since = since
	return &admin.Stats{RegisteredUsers: len(store.users), ActiveKeys: len(store.keys)}, nil
}

func (store *memoryStore) RecordActivity(_ context.Context, activity admin.Activity) error {
	if store.activityErr != nil {
		return store.activityErr
	}
	store.activity = append(store.activity, activity)
	return nil
}

func (store *memoryStore) RecentActivity(_ context.Context, limit int) ([]admin.Activity, error) {
	entries := []admin.Activity{}
	for i := len(store.activity) - 1; i >= 0 && len(entries) < limit; i-- {
		entries = append(entries, store.activity[i])
	}
	return entries, nil
}

// fakeAccounts records role and status changes.
type fakeAccounts struct {
	roles    map[string]identity.Role
	statuses map[string]session.Status
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{roles: map[string]identity.Role{}, statuses: map[string]session.Status{}}
}

func (accounts *fakeAccounts) SetRole(_ context.Context, id string, role identity.Role) (*session.User, error) {
	if id != userID {
		return nil, apperr.NotFound("User")
	}
	accounts.roles[id] = role
	return &session.User{ID: id, Metadata: map[string]any{identity.AttrRole: role.String()}}, nil
}

func (accounts *fakeAccounts) SetStatus(_ context.Context, id string, status session.Status) (*session.User, error) {
	if id != userID {
		return nil, apperr.NotFound("User")
	}
	accounts.statuses[id] = status
	return &session.User{ID: id, Status: status}, nil
}

// statusStore implements status.Store in memory.
type statusStore struct {
	system   status.System
	history  []status.Change
	services []status.Service
}

func (store *statusStore) System(context.Context) (*status.System, error) {
	system := store.system
	return &system, nil
}

func (store *statusStore) UpdateSystem(_ context.Context, update status.System) (*status.System, error) {
	store.system = update
	store.history = append(store.history, status.Change{Status: update.Status, Message: update.Message, ChangedBy: update.UpdatedBy})
	return &update, nil
}

func (store *statusStore) History(context.Context, int) ([]status.Change, error) {
	return store.history, nil
}

func (store *statusStore) Services(context.Context) ([]status.Service, error) {
	return store.services, nil
}

func (store *statusStore) UpdateService(_ context.Context, id int, level status.Level, message string) (*status.Service, error) {
	for i := range store.services {
		if store.services[i].ID == id {
			store.services[i].Status, store.services[i].Message = level, message
			return &store.services[i], nil
		}
	}
	return nil, apperr.NotFound("Service")
}

// fakeNotifier records sent notices.
type fakeNotifier struct {
	sent []notify.Input
}

func (notifier *fakeNotifier) Send(_ context.Context, input notify.Input) (*notify.Notification, error) {
	if input.Title == "" {
		return nil, apperr.ValidationError("Validation failed")
	}
	notifier.sent = append(notifier.sent, input)
	return &notify.Notification{ID: "n1", UserID: input.UserID, Title: input.Title, Global: input.UserID == "", Type: notify.TypeInfo}, nil
}

type fixture struct {
	store    *memoryStore
	accounts *fakeAccounts
	statuses *statusStore
	notifier *fakeNotifier
	service  *admin.Service
}

func newFixture(random io.Reader) *fixture {
	if random == nil {
		random = rand.Reader
	}
	f := &fixture{
		store:    &memoryStore{},
		accounts: newFakeAccounts(),
		statuses: &statusStore{
			system:   status.System{Status: status.LevelOperational, Message: "All good"},
			services: []status.Service{{ID: 1, Name: "API", Status: status.LevelOperational}},
		},
		notifier: &fakeNotifier{},
	}
	f.service = admin.NewService(admin.Dependencies{
		Store:    f.store,
		Accounts: f.accounts,
		Statuses: status.NewService(f.statuses),
		Notifier: f.notifier,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Random:   random,
	})
	return f
}

var errStorage = errors.New("storage down")
