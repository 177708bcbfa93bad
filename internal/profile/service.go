// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package profile

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/taibuivan/essence/internal/platform/validate"
)

// FieldScriptID names the favourite script in validation errors.
const FieldScriptID = "script_id"

// Service implements the preference use cases.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService constructs a new [Service].
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Load returns the preferences of an account.
func (service *Service) Load(ctx context.Context, userID string) (*Preferences, error) {
	return service.store.Load(ctx, userID)
}

// Update applies a partial preference update.
func (service *Service) Update(ctx context.Context, userID string, patch Patch) (*Preferences, error) {
	return service.store.Save(ctx, userID, patch)
}

// # Theme Sync

/*
Theme returns the stored theme of an account.

A failed read is logged as theme_sync_failed and yields [DefaultTheme].
*/
func (service *Service) Theme(ctx context.Context, userID string) Theme {
	preferences, err := service.store.Load(ctx, userID)
	if err != nil {
		service.logger.WarnContext(ctx, "theme_sync_failed",
			slog.String("user_id", userID),
			slog.String("op", "load"),
			slog.String("error", err.Error()),
		)
		return DefaultTheme
	}
	return preferences.Theme
}

/*
SyncTheme persists the theme the caller switched to.

The switch has already happened on the caller's side, so a failed write is
logged as theme_sync_failed and the requested theme is still returned.
*/
func (service *Service) SyncTheme(ctx context.Context, userID string, theme Theme) Theme {
	_, err := service.store.Save(ctx, userID, Patch{Theme: &theme})
	if err != nil {
		service.logger.WarnContext(ctx, "theme_sync_failed",
			slog.String("user_id", userID),
			slog.String("op", "save"),
			slog.String("theme", string(theme)),
			slog.String("error", err.Error()),
		)
	}
	return theme
}

// # Favorites

// Favorites lists the favourite script IDs of an account, most recent last.
func (service *Service) Favorites(ctx context.Context, userID string) ([]string, error) {
	preferences, err := service.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return preferences.Favorites, nil
}

// Favorite adds a script to the favourites. Adding twice is a no-op.
func (service *Service) Favorite(ctx context.Context, userID, scriptID string) ([]string, error) {
	return service.editFavorites(ctx, userID, scriptID, func(list []string, id string) []string {
		if slices.Contains(list, id) {
			return list
		}
		return append(list, id)
	})
}

// Unfavorite removes a script from the favourites. Removing a missing script is a no-op.
func (service *Service) Unfavorite(ctx context.Context, userID, scriptID string) ([]string, error) {
	return service.editFavorites(ctx, userID, scriptID, func(list []string, id string) []string {
		return slices.DeleteFunc(list, func(favorite string) bool { return favorite == id })
	})
}

// editFavorites validates the trimmed script ID and hands it to edit.
func (service *Service) editFavorites(ctx context.Context, userID, scriptID string, edit func(list []string, id string) []string) ([]string, error) {
	scriptID = strings.TrimSpace(scriptID)
	validator := &validate.Validator{}
	validator.Required(FieldScriptID, scriptID).MaxLen(FieldScriptID, scriptID, 64)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	preferences, err := service.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	before := len(preferences.Favorites)
	updated := edit(slices.Clone(preferences.Favorites), scriptID)
	if len(updated) == before {
		return updated, nil
	}

	saved, err := service.store.Save(ctx, userID, Patch{Favorites: &updated})
	if err != nil {
		return nil, err
	}
	return saved.Favorites, nil
}

// Connections reports the external accounts linked to a profile.
func (service *Service) Connections(ctx context.Context, userID string) (Connections, error) {
	preferences, err := service.store.Load(ctx, userID)
	if err != nil {
		return Connections{}, err
	}
	return preferences.Connections, nil
}
