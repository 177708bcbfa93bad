// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/taibuivan/essence/internal/identity"
	"github.com/taibuivan/essence/internal/platform/apperr"
	"github.com/taibuivan/essence/internal/platform/constants"
	"github.com/taibuivan/essence/internal/platform/dberr"
	"github.com/taibuivan/essence/internal/platform/metrics"
	"github.com/taibuivan/essence/internal/platform/sec"
	"github.com/taibuivan/essence/pkg/uuid"
)

// # Contracts & Types

// TokenProvider defines the contract for signing access tokens.
type TokenProvider interface {
	GenerateAccessToken(subject sec.Subject, timeToLive time.Duration) (string, error)
}

const (
	// refreshTokenLength is the byte length of the opaque session token.
	refreshTokenLength = 32

	// stateTokenLength is the byte length of an OAuth state value.
	stateTokenLength = 24

	// cacheTTL bounds how long a cached lookup may lag behind the database.
	cacheTTL = 5 * time.Minute
)

// Dependencies groups the collaborators of [Service].
type Dependencies struct {
	Users     UserRepository
	Sessions  SessionRepository
	Cache     Cache
	Bus       Bus
	States    StateStore
	Tokens    TokenProvider
	Providers []Provider
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

/*
Service implements the account and session use cases.

Every state change is persisted first and published second. Publishing
failures are logged and do not fail the operation; subscribers converge on the
next event or the next lookup.
*/
type Service struct {
	users     UserRepository
	sessions  SessionRepository
	cache     Cache
	bus       Bus
	states    StateStore
	tokens    TokenProvider
	providers map[string]Provider
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs a new [Service] with its dependencies.
func NewService(deps Dependencies) *Service {
	providers := make(map[string]Provider, len(deps.Providers))
	for _, provider := range deps.Providers {
		providers[provider.Name()] = provider
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		users:     deps.Users,
		sessions:  deps.Sessions,
		cache:     deps.Cache,
		bus:       deps.Bus,
		states:    deps.States,
		tokens:    deps.Tokens,
		providers: providers,
		metrics:   deps.Metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Providers lists the names of the configured external providers.
func (service *Service) Providers() []string {
	names := make([]string, 0, len(service.providers))
	for name := range service.providers {
		names = append(names, name)
	}
	return names
}

// # Registration Flow

// SignUpInput holds the data required to enroll a new account.
type SignUpInput struct {
	Email     string
	Password  string
	Username  string
	UserAgent string
	IPAddress string
}

/*
SignUp creates an email-password account and signs it in.

New accounts start with {username, theme: "dark"} as attributes and no role.

Parameters:
  - context: context.Context
  - input: SignUpInput

Returns:
  - *Session: The first session of the new account
  - error: Validation, Conflict or storage failures
*/
func (service *Service) SignUp(context context.Context, input SignUpInput) (*Session, error) {
	input.Email = strings.TrimSpace(input.Email)
	input.Username = strings.TrimSpace(input.Username)

	if err := validateSignUp(input); err != nil {
		return nil, err
	}

	// Email uniqueness. Return a client-safe Conflict error.
	_, err := service.users.FindByEmail(context, input.Email)
	if err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}
	if !apperr.IsNotFound(err) {
		return nil, fmt.Errorf("session_service_sign_up_lookup_failed: %w", err)
	}

	hashedPassword, err := sec.HashPassword(input.Password)
	if errors.Is(err, sec.ErrPasswordTooLong) {
		return nil, apperr.ValidationError("Validation failed", apperr.FieldError{
			Field: FieldPassword, Message: "Password is too long",
		})
	}
	if err != nil {
		return nil, fmt.Errorf("session_service_hash_failed: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Email:        input.Email,
		PasswordHash: hashedPassword,
		Provider:     identity.ProviderEmail,
		Metadata: map[string]any{
			identity.AttrUsername: input.Username,
			identity.AttrTheme:    identity.ThemeDark,
		},
		Status: StatusActive,
	}

	if err := service.users.Create(context, user); err != nil {
		if dberr.IsUniqueViolation(err) {
			return nil, apperr.Conflict("Email is already registered")
		}
		return nil, fmt.Errorf("session_service_sign_up_failed: %w", err)
	}

	session, err := service.createSession(context, user, input.UserAgent, input.IPAddress)
	if err != nil {
		return nil, err
	}

	service.publish(context, Event{Kind: EventSignedIn, UserID: user.ID, SessionID: session.ID, User: user})
	return session, nil
}

// # Authentication Flow

// SignInInput defines credentials for an authentication attempt.
type SignInInput struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

/*
SignIn validates email and password and opens a new session.

Unknown emails, provider-only accounts and wrong passwords all yield
[ErrInvalidCredentials] so accounts cannot be enumerated.
*/
func (service *Service) SignIn(context context.Context, input SignInInput) (*Session, error) {
	user, err := service.users.FindByEmail(context, strings.TrimSpace(input.Email))
	if err != nil {
		if apperr.IsNotFound(err) {
			sec.CheckPasswordHash(input.Password, "")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("session_service_sign_in_lookup_failed: %w", err)
	}

	if user.PasswordHash == "" || !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if user.Status == StatusSuspended {
		return nil, ErrAccountSuspended
	}

	session, err := service.createSession(context, user, input.UserAgent, input.IPAddress)
	if err != nil {
		return nil, err
	}

	service.publish(context, Event{Kind: EventSignedIn, UserID: user.ID, SessionID: session.ID, User: user})
	return session, nil
}

/*
StartProviderSignIn begins an OAuth sign-in and returns the consent URL.
*/
func (service *Service) StartProviderSignIn(context context.Context, providerName, redirectTo string) (string, error) {
	provider, ok := service.providers[providerName]
	if !ok {
		return "", apperr.ValidationError("Unknown sign-in provider", apperr.FieldError{
			Field:   FieldProvider,
			Message: "Unsupported provider",
		})
	}

	state, err := sec.GenerateSecureToken(stateTokenLength)
	if err != nil {
		return "", fmt.Errorf("session_service_state_failed: %w", err)
	}

	pending := PendingSignIn{Provider: providerName, RedirectTo: SafeRedirectPath(redirectTo)}
	if err := service.states.Save(context, state, pending, constants.OAuthStateTTL); err != nil {
		return "", fmt.Errorf("session_service_state_save_failed: %w", err)
	}

	return provider.AuthCodeURL(state), nil
}

// ProviderCallback carries the query of a provider redirect back to us.
type ProviderCallback struct {
	State     string
	Code      string
	UserAgent string
	IPAddress string
}

/*
CompleteProviderSignIn finishes an OAuth sign-in.

The state is single use. A first sign-in creates the account with the
provider's username and avatar; an email already owned by another account is
a Conflict rather than a silent link.
*/
func (service *Service) CompleteProviderSignIn(context context.Context, callback ProviderCallback) (*Session, string, error) {
	pending, err := service.states.Consume(context, callback.State)
	if err != nil {
		return nil, "", err
	}

	provider, ok := service.providers[pending.Provider]
	if !ok || callback.Code == "" {
		return nil, "", ErrInvalidState
	}

	external, err := provider.Exchange(context, callback.Code)
	if err != nil {
		return nil, "", err
	}

	user, err := service.users.FindByProvider(context, provider.Name(), external.ProviderID)
	if err != nil {
		if !apperr.IsNotFound(err) {
			return nil, "", fmt.Errorf("session_service_provider_lookup_failed: %w", err)
		}
		user, err = service.enrollExternal(context, provider.Name(), external)
		if err != nil {
			return nil, "", err
		}
	}

	if user.Status == StatusSuspended {
		return nil, "", ErrAccountSuspended
	}

	session, err := service.createSession(context, user, callback.UserAgent, callback.IPAddress)
	if err != nil {
		return nil, "", err
	}

	service.publish(context, Event{Kind: EventSignedIn, UserID: user.ID, SessionID: session.ID, User: user})
	return session, pending.RedirectTo, nil
}

func (service *Service) enrollExternal(context context.Context, providerName string, external *ExternalIdentity) (*User, error) {
	if external.Email != "" {
		_, err := service.users.FindByEmail(context, external.Email)
		if err == nil {
			return nil, apperr.Conflict("An account with this email already exists")
		}
		if !apperr.IsNotFound(err) {
			return nil, fmt.Errorf("session_service_provider_email_lookup_failed: %w", err)
		}
	}

	metadata := map[string]any{
		identity.AttrUsername: external.Username,
		identity.AttrTheme:    identity.ThemeDark,
	}
	if external.AvatarURL != "" {
		metadata[identity.AttrAvatarURL] = external.AvatarURL
	}

	user := &User{
		ID:         uuid.New(),
		Email:      external.Email,
		Provider:   providerName,
		ProviderID: external.ProviderID,
		Metadata:   metadata,
		Status:     StatusActive,
	}

	if err := service.users.Create(context, user); err != nil {
		if dberr.IsUniqueViolation(err) {
			return nil, apperr.Conflict("An account with this email already exists")
		}
		return nil, fmt.Errorf("session_service_provider_enroll_failed: %w", err)
	}

	service.logger.InfoContext(context, "account_enrolled",
		slog.String("user_id", user.ID),
		slog.String("provider", providerName),
	)
	return user, nil
}

// # Session Resolution

/*
Lookup resolves an opaque session token to its live session and account.

An unknown, expired or revoked token, a deleted account and a suspended account
all resolve to (nil, nil). Errors are reserved for infrastructure failures,
including a context deadline, which callers treat as "still loading".
*/
func (service *Service) Lookup(context context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}
	tokenHash := sec.HashToken(token)

	session, err := service.cache.GetSession(context, tokenHash)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			if context.Err() != nil {
				return nil, context.Err()
			}
			service.logger.WarnContext(context, "session_cache_unavailable", slog.String("error", err.Error()))
		}

		session, err = service.sessions.FindByTokenHash(context, tokenHash)
		if err != nil {
			if apperr.IsNotFound(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("session_service_lookup_failed: %w", err)
		}
		service.cacheSession(context, session)
	}

	return service.attachUser(context, session)
}

// SessionByID resolves a live session by its stable ID. Missing sessions yield (nil, nil).
func (service *Service) SessionByID(context context.Context, sessionID string) (*Session, error) {
	session, err := service.sessions.FindByID(context, sessionID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("session_service_lookup_by_id_failed: %w", err)
	}
	return service.attachUser(context, session)
}

// LookupRecord resolves a token straight to the raw identity record.
func (service *Service) LookupRecord(context context.Context, token string) (*identity.Record, error) {
	session, err := service.Lookup(context, token)
	if err != nil || session == nil {
		return nil, err
	}
	return session.User.Record(), nil
}

// RecordBySession resolves the session named by an access token to the current
// account record, so bearer callers see revocations and role changes immediately.
func (service *Service) RecordBySession(context context.Context, sessionID string) (*identity.Record, error) {
	if sessionID == "" {
		return nil, nil
	}
	session, err := service.SessionByID(context, sessionID)
	if err != nil || session == nil {
		return nil, err
	}
	return session.User.Record(), nil
}

func (service *Service) attachUser(context context.Context, session *Session) (*Session, error) {
	if session.Expired(service.now()) {
		return nil, nil
	}

	user, err := service.cachedUser(context, session.UserID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if user.Status == StatusSuspended {
		return nil, nil
	}

	session.User = user
	return session, nil
}

func (service *Service) cachedUser(context context.Context, userID string) (*User, error) {
	user, err := service.cache.GetUser(context, userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		if context.Err() != nil {
			return nil, context.Err()
		}
		service.logger.WarnContext(context, "user_cache_unavailable", slog.String("error", err.Error()))
	}

	user, err = service.users.FindByID(context, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("session_service_user_lookup_failed: %w", err)
	}

	if err := service.cache.SetUser(context, user, cacheTTL); err != nil {
		service.logger.WarnContext(context, "user_cache_set_failed", slog.String("error", err.Error()))
	}
	return user, nil
}

func (service *Service) cacheSession(context context.Context, session *Session) {
	ttl := min(cacheTTL, session.ExpiresAt.Sub(service.now()))
	if ttl <= 0 {
		return
	}
	if err := service.cache.SetSession(context, session, ttl); err != nil {
		service.logger.WarnContext(context, "session_cache_set_failed", slog.String("error", err.Error()))
	}
}

// # Session Management

/*
Refresh rotates the opaque token of a live session in place.

The session ID is kept, the old token stops working immediately, and a new
access token is issued.
*/
func (service *Service) Refresh(context context.Context, token, userAgent, ipAddress string) (*Session, error) {
	if token == "" {
		return nil, apperr.Unauthorized("Missing session token")
	}

	oldHash := sec.HashToken(token)
	session, err := service.sessions.FindByTokenHash(context, oldHash)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized("Invalid or expired session token")
		}
		return nil, fmt.Errorf("session_service_refresh_lookup_failed: %w", err)
	}

	user, err := service.users.FindByID(context, session.UserID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized("User not found or suspended")
		}
		return nil, fmt.Errorf("session_service_refresh_user_lookup_failed: %w", err)
	}
	if user.Status == StatusSuspended {
		return nil, apperr.Unauthorized("User not found or suspended")
	}

	newToken, err := sec.GenerateSecureToken(refreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("session_service_refresh_token_failed: %w", err)
	}

	session.TokenHash = sec.HashToken(newToken)
	session.RefreshToken = newToken
	session.ExpiresAt = service.now().Add(constants.SessionTTL)
	session.UserAgent = userAgent
	session.IPAddress = ipAddress
	session.User = user

	if err := service.sessions.Rotate(context, session.ID, session.TokenHash, session.ExpiresAt); err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized("Invalid or expired session token")
		}
		return nil, fmt.Errorf("session_service_refresh_rotate_failed: %w", err)
	}
	service.evictSessions(context, oldHash)

	if err := service.issueAccessToken(session); err != nil {
		return nil, err
	}

	service.publish(context, Event{
		Kind:      EventTokenRefreshed,
		UserID:    user.ID,
		SessionID: session.ID,
		User:      user,
		ExpiresAt: session.ExpiresAt,
	})
	return session, nil
}

/*
SignOut revokes the session behind token. It is idempotent: an unknown token is not an error.
*/
func (service *Service) SignOut(context context.Context, token string) error {
	if token == "" {
		return nil
	}

	session, err := service.sessions.FindByTokenHash(context, sec.HashToken(token))
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("session_service_sign_out_lookup_failed: %w", err)
	}
	return service.endSession(context, session)
}

// SignOutSession revokes a session by ID. Unknown IDs are not an error.
func (service *Service) SignOutSession(context context.Context, sessionID string) error {
	session, err := service.sessions.FindByID(context, sessionID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("session_service_sign_out_lookup_failed: %w", err)
	}
	return service.endSession(context, session)
}

func (service *Service) endSession(context context.Context, session *Session) error {
	if err := service.sessions.Revoke(context, session.ID); err != nil {
		return fmt.Errorf("session_service_sign_out_failed: %w", err)
	}
	service.evictSessions(context, session.TokenHash)

	service.publish(context, Event{Kind: EventSignedOut, UserID: session.UserID, SessionID: session.ID})
	return nil
}

/*
RevokeAll ends every session of a user and notifies all of them with one
user-wide sign-out event.
*/
func (service *Service) RevokeAll(context context.Context, userID string) error {
	hashes, err := service.sessions.RevokeAll(context, userID)
	if err != nil {
		return fmt.Errorf("session_service_revoke_all_failed: %w", err)
	}
	service.evictSessions(context, hashes...)

	service.publish(context, Event{Kind: EventSignedOut, UserID: userID})
	return nil
}

// PurgeExpired removes dead sessions from storage and announces every session
// that expired while still live, so watchers of it move to anonymous.
func (service *Service) PurgeExpired(context context.Context) (int64, error) {
	purged, err := service.sessions.DeleteExpired(context)
	if err != nil {
		return 0, fmt.Errorf("session_service_purge_failed: %w", err)
	}

	for _, session := range purged {
		if session.Revoked {
			continue
		}
		service.publish(context, Event{Kind: EventSignedOut, UserID: session.UserID, SessionID: session.ID})
	}
	return int64(len(purged)), nil
}

// RunJanitor purges dead sessions every interval until context ends.
func (service *Service) RunJanitor(context context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			purged, err := service.PurgeExpired(context)
			if err != nil {
				service.logger.ErrorContext(context, "session_purge_failed", slog.String("error", err.Error()))
				continue
			}
			if purged > 0 {
				service.logger.InfoContext(context, "session_purged", slog.Int64("count", purged))
			}
		case <-context.Done():
			return
		}
	}
}

// # Account Attributes

/*
UpdateUserAttributes merges a partial update into the account's attribute bag.

Only username, theme, avatar_url and favorite_scripts are writable. Writing
role, or any unknown key, is a validation error.
*/
func (service *Service) UpdateUserAttributes(context context.Context, userID string, attributes Attributes) (*User, error) {
	normalized, err := validateAttributes(attributes)
	if err != nil {
		return nil, err
	}

	return service.mutateMetadata(context, userID, func(metadata map[string]any) {
		for key, value := range normalized {
			if value == nil {
				delete(metadata, key)
				continue
			}
			metadata[key] = value
		}
	})
}

/*
SetRole assigns a known role to an account. Elevation is re-resolved by every
subscriber of the account through the published user_updated event.
*/
func (service *Service) SetRole(context context.Context, userID string, role identity.Role) (*User, error) {
	if !role.Known() {
		return nil, apperr.ValidationError("Validation failed", apperr.FieldError{
			Field:   identity.AttrRole,
			Message: "Unknown role",
		})
	}

	return service.mutateMetadata(context, userID, func(metadata map[string]any) {
		metadata[identity.AttrRole] = role.String()
	})
}

func (service *Service) mutateMetadata(context context.Context, userID string, mutate func(map[string]any)) (*User, error) {
	user, err := service.users.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	metadata := maps.Clone(user.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	mutate(metadata)

	if err := service.users.UpdateMetadata(context, userID, metadata); err != nil {
		return nil, err
	}
	user.Metadata = metadata
	user.UpdatedAt = service.now()

	service.evictUser(context, userID)
	service.publish(context, Event{Kind: EventUserUpdated, UserID: userID, User: user})
	return user, nil
}

/*
SetStatus changes the administrative status of an account.

Suspending an account revokes all of its sessions; other changes are published
as a user_updated event.
*/
func (service *Service) SetStatus(context context.Context, userID string, status Status) (*User, error) {
	if !status.Valid() {
		return nil, apperr.ValidationError("Validation failed", apperr.FieldError{
			Field:   FieldStatus,
			Message: "Must be one of: active, inactive, suspended",
		})
	}

	if err := service.users.UpdateStatus(context, userID, status); err != nil {
		return nil, err
	}
	service.evictUser(context, userID)

	user, err := service.users.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	if status == StatusSuspended {
		if err := service.RevokeAll(context, userID); err != nil {
			return nil, err
		}
		return user, nil
	}

	service.publish(context, Event{Kind: EventUserUpdated, UserID: userID, User: user})
	return user, nil
}

// FindUser returns an account by ID.
func (service *Service) FindUser(context context.Context, userID string) (*User, error) {
	return service.users.FindByID(context, userID)
}

// Subscribe opens a bus subscription for one user.
func (service *Service) Subscribe(context context.Context, userID string) (<-chan Event, func(), error) {
	return service.bus.Subscribe(context, userID)
}

// # Internals

func (service *Service) createSession(context context.Context, user *User, userAgent, ipAddress string) (*Session, error) {
	token, err := sec.GenerateSecureToken(refreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("session_service_token_failed: %w", err)
	}

	now := service.now()
	session := &Session{
		ID:           uuid.New(),
		UserID:       user.ID,
		TokenHash:    sec.HashToken(token),
		RefreshToken: token,
		ExpiresAt:    now.Add(constants.SessionTTL),
		UserAgent:    userAgent,
		IPAddress:    ipAddress,
		CreatedAt:    now,
		User:         user,
	}

	if err := service.sessions.Create(context, session); err != nil {
		return nil, fmt.Errorf("session_service_session_creation_failed: %w", err)
	}

	if err := service.issueAccessToken(session); err != nil {
		return nil, err
	}

	if err := service.users.TouchSignIn(context, user.ID, now); err != nil {
		service.logger.WarnContext(context, "sign_in_touch_failed", slog.String("error", err.Error()))
	} else {
		user.LastSignInAt = &now
	}

	return session, nil
}

func (service *Service) issueAccessToken(session *Session) error {
	user := session.User
	roleTag, _ := user.Metadata[identity.AttrRole].(string)

	accessToken, err := service.tokens.GenerateAccessToken(sec.Subject{
		UserID:    user.ID,
		Email:     user.Email,
		Username:  user.Username(),
		Role:      roleTag,
		Provider:  user.Provider,
		SessionID: session.ID,
	}, constants.AccessTokenTTL)
	if err != nil {
		return fmt.Errorf("session_service_access_token_failed: %w", err)
	}

	session.AccessToken = accessToken
	return nil
}

func (service *Service) evictSessions(context context.Context, tokenHashes ...string) {
	if err := service.cache.DeleteSessions(context, tokenHashes...); err != nil {
		service.logger.WarnContext(context, "session_cache_evict_failed", slog.String("error", err.Error()))
	}
}

func (service *Service) evictUser(context context.Context, userID string) {
	if err := service.cache.DeleteUser(context, userID); err != nil {
		service.logger.WarnContext(context, "user_cache_evict_failed", slog.String("error", err.Error()))
	}
}

func (service *Service) publish(context context.Context, event Event) {
	event.Origin = originFrom(context)
	event.At = service.now()
	service.metrics.SessionEvent(string(event.Kind))

	if err := service.bus.Publish(context, event); err != nil {
		service.logger.ErrorContext(context, "session_event_publish_failed",
			slog.String("kind", string(event.Kind)),
			slog.String("user_id", event.UserID),
			slog.String("error", err.Error()),
		)
	}
}

// SafeRedirectPath keeps only local absolute paths, rejecting protocol-relative and absolute URLs.
func SafeRedirectPath(raw string) string {
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return ""
	}
	return raw
}

// # Origin Tagging

type originKey struct{}

// withOrigin tags events published under ctx with the ID of the emitting client.
func withOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

func originFrom(ctx context.Context) string {
	origin, _ := ctx.Value(originKey{}).(string)
	return origin
}
