// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/taibuivan/essence/internal/identity"
	"github.com/taibuivan/essence/internal/platform/apperr"
	"github.com/taibuivan/essence/internal/platform/httpclient"
	"github.com/taibuivan/essence/internal/platform/metrics"
)

// # External Identity Providers

// ExternalIdentity is what a provider tells us about the signed-in person.
type ExternalIdentity struct {
	ProviderID string
	Email      string
	Username   string
	AvatarURL  string
}

// Provider is an OAuth2 identity provider.
type Provider interface {
	// Name is the provider tag stored on accounts (e.g. "discord").
	Name() string

	// AuthCodeURL returns the consent URL carrying state.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for the external identity.
	Exchange(ctx context.Context, code string) (*ExternalIdentity, error)
}

// # Discord

// Discord endpoints.
const (
	DiscordAuthURL = "https://discord.com/oauth2/authorize"
	DiscordAPIURL  = "https://discord.com/api"
	discordCDNURL  = "https://cdn.discordapp.com"
)

// DiscordConfig configures [DiscordProvider]. Empty URLs use Discord's public endpoints.
type DiscordConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	APIBaseURL   string
}

// DiscordProvider signs users in with Discord (scopes "identify email").
type DiscordProvider struct {
	oauth *oauth2.Config
	api   *httpclient.Client
}

// NewDiscordProvider builds the Discord provider.
func NewDiscordProvider(config DiscordConfig, recorder *metrics.Metrics) *DiscordProvider {
	authURL := config.AuthURL
	if authURL == "" {
		authURL = DiscordAuthURL
	}
	apiBase := config.APIBaseURL
	if apiBase == "" {
		apiBase = DiscordAPIURL
	}

	return &DiscordProvider{
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       []string{"identify", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  apiBase + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		api: httpclient.New(apiBase, identity.ProviderDiscord, recorder),
	}
}

// Name implements [Provider].
func (provider *DiscordProvider) Name() string {
	return identity.ProviderDiscord
}

// AuthCodeURL implements [Provider].
func (provider *DiscordProvider) AuthCodeURL(state string) string {
	return provider.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "consent"))
}

type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Email      string `json:"email"`
	Verified   bool   `json:"verified"`
	Avatar     string `json:"avatar"`
}

/*
Exchange trades the authorization code for a token and reads /users/@me.

Unverified Discord emails are dropped so they can never collide with an
email-password account.

Returns:
  - *ExternalIdentity: The Discord identity
  - error: apperr.BadGateway on upstream failures
*/
func (provider *DiscordProvider) Exchange(ctx context.Context, code string) (*ExternalIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, provider.api.HTTPClient())

	token, err := provider.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, apperr.BadGateway("Discord sign-in failed", fmt.Errorf("discord_exchange_failed: %w", err))
	}

	var user discordUser
	response, err := provider.api.Get(ctx, "/users/@me",
		httpclient.WithAuthToken(token.AccessToken),
		httpclient.WithResult(&user),
	)
	if err != nil {
		return nil, apperr.BadGateway("Discord sign-in failed", fmt.Errorf("discord_profile_failed: %w", err))
	}
	if response.IsError() || user.ID == "" {
		return nil, apperr.BadGateway("Discord sign-in failed", fmt.Errorf("discord_profile_status: %s", response.Status()))
	}

	external := &ExternalIdentity{
		ProviderID: user.ID,
		Username:   user.Username,
	}
	if user.GlobalName != "" {
		external.Username = user.GlobalName
	}
	if user.Verified {
		external.Email = user.Email
	}
	if user.Avatar != "" {
		external.AvatarURL = fmt.Sprintf("%s/avatars/%s/%s.png", discordCDNURL, user.ID, user.Avatar)
	}
	return external, nil
}
