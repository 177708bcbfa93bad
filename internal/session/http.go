// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/essence/internal/access"
	"github.com/taibuivan/essence/internal/identity"
	"github.com/taibuivan/essence/internal/platform/apperr"
	"github.com/taibuivan/essence/internal/platform/constants"
	"github.com/taibuivan/essence/internal/platform/ctxutil"
	"github.com/taibuivan/essence/internal/platform/middleware"
	requestutil "github.com/taibuivan/essence/internal/platform/request"
	"github.com/taibuivan/essence/internal/platform/respond"
	"github.com/taibuivan/essence/internal/platform/validate"
)

// # Notices

const (
	NoticeSignedIn      = "Logged in successfully!"
	NoticeSignedInAdmin = "Logged in as Administrator!"
	NoticeSignedOut     = "Logged out"
)

// # Definitions & Constructors

// Handler implements the session HTTP endpoints.
type Handler struct {
	sessionService *Service
	resolver       middleware.PrincipalResolver
	cookieSecure   bool
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service, resolver middleware.PrincipalResolver, cookieSecure bool) *Handler {
	return &Handler{sessionService: service, resolver: resolver, cookieSecure: cookieSecure}
}

// Routes returns a [chi.Router] configured with the session endpoints.
//
// # Endpoints
//   - POST /signup               : Creates an account and signs it in.
//   - POST /login                : Email and password sign-in.
//   - POST /logout               : Ends the current session.
//   - POST /refresh              : Rotates the session token.
//   - GET  /session              : The caller's resolved principal.
//   - GET  /providers            : Configured external providers.
//   - GET  /providers/{provider} : Redirects to the provider consent page.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/signup", handler.signUp)
	router.Post("/login", handler.login)
	router.Post("/logout", handler.logout)
	router.Post("/refresh", handler.refresh)
	router.Get("/session", handler.current)
	router.Get("/providers", handler.listProviders)
	router.Get("/providers/{provider}", handler.startProvider)

	return router
}

// # Request Payloads

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	AccessToken string              `json:"access_token"`
	TokenType   string              `json:"token_type"`
	ExpiresIn   int64               `json:"expires_in"`
	ExpiresAt   time.Time           `json:"expires_at"`
	User        *User               `json:"user"`
	Principal   *identity.Principal `json:"principal"`
	Notice      string              `json:"notice,omitempty"`
}

/*
SignUp handles account creation.

POST /api/v1/auth/signup

Response:
  - 201: sessionResponse with the session cookie set
  - 400: Validation failure
  - 409: Email already registered
*/
func (handler *Handler) signUp(writer http.ResponseWriter, request *http.Request) {
	var input signUpRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.sessionService.SignUp(request.Context(), SignUpInput{
		Email:     input.Email,
		Password:  input.Password,
		Username:  input.Username,
		UserAgent: request.UserAgent(),
		IPAddress: middleware.RealIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setSessionCookie(writer, session)
	respond.Created(writer, handler.sessionResponse(session))
}

/*
Login authenticates with email and password.

POST /api/v1/auth/login

Description: The response notice tells elevated principals apart from
ordinary ones; the rejection message is shown to the user as-is.

Response:
  - 200: sessionResponse with the session cookie set
  - 401: Invalid login credentials
  - 403: Account suspended
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Required(FieldPassword, input.Password)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	client := handler.sessionService.NewClient("", ClientMeta{
		UserAgent: request.UserAgent(),
		IPAddress: middleware.RealIP(request),
	})
	defer client.Close()

	session, err := client.SignIn(request.Context(), input.Email, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setSessionCookie(writer, session)
	respond.OK(writer, handler.sessionResponse(session))
}

/*
Logout ends the current session and clears the cookie.

POST /api/v1/auth/logout

Response:
  - 204: Always, even without a session
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	if cookie, err := request.Cookie(constants.SessionCookieName); err == nil && cookie.Value != "" {
		client := handler.sessionService.NewClient(cookie.Value, ClientMeta{})
		if err := client.SignOut(request.Context()); err != nil {
			ctxutil.GetLogger(request.Context()).WarnContext(request.Context(), "sign_out_failed",
				slog.String("error", err.Error()),
			)
		}
		client.Close()
	}

	handler.clearSessionCookie(writer)
	respond.NoContent(writer)
}

/*
Refresh rotates the session token carried by the cookie.

POST /api/v1/auth/refresh

Response:
  - 200: sessionResponse with the rotated cookie set
  - 401: Missing or invalid session token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	token := ""
	if cookie, err := request.Cookie(constants.SessionCookieName); err == nil {
		token = cookie.Value
	}

	session, err := handler.sessionService.Refresh(request.Context(), token, request.UserAgent(), middleware.RealIP(request))
	if err != nil {
		// Only a rejected token ends the browser session; outages keep the cookie for a retry.
		if apperr.HasCode(err, apperr.CodeUnauthorized) {
			handler.clearSessionCookie(writer)
		}
		respond.Error(writer, request, err)
		return
	}

	handler.setSessionCookie(writer, session)
	response := handler.sessionResponse(session)
	response.Notice = ""
	respond.OK(writer, response)
}

type currentResponse struct {
	Authenticated bool                `json:"authenticated"`
	Loading       bool                `json:"loading"`
	Principal     *identity.Principal `json:"principal"`
}

/*
Current reports the principal resolved for this request.

GET /api/v1/auth/session

Response:
  - 200: currentResponse
*/
func (handler *Handler) current(writer http.ResponseWriter, request *http.Request) {
	principal := requestutil.Principal(request)

	respond.OK(writer, currentResponse{
		Authenticated: principal != nil,
		Loading:       ctxutil.IsSessionPending(request.Context()),
		Principal:     principal,
	})
}

func (handler *Handler) listProviders(writer http.ResponseWriter, request *http.Request) {
	providers := handler.sessionService.Providers()
	sort.Strings(providers)
	respond.OK(writer, map[string]any{constants.FieldItems: providers})
}

/*
StartProvider redirects to the consent page of an external provider.

GET /api/v1/auth/providers/{provider}?redirect_to=/path

Response:
  - 302: Redirect to the provider
  - 400: Unknown provider
*/
func (handler *Handler) startProvider(writer http.ResponseWriter, request *http.Request) {
	consentURL, err := handler.sessionService.StartProviderSignIn(
		request.Context(),
		requestutil.Param(request, FieldProvider),
		request.URL.Query().Get(queryRedirectTo),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	http.Redirect(writer, request, consentURL, http.StatusFound)
}

/*
Callback completes an external sign-in and lands the browser on a page.

GET /auth/callback?code=...&state=...

Failures never render an error body; they go back to the login page with an
error message in the query.
*/
func (handler *Handler) Callback(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()

	if providerError := query.Get("error"); providerError != "" {
		redirectToLogin(writer, request, "Sign-in was cancelled")
		return
	}

	session, redirectTo, err := handler.sessionService.CompleteProviderSignIn(request.Context(), ProviderCallback{
		State:     query.Get("state"),
		Code:      query.Get("code"),
		UserAgent: request.UserAgent(),
		IPAddress: middleware.RealIP(request),
	})
	if err != nil {
		ctxutil.GetLogger(request.Context()).WarnContext(request.Context(), "provider_sign_in_failed",
			slog.String("error", err.Error()),
		)
		redirectToLogin(writer, request, respond.PublicMessage(err))
		return
	}

	handler.setSessionCookie(writer, session)

	if redirectTo == "" {
		redirectTo = access.DashboardPath
	}
	http.Redirect(writer, request, redirectTo, http.StatusSeeOther)
}

// # Helpers

const queryRedirectTo = "redirect_to"

func redirectToLogin(writer http.ResponseWriter, request *http.Request, message string) {
	target := access.LoginPath + "?" + url.Values{"error": {message}}.Encode()
	http.Redirect(writer, request, target, http.StatusSeeOther)
}

func (handler *Handler) sessionResponse(session *Session) sessionResponse {
	principal := handler.resolver.Resolve(session.User.Record())

	notice := NoticeSignedIn
	if principal.Elevated() {
		notice = NoticeSignedInAdmin
	}

	return sessionResponse{
		AccessToken: session.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(constants.AccessTokenTTL / time.Second),
		ExpiresAt:   session.ExpiresAt,
		User:        session.User,
		Principal:   principal,
		Notice:      notice,
	}
}

func (handler *Handler) setSessionCookie(writer http.ResponseWriter, session *Session) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    session.RefreshToken,
		Path:     constants.SessionCookiePath,
		Expires:  session.ExpiresAt,
		Secure:   handler.cookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (handler *Handler) clearSessionCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    "",
		Path:     constants.SessionCookiePath,
		MaxAge:   -1,
		Secure:   handler.cookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
