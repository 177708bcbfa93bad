// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package guard_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/essence/internal/access"
	"github.com/taibuivan/essence/internal/guard"
	"github.com/taibuivan/essence/internal/identity"
	"github.com/taibuivan/essence/internal/platform/constants"
	"github.com/taibuivan/essence/internal/platform/ctxutil"
	"github.com/taibuivan/essence/internal/session"
)

var table = access.MustTable(
	access.Route{Path: "/", Name: "home", Requirement: access.Public},
	access.Route{Path: "/login", Name: "login", Requirement: access.Public},
	access.Route{Path: "/dashboard", Name: "dashboard", Requirement: access.Authenticated},
	access.Route{Path: "/admin", Name: "admin", Requirement: access.AdminOnly},
)

func page() http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusTeapot)
	})
}

/*
TestPages_Decisions verifies status codes and redirect targets for page requests.
*/
func TestPages_Decisions(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		principal *identity.Principal
		pending   bool
		status    int
		location  string
	}{
		{"public_page", "/", nil, false, http.StatusTeapot, ""},
		{"anonymous_dashboard", "/dashboard", nil, false, http.StatusSeeOther, "/login?redirect_to=%2Fdashboard"},
		{"anonymous_admin_goes_to_login", "/admin", nil, false, http.StatusSeeOther, "/login?redirect_to=%2Fadmin"},
		{"member_admin_goes_to_dashboard", "/admin", member, false, http.StatusSeeOther, "/dashboard"},
		{"admin_page", "/admin", admin, false, http.StatusTeapot, ""},
		{"pending_never_renders", "/dashboard", nil, true, http.StatusServiceUnavailable, ""},
		{"undeclared_requires_auth", "/secret", nil, false, http.StatusSeeOther, "/login?redirect_to=%2Fsecret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, tt.path, nil)
			ctx := ctxutil.WithPrincipal(request.Context(), tt.principal)
			if tt.pending {
				ctx = ctxutil.WithSessionPending(ctx)
			}

			recorder := httptest.NewRecorder()
			guard.Pages(table, nil)(page()).ServeHTTP(recorder, request.WithContext(ctx))

			assert.Equal(t, tt.status, recorder.Code)
			assert.Equal(t, tt.location, recorder.Header().Get("Location"))
			if tt.pending {
				assert.Equal(t, strconv.Itoa(constants.SessionRetryAfterSeconds), recorder.Header().Get(constants.HeaderRetryAfter))
			}
		})
	}
}

// fakeStore resolves to a fixed session and forwards pushed events.
type fakeStore struct {
	current *session.Session
	events  chan session.Event
}

func (store *fakeStore) Current(context.Context) (*session.Session, error) { return store.current, nil }

func (store *fakeStore) Subscribe(ctx context.Context) (<-chan session.Event, func()) {
	return store.events, func() {}
}

func (store *fakeStore) SignIn(context.Context, string, string) (*session.Session, error) {
	return nil, session.ErrInvalidCredentials
}
func (store *fakeStore) SignInWithProvider(context.Context, string) (string, error) { return "", nil }
func (store *fakeStore) SignOut(context.Context) error                            { return nil }
func (store *fakeStore) UpdateUserAttributes(context.Context, session.Attributes) (*session.User, error) {
	return nil, session.ErrNoSession
}
func (store *fakeStore) Close() {}

/*
TestWatchHandler_Stream verifies that a remote sign-out reaches an open stream as a navigate update.
*/
func TestWatchHandler_Stream(t *testing.T) {
	store := &fakeStore{
		current: &session.Session{ID: "s1", UserID: "u1", User: &session.User{
			ID:       "u1",
			Email:    "tai@essence.gg",
			Metadata: map[string]any{identity.AttrUsername: "tai"},
		}},
		events: make(chan session.Event, 1),
	}

	var token string
	handler := guard.NewWatchHandler(func(sessionToken string, _ session.ClientMeta) guard.Store {
		token = sessionToken
		return store
	}, identity.NewResolver(nil), table, nil, time.Second)

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		handler.ServeHTTP(writer, request.WithContext(ctxutil.WithSessionToken(request.Context(), "cookie-token")))
	}))
	defer server.Close()

	response, err := http.Get(server.URL + "/watch?path=/dashboard")
	require.NoError(t, err)
	defer response.Body.Close()

	assert.Equal(t, "text/event-stream", response.Header.Get("Content-Type"))
	reader := bufio.NewReader(response.Body)

	first := readUpdate(t, reader)
	if first.Outcome.Kind == guard.Loading {
		first = readUpdate(t, reader)
	}
	assert.Equal(t, guard.Render, first.Outcome.Kind)
	assert.Equal(t, "cookie-token", token)

	store.events <- session.Event{Kind: session.EventSignedOut, UserID: "u1", SessionID: "s1"}

	second := readUpdate(t, reader)
	assert.Equal(t, guard.Navigate, second.Outcome.Kind)
	assert.Equal(t, "/login?redirect_to=%2Fdashboard", second.Outcome.Location())
}

/*
TestWatchHandler_RejectsForeignPath verifies that only local paths can be watched.
*/
func TestWatchHandler_RejectsForeignPath(t *testing.T) {
	handler := guard.NewWatchHandler(nil, identity.NewResolver(nil), table, nil, time.Second)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/watch?path=//evil.test", nil))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func readUpdate(t *testing.T, reader *bufio.Reader) guard.Update {
	t.Helper()

	done := make(chan guard.Update, 1)
	go func() {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				close(done)
				return
			}
			data, found := strings.CutPrefix(strings.TrimSpace(line), "data: ")
			if !found {
				continue
			}
			var update guard.Update
			if json.Unmarshal([]byte(data), &update) == nil {
				done <- update
				return
			}
		}
	}()

	select {
	case update, ok := <-done:
		require.True(t, ok, "stream ended")
		return update
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
		return guard.Update{}
	}
}
