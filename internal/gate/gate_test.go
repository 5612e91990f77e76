package gate

import (
	"errors"
	"net/http"
	"testing"

	"chat_playground/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	ids   map[string]models.Identity
	calls int
	last  string
}

var errBadToken = errors.New("bad token")

func (v *stubVerifier) Verify(token string) (models.Identity, error) {
	v.calls++
	v.last = token
	id, ok := v.ids[token]
	if !ok {
		return models.Identity{}, errBadToken
	}
	return id, nil
}

func newStubGate() (*Gate, *stubVerifier) {
	v := &stubVerifier{ids: map[string]models.Identity{
		"user-token":  {ID: 1, Email: "u@x.com"},
		"admin-token": {ID: 2, Email: "a@x.com", IsAdmin: true},
	}}
	return New(DefaultRules(), v), v
}

func TestRules_Classify(t *testing.T) {
	rules := DefaultRules()

	cases := []struct {
		path string
		want Class
	}{
		{"/", ClassPublic},
		{"", ClassPublic},
		{"/_next/static/chunk.js", ClassPublic},
		{"/static", ClassPublic},
		{"/favicon.ico", ClassPublic},
		{"/health", ClassPublic},
		{"/swagger/index.html", ClassPublic},
		{"/api/auth/login", ClassPublic},
		{"/api/auth/register", ClassPublic},
		{"/api/auth/logout", ClassPublic},
		{"/api/auth/me", ClassUser},
		{"/api/auth/loginx", ClassUser},
		{"/healthz", ClassUser},
		{"/staticfoo", ClassUser},
		{"/api/chat", ClassUser},
		{"/api/chat/rate-limit", ClassUser},
		{"/api/admin", ClassAdmin},
		{"/api/admin/rate-limit", ClassAdmin},
		{"/api/administrator", ClassUser},
		{"/anything", ClassUser},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.want, rules.Classify(tc.path))
		})
	}
}

func TestRules_FirstMatchWins(t *testing.T) {
	rules := Rules{
		{Prefix: "/api/admin/public", Class: ClassPublic},
		{Prefix: "/api/admin/", Class: ClassAdmin},
	}
	assert.Equal(t, ClassPublic, rules.Classify("/api/admin/public/x"))
	assert.Equal(t, ClassAdmin, rules.Classify("/api/admin/users"))
	assert.Equal(t, ClassAdmin, rules.Classify("/api/admin"))
}

func TestDecide_PublicPassSkipsVerification(t *testing.T) {
	g, v := newStubGate()

	d := g.Decide("/api/auth/login", "Bearer garbage", "garbage")
	assert.Equal(t, PublicPass, d.State)
	assert.True(t, d.State.Allowed())
	assert.Zero(t, v.calls)
}

func TestDecide_States(t *testing.T) {
	cases := []struct {
		name      string
		path      string
		header    string
		cookie    string
		want      State
		viaBearer bool
		userID    int
	}{
		{"no_credentials", "/api/chat", "", "", Unauthenticated, false, 0},
		{"blank_bearer_no_cookie", "/api/chat", "Bearer   ", "", Unauthenticated, false, 0},
		{"other_scheme", "/api/chat", "Basic dXNlcjpwdw==", "", Unauthenticated, false, 0},
		{"bad_bearer", "/api/chat", "Bearer nope", "", InvalidToken, true, 0},
		{"bad_cookie", "/api/chat", "", "nope", InvalidToken, false, 0},
		{"bearer_ok", "/api/chat", "Bearer user-token", "", AuthenticatedPass, true, 1},
		{"bearer_lowercase_scheme", "/api/chat", "bearer user-token", "", AuthenticatedPass, true, 1},
		{"cookie_ok", "/api/chat", "", "user-token", AuthenticatedPass, false, 1},
		{"bearer_preferred_over_cookie", "/api/chat", "Bearer admin-token", "user-token", AuthenticatedPass, true, 2},
		{"bad_bearer_wins_over_good_cookie", "/api/chat", "Bearer nope", "user-token", InvalidToken, true, 0},
		{"blank_bearer_falls_back_to_cookie", "/api/chat", "Bearer ", "user-token", AuthenticatedPass, false, 1},
		{"admin_path_non_admin", "/api/admin/users", "Bearer user-token", "", AdminRequiredDenied, true, 1},
		{"admin_path_admin", "/api/admin/users", "Bearer admin-token", "", AuthenticatedPass, true, 2},
		{"admin_path_no_token", "/api/admin/users", "", "", Unauthenticated, false, 0},
		{"admin_path_bad_token", "/api/admin/users", "", "nope", InvalidToken, false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, _ := newStubGate()
			d := g.Decide(tc.path, tc.header, tc.cookie)
			require.Equal(t, tc.want, d.State, "state %s", d.State)
			assert.Equal(t, tc.viaBearer, d.ViaBearer)
			assert.Equal(t, tc.userID, d.Identity.ID)
			if tc.want == InvalidToken {
				assert.ErrorIs(t, d.Err, errBadToken)
			}
		})
	}
}

func TestDecide_TrimsTokens(t *testing.T) {
	g, v := newStubGate()

	d := g.Decide("/api/chat", "  Bearer   user-token  ", "")
	require.Equal(t, AuthenticatedPass, d.State)
	assert.Equal(t, "user-token", v.last)
}

func TestState_StatusAndMessage(t *testing.T) {
	cases := []struct {
		state   State
		status  int
		message string
		allowed bool
	}{
		{PublicPass, 0, "", true},
		{Unauthenticated, http.StatusUnauthorized, "Unauthorized", false},
		{InvalidToken, http.StatusUnauthorized, "Invalid token", false},
		{AdminRequiredDenied, http.StatusForbidden, "Unauthorized - Admin access required", false},
		{AuthenticatedPass, 0, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.state.String(), func(t *testing.T) {
			assert.Equal(t, tc.status, tc.state.Status())
			assert.Equal(t, tc.message, tc.state.Message())
			assert.Equal(t, tc.allowed, tc.state.Allowed())
		})
	}
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", tok)

	_, ok = BearerToken("Bearer")
	assert.False(t, ok)
	_, ok = BearerToken("")
	assert.False(t, ok)
	_, ok = BearerToken("Token abc")
	assert.False(t, ok)
}
