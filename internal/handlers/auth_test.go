package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chat_playground/internal/models"
	"chat_playground/internal/service"
)

func postJSON(path, body string, hdr http.Header) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	for k, v := range hdr {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAuthHandlers_LoginAndRegister(t *testing.T) {
	m := newMocks()
	m.auth.result = service.AuthResult{
		Token: "tok123",
		User:  models.User{ID: 42, Email: "u@x.com", PasswordHash: "secret-hash"},
	}
	r := newTestRouter(m.service())

	for _, path := range []string{"/api/auth/login", "/api/auth/register"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, postJSON(path, `{"email":"u@x.com","password":"p"}`, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
			}
			var resp AuthResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.Token != "tok123" || resp.User.ID != 42 || resp.User.Email != "u@x.com" || resp.User.IsAdmin {
				t.Fatalf("unexpected response: %+v", resp)
			}
			if strings.Contains(w.Body.String(), "secret-hash") {
				t.Fatal("password hash leaked")
			}
			if cookie := w.Header().Get("Set-Cookie"); !strings.Contains(cookie, "token=tok123") {
				t.Fatalf("missing token cookie: %q", cookie)
			}
			if m.auth.lastEmail != "u@x.com" || m.auth.lastPassword != "p" {
				t.Fatalf("service got %q/%q", m.auth.lastEmail, m.auth.lastPassword)
			}
		})
	}
}

func TestAuthHandlers_Errors(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		body   string
		err    error
		code   int
		errMsg string
	}{
		{"bad body", "/api/auth/login", `{"email":1}`, nil, http.StatusBadRequest, "Invalid input"},
		{"missing password", "/api/auth/login", `{"email":"u@x.com"}`, nil, http.StatusBadRequest, "Invalid input"},
		{"bad credentials", "/api/auth/login", `{"email":"u@x.com","password":"p"}`, service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{"user exists", "/api/auth/register", `{"email":"u@x.com","password":"p"}`, service.ErrUserExists, http.StatusBadRequest, "User already exists"},
		{"validation", "/api/auth/register", `{"email":"u@x.com","password":" "}`, service.ErrValidation, http.StatusBadRequest, "Invalid input"},
		{"store down", "/api/auth/login", `{"email":"u@x.com","password":"p"}`, errors.New("database is locked"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newMocks()
			m.auth.err = tc.err
			r := newTestRouter(m.service())

			w := httptest.NewRecorder()
			r.ServeHTTP(w, postJSON(tc.path, tc.body, nil))
			if w.Code != tc.code {
				t.Fatalf("status=%d, want %d, body=%s", w.Code, tc.code, w.Body.String())
			}
			var out struct {
				Error string `json:"error"`
			}
			_ = json.Unmarshal(w.Body.Bytes(), &out)
			if out.Error != tc.errMsg {
				t.Fatalf("error=%q, want %q", out.Error, tc.errMsg)
			}
			if w.Header().Get("Set-Cookie") != "" {
				t.Fatal("failed auth must not set a cookie")
			}
		})
	}
}

func TestAuthHandlers_IPThrottle(t *testing.T) {
	m := newMocks()
	m.auth.err = service.ErrInvalidCredentials
	r := newTestRouterWith(m.service(), Options{AuthRatePerMinute: 1, AuthBurst: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := postJSON("/api/auth/login", `{"email":"u@x.com","password":"p"}`, nil)
		req.RemoteAddr = "203.0.113.7:5555"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusUnauthorized || codes[1] != http.StatusUnauthorized || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes=%v, want [401 401 429]", codes)
	}

	// another client is unaffected
	w := httptest.NewRecorder()
	req := postJSON("/api/auth/login", `{"email":"u@x.com","password":"p"}`, nil)
	req.RemoteAddr = "198.51.100.1:5555"
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("other ip status=%d", w.Code)
	}
}

func TestAuthHandlers_LogoutClearsCookie(t *testing.T) {
	r := newTestRouter(newMocks().service())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/api/auth/logout", ``, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	cookie := w.Header().Get("Set-Cookie")
	if !strings.Contains(cookie, "token=") || !strings.Contains(cookie, "Max-Age=0") {
		t.Fatalf("logout cookie=%q", cookie)
	}
}

func TestAuthHandlers_Me(t *testing.T) {
	r := newTestRouter(newMocks().service())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header = authHeader(adminToken)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var info UserInfo
	_ = json.Unmarshal(w.Body.Bytes(), &info)
	if info.ID != 2 || !info.IsAdmin || info.Email != "a@x.com" {
		t.Fatalf("me=%+v", info)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous me status=%d", w.Code)
	}
}

func TestAuthHandlers_ChangePassword(t *testing.T) {
	m := newMocks()
	r := newTestRouter(m.service())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/api/auth/password", `{"currentPassword":"old","newPassword":"new"}`, authHeader(userToken)))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if m.auth.lastChange != [3]any{1, "old", "new"} {
		t.Fatalf("service got %v", m.auth.lastChange)
	}

	m.auth.changeErr = service.ErrInvalidCredentials
	w = httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/api/auth/password", `{"currentPassword":"bad","newPassword":"new"}`, authHeader(userToken)))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong current password status=%d", w.Code)
	}
}

func TestAuthHandlers_IPThrottleIgnoresForwardedFor(t *testing.T) {
	m := newMocks()
	m.auth.err = service.ErrInvalidCredentials
	r := newTestRouterWith(m.service(), Options{AuthRatePerMinute: 1, AuthBurst: 2})

	limited := 0
	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		req := postJSON("/api/auth/login", `{"email":"u@x.com","password":"p"}`, nil)
		req.RemoteAddr = "203.0.113.7:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		r.ServeHTTP(w, req)
		if w.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited != 18 {
		t.Fatalf("limited=%d, want 18: rotating X-Forwarded-For must not buy new buckets", limited)
	}
}

func TestAuthHandlers_IPThrottleHonoursTrustedProxy(t *testing.T) {
	m := newMocks()
	m.auth.err = service.ErrInvalidCredentials
	r := newTestRouterWith(m.service(), Options{
		AuthRatePerMinute: 1,
		AuthBurst:         1,
		TrustedProxies:    []string{"203.0.113.7"},
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := postJSON("/api/auth/login", `{"email":"u@x.com","password":"p"}`, nil)
		req.RemoteAddr = "203.0.113.7:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("client %d behind trusted proxy: status=%d", i, w.Code)
		}
	}
}

func TestAuthHandlers_RejectMalformedEmail(t *testing.T) {
	for _, path := range []string{"/api/auth/login", "/api/auth/register"} {
		for _, email := range []string{"nope", "a@", "@x.com", "two words@x.com"} {
			m := newMocks()
			r := newTestRouter(m.service())

			w := httptest.NewRecorder()
			body := fmt.Sprintf(`{"email":%q,"password":"p"}`, email)
			r.ServeHTTP(w, postJSON(path, body, nil))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("%s %q: status=%d, want 400", path, email, w.Code)
			}
			if m.auth.lastEmail != "" {
				t.Fatalf("%s %q reached the service", path, email)
			}
		}
	}
}
