package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRegister(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	body := `{"username":"alice","email":"alice@example.com","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}
}

func TestRegister_Validation(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", "not json"},
		{"missing email", `{"username":"alice","password":"password123"}`},
		{"bad email", `{"username":"alice","email":"nope","password":"password123"}`},
		{"short password", `{"username":"alice","email":"alice@example.com","password":"short"}`},
		{"unknown role", `{"username":"alice","email":"alice@example.com","password":"password123","role":"superuser"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusBadRequest, w.Body.String())
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	registerUser(t, router, "alice", "alice@example.com", "password123", "user")

	body := `{"username":"alice2","email":"alice@example.com","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("duplicate register status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestLogin_SetsCookie(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	registerUser(t, router, "alice", "alice@example.com", "password123", "user")

	body := `{"email":"alice@example.com","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == tokenCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("login did not set the token cookie")
	}
	if !cookie.HttpOnly {
		t.Error("token cookie should be HttpOnly")
	}
	if cookie.SameSite != http.SameSiteStrictMode {
		t.Errorf("token cookie SameSite = %v, want Strict", cookie.SameSite)
	}
	if cookie.MaxAge != 3600 {
		t.Errorf("token cookie MaxAge = %d, want 3600", cookie.MaxAge)
	}

	var resp loginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Token != cookie.Value {
		t.Error("body token and cookie token should match")
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	registerUser(t, router, "alice", "alice@example.com", "password123", "user")

	tests := []struct {
		name string
		body string
	}{
		{"unknown email", `{"email":"nobody@example.com","password":"password123"}`},
		{"wrong password", `{"email":"alice@example.com","password":"wrong-password"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

// ─── Protected Route Enforcement ───────────────────────────────────

func TestProfile_NoToken(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	var errResp Error
	if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if errResp.Message != "no token provided" {
		t.Errorf("message = %q, want %q", errResp.Message, "no token provided")
	}
}

func TestProfile_CookieAuth(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	registerUser(t, router, "alice", "alice@example.com", "password123", "user")
	token := loginUser(t, router, "alice@example.com", "password123")

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: token})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var profile map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &profile); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if profile["email"] != "alice@example.com" {
		t.Errorf("email = %v, want alice@example.com", profile["email"])
	}
	if _, leaked := profile["password_hash"]; leaked {
		t.Error("profile response must not include the password hash")
	}
}

func TestProfile_BearerAuth(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	registerUser(t, router, "alice", "alice@example.com", "password123", "user")
	token := loginUser(t, router, "alice@example.com", "password123")

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestProfile_CookiePreferredOverBearer(t *testing.T) {
	// A garbage cookie must lose against nothing: the cookie wins the
	// extraction, so a valid Bearer token cannot rescue the request.
	srv := testServer(t)
	router := srv.buildRouter()
	registerUser(t, router, "alice", "alice@example.com", "password123", "user")
	token := loginUser(t, router, "alice@example.com", "password123")

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: "garbage"})
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d (cookie takes precedence)", w.Code, http.StatusUnauthorized)
	}
}

func TestProfile_GarbageToken(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	var errResp Error
	if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if errResp.Message != "not authorized" {
		t.Errorf("message = %q, want %q", errResp.Message, "not authorized")
	}
}

func TestRelogin_InvalidatesOlderToken(t *testing.T) {
	// Single-active-session over HTTP: the token from the first login is
	// rejected once a second login mints a new session.
	srv := testServer(t)
	router := srv.buildRouter()
	registerUser(t, router, "alice", "alice@example.com", "password123", "user")

	token1 := loginUser(t, router, "alice@example.com", "password123")

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token1)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("token1 before relogin status = %d, want 200", w.Code)
	}

	token2 := loginUser(t, router, "alice@example.com", "password123")

	req = httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token1)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("token1 after relogin status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token2)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("token2 status = %d, want 200", w.Code)
	}
}

func TestLogout_ClearsCookieOnly(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	registerUser(t, router, "alice", "alice@example.com", "password123", "user")
	token := loginUser(t, router, "alice@example.com", "password123")

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: token})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("logout status = %d, want %d", w.Code, http.StatusOK)
	}

	var cleared *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == tokenCookieName {
			cleared = c
		}
	}
	if cleared == nil {
		t.Fatal("logout did not set a clearing cookie")
	}
	if cleared.MaxAge >= 0 {
		t.Errorf("clearing cookie MaxAge = %d, want negative", cleared.MaxAge)
	}

	// The stored session survives logout, so a retained copy of the
	// token still authenticates until it expires or a new login occurs.
	req = httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("retained token after logout status = %d, want 200", w.Code)
	}
}

func TestLogout_RequiresToken(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("logout without token status = %d, want 401", w.Code)
	}
}

// ─── Role-Gated Routes ─────────────────────────────────────────────

func TestAdminOnly(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	registerUser(t, router, "alice", "alice@example.com", "password123", "user")
	registerUser(t, router, "root", "root@example.com", "password123", "admin")

	t.Run("no token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin-only", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("user role forbidden", func(t *testing.T) {
		token := loginUser(t, router, "alice@example.com", "password123")
		req := httptest.NewRequest(http.MethodGet, "/admin-only", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", w.Code)
		}
	})

	t.Run("admin role allowed", func(t *testing.T) {
		token := loginUser(t, router, "root@example.com", "password123")
		req := httptest.NewRequest(http.MethodGet, "/admin-only", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200; body: %s", w.Code, w.Body.String())
		}
	})
}

func TestCommon_AnyRole(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()
	registerUser(t, router, "alice", "alice@example.com", "password123", "user")
	registerUser(t, router, "root", "root@example.com", "password123", "admin")

	for _, email := range []string{"alice@example.com", "root@example.com"} {
		token := loginUser(t, router, email, "password123")
		req := httptest.NewRequest(http.MethodGet, "/common", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("common for %s status = %d, want 200", email, w.Code)
		}
	}
}
