package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hcsem/communityhub/internal/accounts"
	"github.com/hcsem/communityhub/internal/domain/user"
	"github.com/hcsem/communityhub/internal/http/handlers"
	"github.com/hcsem/communityhub/internal/http/middlewares"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Handle(method, path, h)
	return r
}

type fakeLoginGate struct {
	loginFn  func(ctx context.Context, email, password, ip string) (accounts.LoginResult, error)
	logoutFn func(ctx context.Context, rawToken string) error
}

func (f *fakeLoginGate) Login(ctx context.Context, email, password, ip string) (accounts.LoginResult, error) {
	if f.loginFn != nil {
		return f.loginFn(ctx, email, password, ip)
	}
	return accounts.LoginResult{}, nil
}

func (f *fakeLoginGate) Logout(ctx context.Context, rawToken string) error {
	if f.logoutFn != nil {
		return f.logoutFn(ctx, rawToken)
	}
	return nil
}

type fakePasswordChanger struct {
	changeFn func(ctx context.Context, userID, currentPassword, newPassword, ip string) error
	forcedFn func(ctx context.Context, changeToken, newPassword, ip string) error
	redeemFn func(ctx context.Context, plainToken, newPassword, ip string) error
}

func (f *fakePasswordChanger) ChangePassword(ctx context.Context, userID, currentPassword, newPassword, ip string) error {
	if f.changeFn != nil {
		return f.changeFn(ctx, userID, currentPassword, newPassword, ip)
	}
	return nil
}

func (f *fakePasswordChanger) CompleteForcedChange(ctx context.Context, changeToken, newPassword, ip string) error {
	if f.forcedFn != nil {
		return f.forcedFn(ctx, changeToken, newPassword, ip)
	}
	return nil
}

func (f *fakePasswordChanger) RedeemToken(ctx context.Context, plainToken, newPassword, ip string) error {
	if f.redeemFn != nil {
		return f.redeemFn(ctx, plainToken, newPassword, ip)
	}
	return nil
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		loginFn        func(ctx context.Context, email, password, ip string) (accounts.LoginResult, error)
		wantStatusCode int
	}{
		{
			name: "ok",
			body: `{"email":"alice@example.com","password":"correct-horse"}`,
			loginFn: func(ctx context.Context, email, password, ip string) (accounts.LoginResult, error) {
				return accounts.LoginResult{
					Token:     "raw-jwt",
					ExpiresAt: time.Now().Add(time.Hour),
					User:      user.User{ID: "u1", Email: email},
				}, nil
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "invalid_credentials",
			body: `{"email":"alice@example.com","password":"wrong"}`,
			loginFn: func(ctx context.Context, email, password, ip string) (accounts.LoginResult, error) {
				return accounts.LoginResult{}, accounts.ErrInvalidCredentials
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name: "locked",
			body: `{"email":"alice@example.com","password":"correct-horse"}`,
			loginFn: func(ctx context.Context, email, password, ip string) (accounts.LoginResult, error) {
				return accounts.LoginResult{}, accounts.ErrAccountLocked
			},
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "missing_password",
			body:           `{"email":"alice@example.com"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "bad_email",
			body:           `{"email":"not-an-email","password":"x"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "invalid_json",
			body:           `{`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewAuthHandler(&fakeLoginGate{loginFn: tt.loginFn}, &fakePasswordChanger{}, nil)
			r := setupRouter(http.MethodPost, "/api/auth/login", h.Login)

			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestLoginUnknownEmailAndWrongPasswordAreIndistinguishable(t *testing.T) {
	h := handlers.NewAuthHandler(&fakeLoginGate{
		loginFn: func(ctx context.Context, email, password, ip string) (accounts.LoginResult, error) {
			return accounts.LoginResult{}, accounts.ErrInvalidCredentials
		},
	}, &fakePasswordChanger{}, nil)
	r := setupRouter(http.MethodPost, "/api/auth/login", h.Login)

	bodies := []string{
		`{"email":"nobody@example.com","password":"whatever"}`,
		`{"email":"alice@example.com","password":"wrong"}`,
	}

	var responses []string

	for _, body := range bodies {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("got status %d, want 401", w.Code)
		}
		responses = append(responses, w.Body.String())
	}

	if responses[0] != responses[1] {
		t.Fatalf("responses differ:\n%s\n%s", responses[0], responses[1])
	}
}

func TestLoginMustChangePassword(t *testing.T) {
	h := handlers.NewAuthHandler(&fakeLoginGate{
		loginFn: func(ctx context.Context, email, password, ip string) (accounts.LoginResult, error) {
			return accounts.LoginResult{Token: "pwchange-jwt", MustChangePassword: true}, nil
		},
	}, &fakePasswordChanger{}, nil)
	r := setupRouter(http.MethodPost, "/api/auth/login", h.Login)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"alice@example.com","password":"correct-horse"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}

	var got struct {
		MustChangePassword  bool   `json:"mustChangePassword"`
		PasswordChangeToken string `json:"passwordChangeToken"`
		Token               string `json:"token"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.MustChangePassword {
		t.Fatal("expected mustChangePassword=true")
	}
	if got.PasswordChangeToken != "pwchange-jwt" {
		t.Fatalf("got change token %q", got.PasswordChangeToken)
	}
	if got.Token != "" {
		t.Fatal("a session token must not be issued during forced rotation")
	}
}

func TestLogout(t *testing.T) {
	var revoked string

	h := handlers.NewAuthHandler(&fakeLoginGate{
		logoutFn: func(ctx context.Context, rawToken string) error {
			revoked = rawToken
			return nil
		},
	}, &fakePasswordChanger{}, nil)

	r := gin.New()
	r.POST("/api/auth/logout", func(c *gin.Context) {
		c.Set(middlewares.CtxRawToken, "raw-jwt")
		h.Logout(c)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want 204", w.Code)
	}
	if revoked != "raw-jwt" {
		t.Fatalf("revoked token %q, want raw-jwt", revoked)
	}
}

func TestChangePassword(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		changeFn       func(ctx context.Context, userID, currentPassword, newPassword, ip string) error
		wantStatusCode int
	}{
		{
			name:           "ok",
			body:           `{"currentPassword":"correct-horse","newPassword":"new-password-1"}`,
			wantStatusCode: http.StatusNoContent,
		},
		{
			name: "wrong_current",
			body: `{"currentPassword":"nope","newPassword":"new-password-1"}`,
			changeFn: func(ctx context.Context, userID, currentPassword, newPassword, ip string) error {
				return accounts.ErrInvalidCredentials
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "short_new_password",
			body:           `{"currentPassword":"correct-horse","newPassword":"short"}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewAuthHandler(&fakeLoginGate{}, &fakePasswordChanger{changeFn: tt.changeFn}, nil)

			r := gin.New()
			r.POST("/api/auth/password/change", func(c *gin.Context) {
				c.Set(middlewares.CtxIdentity, accounts.Identity{User: user.User{ID: "u1"}})
				h.ChangePassword(c)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/auth/password/change", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestCompleteForcedChange(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		forcedFn       func(ctx context.Context, changeToken, newPassword, ip string) error
		wantStatusCode int
	}{
		{
			name:           "ok",
			body:           `{"token":"pwchange-jwt","newPassword":"new-password-1"}`,
			wantStatusCode: http.StatusNoContent,
		},
		{
			name: "invalid_token",
			body: `{"token":"stale","newPassword":"new-password-1"}`,
			forcedFn: func(ctx context.Context, changeToken, newPassword, ip string) error {
				return accounts.ErrInvalidToken
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "missing_token",
			body:           `{"newPassword":"new-password-1"}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewAuthHandler(&fakeLoginGate{}, &fakePasswordChanger{forcedFn: tt.forcedFn}, nil)
			r := setupRouter(http.MethodPost, "/api/auth/password/forced-change", h.CompleteForcedChange)

			req := httptest.NewRequest(http.MethodPost, "/api/auth/password/forced-change", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestResetPassword(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		redeemFn       func(ctx context.Context, plainToken, newPassword, ip string) error
		wantStatusCode int
		wantCode       string
	}{
		{
			name:           "ok",
			body:           `{"token":"plain-token","newPassword":"new-password-1"}`,
			wantStatusCode: http.StatusNoContent,
		},
		{
			name: "invalid_token",
			body: `{"token":"used","newPassword":"new-password-1"}`,
			redeemFn: func(ctx context.Context, plainToken, newPassword, ip string) error {
				return accounts.ErrInvalidToken
			},
			wantStatusCode: http.StatusBadRequest,
			wantCode:       "invalid_token",
		},
		{
			name: "expired_token",
			body: `{"token":"old","newPassword":"new-password-1"}`,
			redeemFn: func(ctx context.Context, plainToken, newPassword, ip string) error {
				return accounts.ErrTokenExpired
			},
			wantStatusCode: http.StatusBadRequest,
			wantCode:       "token_expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewAuthHandler(&fakeLoginGate{}, &fakePasswordChanger{redeemFn: tt.redeemFn}, nil)
			r := setupRouter(http.MethodPost, "/api/auth/password/reset", h.ResetPassword)

			req := httptest.NewRequest(http.MethodPost, "/api/auth/password/reset", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantCode != "" {
				var got struct {
					Error struct {
						Code string `json:"code"`
					} `json:"error"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if got.Error.Code != tt.wantCode {
					t.Fatalf("got error code %q, want %q", got.Error.Code, tt.wantCode)
				}
			}
		})
	}
}
