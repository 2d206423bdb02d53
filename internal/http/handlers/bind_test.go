package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hcsem/communityhub/internal/http/handlers"
)

func bindTarget(t *testing.T, body string, out interface{}) *httptest.ResponseRecorder {
	t.Helper()

	r := gin.New()
	r.POST("/bind", func(c *gin.Context) {
		if !handlers.BindJSON(c, out) {
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/bind", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	return w
}

func decodeFieldErrors(t *testing.T, body []byte) []handlers.FieldError {
	t.Helper()

	var got struct {
		Error struct {
			Details struct {
				Fields []handlers.FieldError `json:"fields"`
			} `json:"details"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}

	return got.Error.Details.Fields
}

func TestBindJSONValid(t *testing.T) {
	var req handlers.LoginRequest

	w := bindTarget(t, `{"email":"alice@example.com","password":"secret"}`, &req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}
	if req.Email != "alice@example.com" {
		t.Fatalf("got email %q", req.Email)
	}
}

func TestBindJSONReportsJSONFieldNames(t *testing.T) {
	var req handlers.ChangePasswordRequest

	w := bindTarget(t, `{"currentPassword":"old-one"}`, &req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}

	fields := decodeFieldErrors(t, w.Body.Bytes())

	if len(fields) != 1 {
		t.Fatalf("got %d field errors, want 1: %+v", len(fields), fields)
	}
	if fields[0].Field != "newPassword" {
		t.Fatalf("got field %q, want the json name newPassword", fields[0].Field)
	}
	if fields[0].Rule != "required" {
		t.Fatalf("got rule %q, want required", fields[0].Rule)
	}
}

func TestBindJSONMinRule(t *testing.T) {
	var req handlers.ChangePasswordRequest

	w := bindTarget(t, `{"currentPassword":"old-one","newPassword":"short"}`, &req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}

	fields := decodeFieldErrors(t, w.Body.Bytes())

	if len(fields) != 1 || fields[0].Rule != "min" || fields[0].Param != "8" {
		t.Fatalf("got %+v, want one min=8 violation on newPassword", fields)
	}
}

func TestBindJSONSyntaxError(t *testing.T) {
	var req handlers.LoginRequest

	w := bindTarget(t, `{"email":`, &req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid_json_syntax") {
		t.Fatalf("body %s does not flag the syntax error", w.Body.String())
	}
}

func TestBindJSONTypeMismatch(t *testing.T) {
	var req handlers.CreateUserRequest

	w := bindTarget(t, `{"email":"bob@example.com","fullName":"Bob","password":"long-enough-1","mustChangePassword":"yes"}`, &req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid_json_type") {
		t.Fatalf("body %s does not flag the type mismatch", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "mustChangePassword") {
		t.Fatalf("body %s does not name the offending field", w.Body.String())
	}
}
