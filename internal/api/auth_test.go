package api

import (
	"net/http"
	"testing"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doAs("", http.MethodPost, "/auth/register", map[string]any{
		"username": "admin", "email": "Admin@Etshd.com", "password": "secret123", "role": "admin",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created authResponse
	decodeBody(t, rec, &created)
	if created.Token == "" {
		t.Fatal("expected a token on register")
	}
	if created.User.Email != "admin@etshd.com" {
		t.Fatalf("expected lowercased email, got %q", created.User.Email)
	}

	rec = env.doAs("", http.MethodPost, "/auth/login", map[string]any{
		"email": "admin@etshd.com", "password": "secret123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var logged authResponse
	decodeBody(t, rec, &logged)
	if logged.Token == "" || logged.User.Role != "admin" {
		t.Fatalf("unexpected login response: %+v", logged.User)
	}

	rec = env.doAs("", http.MethodPost, "/auth/login", map[string]any{
		"email": "admin@etshd.com", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on bad password, got %d", rec.Code)
	}

	rec = env.doAs("", http.MethodPost, "/auth/register", map[string]any{
		"username": "dup", "email": "admin@etshd.com", "password": "secret123", "role": "staff",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate email, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "email already exists" {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doAs("", http.MethodPost, "/auth/register", map[string]any{
		"username": "x", "email": "bad", "password": "123", "role": "boss",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	fields := errorFields(t, rec)
	for _, field := range []string{"email", "password", "role"} {
		if fields[field] == "" {
			t.Fatalf("expected error for %s, got %v", field, fields)
		}
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doAs("", http.MethodGet, "/products", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = env.doAs("not-a-jwt", http.MethodGet, "/products", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with garbage token, got %d", rec.Code)
	}
}

func TestResetPassword(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doAs("", http.MethodPost, "/auth/register", map[string]any{
		"username": "staff", "email": "staff@etshd.com", "password": "original1", "role": "staff",
	})
	var created authResponse
	decodeBody(t, rec, &created)

	rec = env.doAs(created.Token, http.MethodPost, "/auth/reset-password", map[string]any{
		"new_password": "changed1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.doAs("", http.MethodPost, "/auth/login", map[string]any{
		"email": "staff@etshd.com", "password": "changed1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected login with new password, got %d", rec.Code)
	}
	rec = env.doAs("", http.MethodPost, "/auth/login", map[string]any{
		"email": "staff@etshd.com", "password": "original1",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected old password rejected, got %d", rec.Code)
	}
}
