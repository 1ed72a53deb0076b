package api

import (
	"net/http"
	"testing"

	"etshd/backoffice/domain"
)

func TestClientSearch(t *testing.T) {
	env := newTestEnv(t)
	env.seedClient("Moussa Diallo")
	env.seedClient("Fatou Camara")

	rec := env.do(http.MethodGet, "/clients?search=diallo", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var clients []domain.Client
	decodeBody(t, rec, &clients)
	if len(clients) != 1 || clients[0].Name != "Moussa Diallo" {
		t.Fatalf("unexpected search result: %+v", clients)
	}

	rec = env.do(http.MethodGet, "/clients", nil)
	decodeBody(t, rec, &clients)
	if len(clients) != 2 {
		t.Fatalf("expected two clients, got %d", len(clients))
	}
}

func TestCreateClientValidatesEmail(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/clients", map[string]any{"name": "Awa", "email": "not-an-email"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	fields := errorFields(t, rec)
	if fields["email"] == "" {
		t.Fatalf("expected an email error, got %v", fields)
	}

	rec = env.do(http.MethodPost, "/clients", map[string]any{"name": "Awa"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 without email, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteClientWithSales(t *testing.T) {
	env := newTestEnv(t)
	productID := env.seedProduct("Fer", 4500, 3600, 10)
	clientID := env.seedClient("Ibrahim")

	rec := env.do(http.MethodPost, "/sales", saleBody(clientID, productID, 1, 4500, domain.MethodCash))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	rec = env.do(http.MethodDelete, "/clients/"+itoa(clientID), nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "client has existing sales" {
		t.Fatalf("unexpected message: %q", msg)
	}
}
