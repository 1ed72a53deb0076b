package api

import (
	"net/http"
	"testing"

	"etshd/backoffice/domain"
)

type paymentResult struct {
	Payment domain.Payment `json:"payment"`
	Status  string         `json:"status"`
	Balance float64        `json:"balance"`
}

func newCreditSale(t *testing.T, env *testEnv, price float64, quantity int64) saleResponse {
	t.Helper()
	productID := env.seedProduct("Ciment 50kg", price, price/2, 50)
	clientID := env.seedClient("Client credit")
	rec := env.do(http.MethodPost, "/sales", saleBody(clientID, productID, quantity, price, domain.MethodCredit))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var sale saleResponse
	decodeBody(t, rec, &sale)
	return sale
}

func TestPaymentLifecycle(t *testing.T) {
	env := newTestEnv(t)
	sale := newCreditSale(t, env, 500, 5)
	path := "/sales/" + itoa(sale.ID) + "/payments"

	// Partial payment moves the sale to partially_paid.
	rec := env.do(http.MethodPost, path, map[string]any{"amount": 1000, "method": domain.MethodCash})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var result paymentResult
	decodeBody(t, rec, &result)
	if result.Status != domain.StatusPartiallyPaid {
		t.Fatalf("expected partially_paid, got %s", result.Status)
	}
	if result.Balance != 1500 {
		t.Fatalf("expected balance 1500, got %v", result.Balance)
	}

	// One unit over the outstanding balance is refused.
	rec = env.do(http.MethodPost, path, map[string]any{"amount": 1501, "method": domain.MethodCash})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "amount exceeds outstanding balance (1500)" {
		t.Fatalf("unexpected message: %q", msg)
	}

	// Exactly the balance settles the sale.
	rec = env.do(http.MethodPost, path, map[string]any{"amount": 1500, "method": domain.MethodMobileMoney})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &result)
	if result.Status != domain.StatusCompleted || result.Balance != 0 {
		t.Fatalf("expected completed with balance 0, got %s / %v", result.Status, result.Balance)
	}

	// No further payments once settled.
	rec = env.do(http.MethodPost, path, map[string]any{"amount": 10, "method": domain.MethodCash})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "sale is already fully paid" {
		t.Fatalf("unexpected message: %q", msg)
	}

	if n := env.count("payments"); n != 2 {
		t.Fatalf("expected two payment rows, got %d", n)
	}
}

func TestPaymentRejectsNonPositiveAmount(t *testing.T) {
	env := newTestEnv(t)
	sale := newCreditSale(t, env, 1000, 2)
	path := "/sales/" + itoa(sale.ID) + "/payments"

	for _, amount := range []float64{0, -50} {
		rec := env.do(http.MethodPost, path, map[string]any{"amount": amount, "method": domain.MethodCash})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("amount %v: expected 400, got %d", amount, rec.Code)
		}
		if fields := errorFields(t, rec); fields["amount"] == "" {
			t.Fatalf("amount %v: expected an amount error, got %v", amount, fields)
		}
	}
	if n := env.count("payments"); n != 0 {
		t.Fatalf("expected no payment rows, got %d", n)
	}
}

func TestPaymentRejectsCreditMethod(t *testing.T) {
	env := newTestEnv(t)
	sale := newCreditSale(t, env, 1000, 1)

	rec := env.do(http.MethodPost, "/sales/"+itoa(sale.ID)+"/payments",
		map[string]any{"amount": 500, "method": domain.MethodCredit})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if fields := errorFields(t, rec); fields["method"] == "" {
		t.Fatalf("expected a method error, got %v", fields)
	}
}

func TestPaymentOnCancelledSale(t *testing.T) {
	env := newTestEnv(t)
	sale := newCreditSale(t, env, 1000, 1)

	rec := env.do(http.MethodPost, "/sales/"+itoa(sale.ID)+"/cancel", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = env.do(http.MethodPost, "/sales/"+itoa(sale.ID)+"/payments",
		map[string]any{"amount": 500, "method": domain.MethodCash})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "sale is cancelled" {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestPaymentOnMissingSale(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/sales/404/payments",
		map[string]any{"amount": 500, "method": domain.MethodCash})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "sale not found" {
		t.Fatalf("unexpected message: %q", msg)
	}
}
