package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"etshd/backoffice/domain"
	"etshd/backoffice/internal/saledraft"
)

type paymentRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Method string  `json:"method" validate:"required,oneof=cash MobileMoney"`
}

// recordPayment appends a payment to a sale. The amount must be positive and
// no greater than the outstanding balance; the sale's status is recomputed in
// the same transaction.
func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sale id")
		return
	}

	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if fields := checkStruct(req); fields != nil {
		respondFieldErrors(w, fields)
		return
	}

	tx, err := h.db.Beginx()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer tx.Rollback()

	var sale domain.Sale
	if err := tx.Get(&sale, `SELECT * FROM sales WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "sale not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load sale")
		return
	}
	switch sale.Status {
	case domain.StatusCancelled, domain.StatusDeleted:
		respondError(w, http.StatusBadRequest, "sale is "+sale.Status)
		return
	case domain.StatusCompleted:
		respondError(w, http.StatusBadRequest, "sale is already fully paid")
		return
	}

	var payments []domain.Payment
	if err := tx.Select(&payments, `SELECT * FROM payments WHERE sale_id = ?`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load payments")
		return
	}

	balance := saledraft.Balance(sale.TotalAmount, payments)
	amount := decimal.NewFromFloat(req.Amount)
	if amount.GreaterThan(balance) {
		respondError(w, http.StatusBadRequest, "amount exceeds outstanding balance ("+balance.String()+")")
		return
	}

	res, err := tx.Exec(`INSERT INTO payments (sale_id, amount, method) VALUES (?, ?, ?)`, id, req.Amount, req.Method)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to record payment")
		return
	}
	paymentID, _ := res.LastInsertId()

	status := saledraft.StatusFor(balance.Sub(amount), true)
	if _, err := tx.Exec(`UPDATE sales SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update sale status")
		return
	}

	if err := tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to finalize payment")
		return
	}

	var payment domain.Payment
	if err := h.db.Get(&payment, `SELECT * FROM payments WHERE id = ?`, paymentID); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load payment")
		return
	}
	remaining, _ := balance.Sub(amount).Float64()
	respondJSON(w, http.StatusCreated, map[string]any{
		"payment": payment,
		"status":  status,
		"balance": remaining,
	})
}
