package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"etshd/backoffice/domain"
)

type expenseRequest struct {
	Label      string  `json:"label" validate:"required"`
	Category   string  `json:"category"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
	IncurredAt *string `json:"incurredAt"`
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	expenses := []domain.Expense{}
	if err := h.db.Select(&expenses, `SELECT * FROM expenses ORDER BY incurred_at DESC, id DESC`); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list expenses")
		return
	}
	respondJSON(w, http.StatusOK, expenses)
}

func (h *Handler) createExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fields := checkStruct(req); fields != nil {
		respondFieldErrors(w, fields)
		return
	}
	var (
		res sql.Result
		err error
	)
	if req.IncurredAt != nil {
		res, err = h.db.Exec(`INSERT INTO expenses (label, category, amount, incurred_at) VALUES (?, ?, ?, ?)`,
			req.Label, req.Category, req.Amount, *req.IncurredAt)
	} else {
		res, err = h.db.Exec(`INSERT INTO expenses (label, category, amount) VALUES (?, ?, ?)`,
			req.Label, req.Category, req.Amount)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to record expense")
		return
	}
	id, _ := res.LastInsertId()
	var expense domain.Expense
	if err := h.db.Get(&expense, `SELECT * FROM expenses WHERE id = ?`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load expense")
		return
	}
	respondJSON(w, http.StatusCreated, expense)
}

func (h *Handler) deleteExpense(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid expense id")
		return
	}
	res, err := h.db.Exec(`DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to delete expense")
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, "expense not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
