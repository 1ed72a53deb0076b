package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"etshd/backoffice/domain"
)

type clientRequest struct {
	Name  string  `json:"name" validate:"required"`
	Email *string `json:"email" validate:"omitempty,email"`
	Phone *string `json:"phone"`
}

func (h *Handler) listClients(w http.ResponseWriter, r *http.Request) {
	clients := []domain.Client{}
	query := `SELECT * FROM clients ORDER BY name`
	args := []any{}
	if search := strings.TrimSpace(r.URL.Query().Get("search")); search != "" {
		query = `SELECT * FROM clients WHERE name LIKE ? ORDER BY name`
		args = append(args, "%"+search+"%")
	}
	if err := h.db.Select(&clients, query, args...); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list clients")
		return
	}
	respondJSON(w, http.StatusOK, clients)
}

func (h *Handler) getClient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	var client domain.Client
	if err := h.db.Get(&client, `SELECT * FROM clients WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "client not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load client")
		return
	}
	respondJSON(w, http.StatusOK, client)
}

func (h *Handler) createClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fields := checkStruct(req); fields != nil {
		respondFieldErrors(w, fields)
		return
	}
	res, err := h.db.Exec(`INSERT INTO clients (name, email, phone) VALUES (?, ?, ?)`, req.Name, req.Email, req.Phone)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to create client")
		return
	}
	id, _ := res.LastInsertId()
	var client domain.Client
	if err := h.db.Get(&client, `SELECT * FROM clients WHERE id = ?`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load client")
		return
	}
	respondJSON(w, http.StatusCreated, client)
}

func (h *Handler) updateClient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	var req clientRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fields := checkStruct(req); fields != nil {
		respondFieldErrors(w, fields)
		return
	}
	res, err := h.db.Exec(`UPDATE clients SET name = ?, email = ?, phone = ? WHERE id = ?`, req.Name, req.Email, req.Phone, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update client")
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, "client not found")
		return
	}
	var client domain.Client
	if err := h.db.Get(&client, `SELECT * FROM clients WHERE id = ?`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load client")
		return
	}
	respondJSON(w, http.StatusOK, client)
}

func (h *Handler) deleteClient(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	var used int64
	if err := h.db.Get(&used, `SELECT COUNT(*) FROM sales WHERE client_id = ?`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to check client usage")
		return
	}
	if used > 0 {
		respondError(w, http.StatusConflict, "client has existing sales")
		return
	}
	res, err := h.db.Exec(`DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to delete client")
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, "client not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
