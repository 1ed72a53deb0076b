package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"etshd/backoffice/domain"
)

type productRequest struct {
	Name      string  `json:"name" validate:"required"`
	Price     float64 `json:"price" validate:"gte=0"`
	CostPrice float64 `json:"costPrice" validate:"gte=0"`
	Stock     int64   `json:"stock" validate:"gte=0"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products := []domain.Product{}
	if err := h.db.Select(&products, `SELECT * FROM products ORDER BY name`); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list products")
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var product domain.Product
	if err := h.db.Get(&product, `SELECT * FROM products WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load product")
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fields := checkStruct(req); fields != nil {
		respondFieldErrors(w, fields)
		return
	}
	if req.Price < req.CostPrice {
		respondFieldErrors(w, map[string]string{"price": "sale price cannot be below cost price"})
		return
	}
	res, err := h.db.Exec(`INSERT INTO products (name, price, cost_price, stock) VALUES (?, ?, ?, ?)`,
		req.Name, req.Price, req.CostPrice, req.Stock)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to create product")
		return
	}
	id, _ := res.LastInsertId()
	var product domain.Product
	if err := h.db.Get(&product, `SELECT * FROM products WHERE id = ?`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load product")
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fields := checkStruct(req); fields != nil {
		respondFieldErrors(w, fields)
		return
	}
	res, err := h.db.Exec(`UPDATE products SET name = ?, price = ?, cost_price = ?, stock = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		req.Name, req.Price, req.CostPrice, req.Stock, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update product")
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}
	var product domain.Product
	if err := h.db.Get(&product, `SELECT * FROM products WHERE id = ?`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load product")
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var used int64
	if err := h.db.Get(&used, `SELECT COUNT(*) FROM sale_items WHERE product_id = ?`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to check product usage")
		return
	}
	if used > 0 {
		respondError(w, http.StatusConflict, "product is referenced by existing sales")
		return
	}
	res, err := h.db.Exec(`DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to delete product")
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
