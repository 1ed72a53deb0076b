package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"etshd/backoffice/domain"
	"etshd/backoffice/internal/saledraft"
)

type saleLineRequest struct {
	Product  int64   `json:"product"`
	Quantity int64   `json:"quantity"`
	Price    float64 `json:"price"`
}

type createSaleRequest struct {
	Client        int64             `json:"client"`
	Products      []saleLineRequest `json:"products"`
	PaymentMethod string            `json:"paymentMethod"`
	// TotalAmount is accepted for wire compatibility but recomputed
	// server-side; the stored value never trusts the client.
	TotalAmount  float64 `json:"totalAmount"`
	Note         string  `json:"note"`
	ReminderDate string  `json:"reminderDate"`
	ReminderNote string  `json:"reminderNote"`
}

type updateSaleRequest struct {
	Products []saleLineRequest `json:"products"`
	Note     string            `json:"note"`
}

// saleResponse hydrates a sale with its items, payments and the derived
// paid/balance amounts.
type saleResponse struct {
	domain.Sale
	Items      []domain.SaleItem `json:"products"`
	Payments   []domain.Payment  `json:"payments"`
	PaidAmount float64           `json:"paidAmount"`
	Balance    float64           `json:"balance"`
}

func draftLines(lines []saleLineRequest) []saledraft.Line {
	items := make([]saledraft.Line, len(lines))
	for i, l := range lines {
		items[i] = saledraft.Line{ProductID: l.Product, Quantity: l.Quantity, Price: l.Price}
	}
	return items
}

// loadCatalog fetches the products referenced by the draft lines.
func (h *Handler) loadCatalog(lines []saleLineRequest) (saledraft.Catalog, error) {
	ids := make([]int64, 0, len(lines))
	seen := map[int64]bool{}
	for _, l := range lines {
		if l.Product > 0 && !seen[l.Product] {
			seen[l.Product] = true
			ids = append(ids, l.Product)
		}
	}
	cat := saledraft.Catalog{}
	if len(ids) == 0 {
		return cat, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	query = h.db.Rebind(query)
	var products []domain.Product
	if err := h.db.Select(&products, query, args...); err != nil {
		return nil, err
	}
	for _, p := range products {
		cat[p.ID] = p
	}
	return cat, nil
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	draft := saledraft.Draft{
		ClientID:      req.Client,
		Items:         draftLines(req.Products),
		PaymentMethod: req.PaymentMethod,
		Note:          req.Note,
		ReminderDate:  req.ReminderDate,
		ReminderNote:  req.ReminderNote,
	}
	cat, err := h.loadCatalog(req.Products)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load product catalog")
		return
	}
	if err := saledraft.ValidateCreate(draft, cat, time.Now()); err != nil {
		var verr *saledraft.ValidationError
		if errors.As(err, &verr) {
			respondDraftError(w, verr)
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var clientExists bool
	if err := h.db.Get(&clientExists, `SELECT EXISTS(SELECT 1 FROM clients WHERE id = ?)`, req.Client); err != nil || !clientExists {
		respondFieldErrors(w, map[string]string{"client": "invalid client"})
		return
	}

	tx, err := h.db.Beginx()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer tx.Rollback()

	// Stock is re-checked inside the transaction so concurrent sales cannot
	// oversell.
	for i, line := range draft.Items {
		var stock int64
		if err := tx.Get(&stock, `SELECT stock FROM products WHERE id = ?`, line.ProductID); err != nil {
			respondFieldErrors(w, map[string]string{lineKey(i): "invalid product"})
			return
		}
		if line.Quantity > stock {
			respondFieldErrors(w, map[string]string{lineKey(i): "insufficient stock (max: " + strconv.FormatInt(stock, 10) + ")"})
			return
		}
	}

	total, _ := saledraft.Total(draft.Items).Float64()
	status := domain.StatusCompleted
	if req.PaymentMethod == domain.MethodCredit {
		status = domain.StatusPending
	}

	res, err := tx.Exec(`INSERT INTO sales (reference, client_id, total_amount, payment_method, status, note, reminder_date, reminder_note)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), req.Client, total, req.PaymentMethod, status, req.Note,
		normalizeReminder(req.ReminderDate), nullIfEmpty(req.ReminderNote))
	if err != nil {
		h.log.Errorf("sale insert failed: %v", err)
		respondError(w, http.StatusInternalServerError, "unable to create sale record")
		return
	}
	saleID, _ := res.LastInsertId()

	for _, line := range draft.Items {
		product := cat[line.ProductID]
		if _, err := tx.Exec(`INSERT INTO sale_items (sale_id, product_id, product_name, quantity, price) VALUES (?, ?, ?, ?, ?)`,
			saleID, line.ProductID, product.Name, line.Quantity, line.Price); err != nil {
			respondError(w, http.StatusInternalServerError, "unable to add sale items")
			return
		}
		if err := adjustStock(tx, line.ProductID, -line.Quantity, &saleID, domain.MovementSale); err != nil {
			respondError(w, http.StatusInternalServerError, "unable to update stock")
			return
		}
	}

	// Cash and mobile-money sales are settled on the spot: one payment row
	// for the full amount. Credit sales start pending with no payments.
	if status == domain.StatusCompleted {
		if _, err := tx.Exec(`INSERT INTO payments (sale_id, amount, method) VALUES (?, ?, ?)`,
			saleID, total, req.PaymentMethod); err != nil {
			respondError(w, http.StatusInternalServerError, "unable to record initial payment")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to finalize sale")
		return
	}

	resp, err := h.loadSaleResponse(saleID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load sale")
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	var (
		args    []any
		clauses []string
	)
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		args = append(args, status)
		clauses = append(clauses, "status = ?")
	}
	if client := strings.TrimSpace(r.URL.Query().Get("client")); client != "" {
		clientID, err := strconv.ParseInt(client, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid client id")
			return
		}
		args = append(args, clientID)
		clauses = append(clauses, "client_id = ?")
	}

	query := `SELECT * FROM sales`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	var sales []domain.Sale
	if err := h.db.Select(&sales, query, args...); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch sales")
		return
	}
	report, err := h.hydrateSales(sales)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load sale details")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	resp, err := h.loadSaleResponse(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "sale not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load sale")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) updateSale(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	var sale domain.Sale
	if err := h.db.Get(&sale, `SELECT * FROM sales WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "sale not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load sale")
		return
	}
	if sale.Status == domain.StatusCancelled || sale.Status == domain.StatusDeleted {
		respondError(w, http.StatusBadRequest, "sale is "+sale.Status)
		return
	}

	var req updateSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var existing []domain.SaleItem
	if err := h.db.Select(&existing, `SELECT * FROM sale_items WHERE sale_id = ?`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load sale items")
		return
	}
	originalQty := map[int64]int64{}
	for _, item := range existing {
		originalQty[item.ProductID] += item.Quantity
	}

	items := draftLines(req.Products)
	for i := range items {
		items[i].OriginalQuantity = originalQty[items[i].ProductID]
	}
	draft := saledraft.Draft{ClientID: sale.ClientID, Items: items, Note: req.Note}

	cat, err := h.loadCatalog(req.Products)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load product catalog")
		return
	}
	if err := saledraft.ValidateUpdate(draft, cat); err != nil {
		var verr *saledraft.ValidationError
		if errors.As(err, &verr) {
			respondDraftError(w, verr)
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := h.db.Beginx()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer tx.Rollback()

	// Release the previous reservation, then re-apply the new lines. The
	// edit validation already accounted for the freed units.
	for _, item := range existing {
		if err := adjustStock(tx, item.ProductID, item.Quantity, &id, domain.MovementSaleEdit); err != nil {
			respondError(w, http.StatusInternalServerError, "unable to restore stock")
			return
		}
	}
	if _, err := tx.Exec(`DELETE FROM sale_items WHERE sale_id = ?`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to replace sale items")
		return
	}

	for i, line := range draft.Items {
		var stock int64
		if err := tx.Get(&stock, `SELECT stock FROM products WHERE id = ?`, line.ProductID); err != nil {
			respondFieldErrors(w, map[string]string{lineKey(i): "invalid product"})
			return
		}
		if line.Quantity > stock {
			respondFieldErrors(w, map[string]string{lineKey(i): "insufficient stock (max: " + strconv.FormatInt(stock, 10) + ")"})
			return
		}
		product := cat[line.ProductID]
		if _, err := tx.Exec(`INSERT INTO sale_items (sale_id, product_id, product_name, quantity, price) VALUES (?, ?, ?, ?, ?)`,
			id, line.ProductID, product.Name, line.Quantity, line.Price); err != nil {
			respondError(w, http.StatusInternalServerError, "unable to add sale items")
			return
		}
		if err := adjustStock(tx, line.ProductID, -line.Quantity, &id, domain.MovementSaleEdit); err != nil {
			respondError(w, http.StatusInternalServerError, "unable to update stock")
			return
		}
	}

	var payments []domain.Payment
	if err := tx.Select(&payments, `SELECT * FROM payments WHERE sale_id = ?`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load payments")
		return
	}

	totalDec := saledraft.Total(draft.Items)
	total, _ := totalDec.Float64()
	status := saledraft.StatusFor(saledraft.Balance(total, payments), len(payments) > 0)

	if _, err := tx.Exec(`UPDATE sales SET total_amount = ?, status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		total, status, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update sale")
		return
	}
	if _, err := tx.Exec(`INSERT INTO sale_revisions (sale_id, note) VALUES (?, ?)`, id, strings.TrimSpace(req.Note)); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to record modification note")
		return
	}

	if err := tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to finalize sale update")
		return
	}

	resp, err := h.loadSaleResponse(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load sale")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) cancelSale(w http.ResponseWriter, r *http.Request) {
	h.closeSale(w, r, domain.StatusCancelled, domain.MovementCancel)
}

func (h *Handler) deleteSale(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	h.closeSale(w, r, domain.StatusDeleted, domain.MovementDelete)
}

// closeSale soft-closes a sale: the status flips to cancelled or deleted and
// every reserved unit returns to stock. Rows are never hard-deleted.
func (h *Handler) closeSale(w http.ResponseWriter, r *http.Request, newStatus, reason string) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	var sale domain.Sale
	if err := h.db.Get(&sale, `SELECT * FROM sales WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "sale not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load sale")
		return
	}
	if sale.Status == domain.StatusCancelled || sale.Status == domain.StatusDeleted {
		respondError(w, http.StatusBadRequest, "sale is already "+sale.Status)
		return
	}

	tx, err := h.db.Beginx()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer tx.Rollback()

	var items []domain.SaleItem
	if err := tx.Select(&items, `SELECT * FROM sale_items WHERE sale_id = ?`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load sale items")
		return
	}
	for _, item := range items {
		if err := adjustStock(tx, item.ProductID, item.Quantity, &id, reason); err != nil {
			respondError(w, http.StatusInternalServerError, "unable to restore stock")
			return
		}
	}
	if _, err := tx.Exec(`UPDATE sales SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, newStatus, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update sale")
		return
	}
	if err := tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to finalize")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": newStatus})
}

// listReminders returns sales with a due reminder and an outstanding balance,
// for the dashboard follow-up panel.
func (h *Handler) listReminders(w http.ResponseWriter, r *http.Request) {
	var sales []domain.Sale
	query := `SELECT * FROM sales
        WHERE reminder_date IS NOT NULL AND reminder_date <= CURRENT_TIMESTAMP
          AND status IN (?, ?)
        ORDER BY reminder_date ASC`
	if err := h.db.Select(&sales, query, domain.StatusPending, domain.StatusPartiallyPaid); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch reminders")
		return
	}
	report, err := h.hydrateSales(sales)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load sale details")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Hydration helpers

func (h *Handler) loadSaleResponse(id int64) (saleResponse, error) {
	var sale domain.Sale
	if err := h.db.Get(&sale, `SELECT * FROM sales WHERE id = ?`, id); err != nil {
		return saleResponse{}, err
	}
	hydrated, err := h.hydrateSales([]domain.Sale{sale})
	if err != nil {
		return saleResponse{}, err
	}
	return hydrated[0], nil
}

func (h *Handler) hydrateSales(sales []domain.Sale) ([]saleResponse, error) {
	if len(sales) == 0 {
		return []saleResponse{}, nil
	}
	ids := make([]int64, len(sales))
	for i, sale := range sales {
		ids[i] = sale.ID
	}

	itemsQuery, itemsArgs, err := sqlx.In(`SELECT * FROM sale_items WHERE sale_id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var items []domain.SaleItem
	if err := h.db.Select(&items, h.db.Rebind(itemsQuery), itemsArgs...); err != nil {
		return nil, err
	}
	itemsBySale := make(map[int64][]domain.SaleItem)
	for _, item := range items {
		itemsBySale[item.SaleID] = append(itemsBySale[item.SaleID], item)
	}

	paymentsQuery, paymentsArgs, err := sqlx.In(`SELECT * FROM payments WHERE sale_id IN (?) ORDER BY paid_at ASC, id ASC`, ids)
	if err != nil {
		return nil, err
	}
	var payments []domain.Payment
	if err := h.db.Select(&payments, h.db.Rebind(paymentsQuery), paymentsArgs...); err != nil {
		return nil, err
	}
	paymentsBySale := make(map[int64][]domain.Payment)
	for _, p := range payments {
		paymentsBySale[p.SaleID] = append(paymentsBySale[p.SaleID], p)
	}

	report := make([]saleResponse, len(sales))
	for i, sale := range sales {
		saleItems := itemsBySale[sale.ID]
		if saleItems == nil {
			saleItems = []domain.SaleItem{}
		}
		salePayments := paymentsBySale[sale.ID]
		if salePayments == nil {
			salePayments = []domain.Payment{}
		}
		balance := saledraft.Balance(sale.TotalAmount, salePayments)
		balanceF, _ := balance.Float64()
		report[i] = saleResponse{
			Sale:       sale,
			Items:      saleItems,
			Payments:   salePayments,
			PaidAmount: sale.TotalAmount - balanceF,
			Balance:    balanceF,
		}
	}
	return report, nil
}

// adjustStock applies a delta to a product's stock and records the movement.
func adjustStock(tx *sqlx.Tx, productID, delta int64, saleID *int64, reason string) error {
	if _, err := tx.Exec(`UPDATE products SET stock = stock + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, delta, productID); err != nil {
		return err
	}
	_, err := tx.Exec(`INSERT INTO stock_movements (product_id, sale_id, delta, reason) VALUES (?, ?, ?, ?)`,
		productID, saleID, delta, reason)
	return err
}

// normalizeReminder stores reminder timestamps in SQLite's datetime format so
// they compare correctly against CURRENT_TIMESTAMP.
func normalizeReminder(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	when, err := saledraft.ParseReminder(value)
	if err != nil {
		return nil
	}
	formatted := when.UTC().Format("2006-01-02 15:04:05")
	return &formatted
}

func nullIfEmpty(val string) *string {
	trimmed := strings.TrimSpace(val)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
