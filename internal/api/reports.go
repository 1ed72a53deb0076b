package api

import (
	"net/http"
	"strings"
	"time"

	"etshd/backoffice/domain"
)

// dailySales and monthlySales report revenue over sales that still count
// (cancelled and deleted sales are excluded).

func (h *Handler) dailySales(w http.ResponseWriter, r *http.Request) {
	query := `SELECT COALESCE(SUM(total_amount), 0) AS revenue, COUNT(*) AS count FROM sales
        WHERE DATE(sale_date) = DATE('now') AND status NOT IN (?, ?)`
	var revenue float64
	var count int64
	if err := h.db.QueryRow(query, domain.StatusCancelled, domain.StatusDeleted).Scan(&revenue, &count); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch daily sales")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"revenue": revenue, "salesCount": count})
}

func (h *Handler) monthlySales(w http.ResponseWriter, r *http.Request) {
	query := `SELECT COALESCE(SUM(total_amount), 0) AS revenue, COUNT(*) AS count FROM sales
        WHERE DATE(sale_date) >= DATE('now', 'start of month') AND status NOT IN (?, ?)`
	var revenue float64
	var count int64
	if err := h.db.QueryRow(query, domain.StatusCancelled, domain.StatusDeleted).Scan(&revenue, &count); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch monthly sales")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"revenue": revenue, "salesCount": count})
}

// reportSummary aggregates the dashboard figures: revenue and gross profit
// over the requested window, total expenses, the outstanding credit across
// unpaid sales and the cost value of current stock.
func (h *Handler) reportSummary(w http.ResponseWriter, r *http.Request) {
	var (
		dateArgs    []any
		dateClauses []string
	)
	startDate := strings.TrimSpace(r.URL.Query().Get("start_date"))
	if startDate != "" {
		if _, err := time.Parse("2006-01-02", startDate); err != nil {
			respondError(w, http.StatusBadRequest, "start_date must be in YYYY-MM-DD format")
			return
		}
		dateArgs = append(dateArgs, startDate)
		dateClauses = append(dateClauses, "DATE(s.sale_date) >= ?")
	}
	endDate := strings.TrimSpace(r.URL.Query().Get("end_date"))
	if endDate != "" {
		if _, err := time.Parse("2006-01-02", endDate); err != nil {
			respondError(w, http.StatusBadRequest, "end_date must be in YYYY-MM-DD format")
			return
		}
		dateArgs = append(dateArgs, endDate)
		dateClauses = append(dateClauses, "DATE(s.sale_date) <= ?")
	}
	dateFilter := ""
	if len(dateClauses) > 0 {
		dateFilter = " AND " + strings.Join(dateClauses, " AND ")
	}

	statusArgs := []any{domain.StatusCancelled, domain.StatusDeleted}

	var revenue float64
	var salesCount int64
	revenueQuery := `SELECT COALESCE(SUM(s.total_amount), 0), COUNT(*) FROM sales s
        WHERE s.status NOT IN (?, ?)` + dateFilter
	if err := h.db.QueryRow(revenueQuery, append(statusArgs, dateArgs...)...).Scan(&revenue, &salesCount); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to compute revenue")
		return
	}

	var profit float64
	profitQuery := `SELECT COALESCE(SUM((si.price - p.cost_price) * si.quantity), 0)
        FROM sale_items si
        JOIN sales s ON s.id = si.sale_id
        JOIN products p ON p.id = si.product_id
        WHERE s.status NOT IN (?, ?)` + dateFilter
	if err := h.db.Get(&profit, profitQuery, append(statusArgs, dateArgs...)...); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to compute profit")
		return
	}

	var expensesTotal float64
	expenseQuery := `SELECT COALESCE(SUM(amount), 0) FROM expenses`
	expenseArgs := []any{}
	if startDate != "" || endDate != "" {
		expenseClauses := []string{}
		if startDate != "" {
			expenseClauses = append(expenseClauses, "DATE(incurred_at) >= ?")
			expenseArgs = append(expenseArgs, startDate)
		}
		if endDate != "" {
			expenseClauses = append(expenseClauses, "DATE(incurred_at) <= ?")
			expenseArgs = append(expenseArgs, endDate)
		}
		expenseQuery += " WHERE " + strings.Join(expenseClauses, " AND ")
	}
	if err := h.db.Get(&expensesTotal, expenseQuery, expenseArgs...); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to compute expenses")
		return
	}

	// Outstanding credit is a point-in-time figure, never date-filtered.
	var unpaidTotal, unpaidPaid float64
	if err := h.db.Get(&unpaidTotal, `SELECT COALESCE(SUM(total_amount), 0) FROM sales WHERE status IN (?, ?)`,
		domain.StatusPending, domain.StatusPartiallyPaid); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to compute outstanding credit")
		return
	}
	if err := h.db.Get(&unpaidPaid, `SELECT COALESCE(SUM(p.amount), 0) FROM payments p
        JOIN sales s ON s.id = p.sale_id WHERE s.status IN (?, ?)`,
		domain.StatusPending, domain.StatusPartiallyPaid); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to compute outstanding credit")
		return
	}

	var stockValue float64
	if err := h.db.Get(&stockValue, `SELECT COALESCE(SUM(stock * cost_price), 0) FROM products`); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to compute stock value")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"revenue":           revenue,
		"salesCount":        salesCount,
		"grossProfit":       profit,
		"expensesTotal":     expensesTotal,
		"outstandingCredit": unpaidTotal - unpaidPaid,
		"stockValue":        stockValue,
	})
}
