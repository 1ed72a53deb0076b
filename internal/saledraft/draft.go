// Package saledraft holds the pure business rules for composing, editing and
// paying sales: line validation against the catalog, total computation and
// balance/status derivation. Handlers decode requests into a Draft and let
// this package decide; nothing here touches the database or the network.
package saledraft

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"etshd/backoffice/domain"
)

// Length limits carried from the original forms.
const (
	MaxNoteLen         = 500
	MaxReminderNoteLen = 200
)

// Line is one product row of a draft. OriginalQuantity is only meaningful in
// edit mode: it is the quantity the sale being edited already reserves, which
// stays available to this row until replaced.
type Line struct {
	ProductID        int64
	Quantity         int64
	Price            float64
	OriginalQuantity int64
}

// Draft is the form-local state of a sale before submission.
type Draft struct {
	ClientID      int64
	Items         []Line
	PaymentMethod string
	Note          string
	ReminderDate  string
	ReminderNote  string
}

// Catalog indexes products by id for validation lookups.
type Catalog map[int64]domain.Product

// ValidationError carries form-level errors keyed by field and per-row errors
// keyed by line index, mirroring how the forms display them.
type ValidationError struct {
	Fields map[string]string
	Lines  map[int]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields)+len(e.Lines))
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		parts = append(parts, f+": "+e.Fields[f])
	}
	rows := make([]int, 0, len(e.Lines))
	for i := range e.Lines {
		rows = append(rows, i)
	}
	sort.Ints(rows)
	for _, i := range rows {
		parts = append(parts, fmt.Sprintf("item %d: %s", i, e.Lines[i]))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, seen := e.Fields[field]; !seen {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) addLine(i int, msg string) {
	if e.Lines == nil {
		e.Lines = map[int]string{}
	}
	if _, seen := e.Lines[i]; !seen {
		e.Lines[i] = msg
	}
}

func (e *ValidationError) ok() bool {
	return len(e.Fields) == 0 && len(e.Lines) == 0
}

var validMethods = map[string]bool{
	domain.MethodCash:        true,
	domain.MethodMobileMoney: true,
	domain.MethodCredit:      true,
}

// Reminder dates arrive either as RFC3339 or as the datetime-local format the
// forms produce.
var reminderLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"}

// ParseReminder parses a reminder timestamp in any accepted layout.
func ParseReminder(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range reminderLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ValidateCreate checks a new-sale draft. now anchors the reminder-date
// check. A nil return means the draft is submittable.
func ValidateCreate(d Draft, cat Catalog, now time.Time) error {
	verr := &ValidationError{}
	if d.ClientID <= 0 {
		verr.add("client", "select a client")
	}
	if !validMethods[d.PaymentMethod] {
		verr.add("paymentMethod", "invalid payment method")
	}
	if len(d.Note) > MaxNoteLen {
		verr.add("note", fmt.Sprintf("note must be at most %d characters", MaxNoteLen))
	}
	if d.ReminderDate != "" {
		when, err := ParseReminder(d.ReminderDate)
		if err != nil {
			verr.add("reminderDate", "invalid reminder date")
		} else if when.Before(now) {
			verr.add("reminderDate", "reminder date must be in the future")
		}
	}
	if len(d.ReminderNote) > MaxReminderNoteLen {
		verr.add("reminderNote", fmt.Sprintf("reminder note must be at most %d characters", MaxReminderNoteLen))
	}
	validateItems(verr, d.Items, cat, false)
	if verr.ok() {
		return nil
	}
	return verr
}

// ValidateUpdate checks an edit draft. The modification note is mandatory and
// each row's available stock is relaxed by its OriginalQuantity.
func ValidateUpdate(d Draft, cat Catalog) error {
	verr := &ValidationError{}
	if strings.TrimSpace(d.Note) == "" {
		verr.add("note", "a modification note is required")
	}
	if len(d.Note) > MaxNoteLen {
		verr.add("note", fmt.Sprintf("note must be at most %d characters", MaxNoteLen))
	}
	validateItems(verr, d.Items, cat, true)
	if verr.ok() {
		return nil
	}
	return verr
}

func validateItems(verr *ValidationError, items []Line, cat Catalog, edit bool) {
	if len(items) == 0 {
		verr.add("products", "add at least one product")
		return
	}
	for i, line := range items {
		if line.ProductID <= 0 {
			verr.addLine(i, "select a product")
			continue
		}
		product, found := cat[line.ProductID]
		if !found {
			verr.addLine(i, "invalid product")
			continue
		}
		if line.Quantity <= 0 {
			verr.addLine(i, "quantity must be positive")
			continue
		}
		available := AvailableStock(product, line, edit)
		if line.Quantity > available {
			verr.addLine(i, fmt.Sprintf("insufficient stock (max: %d)", available))
			continue
		}
		if line.Price < product.CostPrice {
			verr.addLine(i, fmt.Sprintf("price too low (min: %s)", decimal.NewFromFloat(product.CostPrice).String()))
		}
	}
}

// AvailableStock is the quantity a row may claim: the product's current stock
// plus, when editing, the units the sale already holds for that row.
func AvailableStock(p domain.Product, line Line, edit bool) int64 {
	if edit {
		return p.Stock + line.OriginalQuantity
	}
	return p.Stock
}

// Total is the exact sum of quantity times price over the lines.
func Total(items []Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range items {
		total = total.Add(decimal.NewFromFloat(line.Price).Mul(decimal.NewFromInt(line.Quantity)))
	}
	return total
}

// Balance is totalAmount minus the sum of recorded payment amounts.
func Balance(totalAmount float64, payments []domain.Payment) decimal.Decimal {
	balance := decimal.NewFromFloat(totalAmount)
	for _, p := range payments {
		balance = balance.Sub(decimal.NewFromFloat(p.Amount))
	}
	return balance
}

// StatusFor derives a sale's payment status from its balance and whether any
// payment has been recorded.
func StatusFor(balance decimal.Decimal, hasPayments bool) string {
	if !balance.IsPositive() {
		return domain.StatusCompleted
	}
	if hasPayments {
		return domain.StatusPartiallyPaid
	}
	return domain.StatusPending
}
