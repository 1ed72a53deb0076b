package saledraft

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etshd/backoffice/domain"
)

func testCatalog() Catalog {
	return Catalog{
		1: {ID: 1, Name: "Cement 50kg", Price: 1000, CostPrice: 400, Stock: 5},
		2: {ID: 2, Name: "Iron bar", Price: 2500, CostPrice: 1800, Stock: 10},
	}
}

func validDraft() Draft {
	return Draft{
		ClientID:      7,
		PaymentMethod: domain.MethodCash,
		Items:         []Line{{ProductID: 1, Quantity: 3, Price: 400}},
	}
}

func TestValidateCreateAcceptsValidDraft(t *testing.T) {
	require.NoError(t, ValidateCreate(validDraft(), testCatalog(), time.Now()))
}

func TestValidateCreateRequiresClient(t *testing.T) {
	d := validDraft()
	d.ClientID = 0
	err := ValidateCreate(d, testCatalog(), time.Now())
	require.Error(t, err)
	verr := err.(*ValidationError)
	assert.Equal(t, "select a client", verr.Fields["client"])
}

func TestValidateCreateRejectsUnknownMethod(t *testing.T) {
	d := validDraft()
	d.PaymentMethod = "cheque"
	err := ValidateCreate(d, testCatalog(), time.Now())
	require.Error(t, err)
	assert.Equal(t, "invalid payment method", err.(*ValidationError).Fields["paymentMethod"])
}

func TestValidateCreateLineRules(t *testing.T) {
	cases := []struct {
		name string
		line Line
		want string
	}{
		{"missing product", Line{}, "select a product"},
		{"unknown product", Line{ProductID: 99, Quantity: 1, Price: 10}, "invalid product"},
		{"zero quantity", Line{ProductID: 1, Quantity: 0, Price: 500}, "quantity must be positive"},
		{"negative quantity", Line{ProductID: 1, Quantity: -2, Price: 500}, "quantity must be positive"},
		{"over stock", Line{ProductID: 1, Quantity: 6, Price: 500}, "insufficient stock (max: 5)"},
		{"below cost", Line{ProductID: 1, Quantity: 1, Price: 399.99}, "price too low (min: 400)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := validDraft()
			d.Items = []Line{tc.line}
			err := ValidateCreate(d, testCatalog(), time.Now())
			require.Error(t, err)
			verr := err.(*ValidationError)
			assert.Equal(t, tc.want, verr.Lines[0])
		})
	}
}

func TestValidateCreateRequiresItems(t *testing.T) {
	d := validDraft()
	d.Items = nil
	err := ValidateCreate(d, testCatalog(), time.Now())
	require.Error(t, err)
	assert.Equal(t, "add at least one product", err.(*ValidationError).Fields["products"])
}

func TestLineErrorsKeepRowIndices(t *testing.T) {
	d := validDraft()
	d.Items = []Line{
		{ProductID: 1, Quantity: 1, Price: 400},
		{ProductID: 0},
		{ProductID: 2, Quantity: 11, Price: 2000},
	}
	err := ValidateCreate(d, testCatalog(), time.Now())
	require.Error(t, err)
	verr := err.(*ValidationError)
	assert.NotContains(t, verr.Lines, 0)
	assert.Equal(t, "select a product", verr.Lines[1])
	assert.Equal(t, "insufficient stock (max: 10)", verr.Lines[2])
}

func TestEditModeRelaxesStockByOriginalQuantity(t *testing.T) {
	cat := Catalog{1: {ID: 1, Price: 1000, CostPrice: 400, Stock: 10}}
	d := Draft{
		ClientID: 1,
		Note:     "price adjustment",
		Items:    []Line{{ProductID: 1, Quantity: 13, Price: 500, OriginalQuantity: 3}},
	}
	require.NoError(t, ValidateUpdate(d, cat))

	d.Items[0].Quantity = 14
	err := ValidateUpdate(d, cat)
	require.Error(t, err)
	assert.Equal(t, "insufficient stock (max: 13)", err.(*ValidationError).Lines[0])
}

func TestValidateUpdateRequiresNote(t *testing.T) {
	d := Draft{
		ClientID: 1,
		Note:     "   ",
		Items:    []Line{{ProductID: 1, Quantity: 1, Price: 400}},
	}
	err := ValidateUpdate(d, testCatalog())
	require.Error(t, err)
	assert.Equal(t, "a modification note is required", err.(*ValidationError).Fields["note"])
}

func TestReminderMustBeInFuture(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	d := validDraft()
	d.ReminderDate = "2026-08-30T10:00"
	err := ValidateCreate(d, testCatalog(), now)
	require.Error(t, err)
	assert.Equal(t, "reminder date must be in the future", err.(*ValidationError).Fields["reminderDate"])

	d.ReminderDate = "2026-09-15T10:00"
	require.NoError(t, ValidateCreate(d, testCatalog(), now))

	d.ReminderDate = "not-a-date"
	err = ValidateCreate(d, testCatalog(), now)
	require.Error(t, err)
	assert.Equal(t, "invalid reminder date", err.(*ValidationError).Fields["reminderDate"])
}

func TestNoteLengthLimits(t *testing.T) {
	long := make([]byte, MaxNoteLen+1)
	for i := range long {
		long[i] = 'x'
	}
	d := validDraft()
	d.Note = string(long)
	err := ValidateCreate(d, testCatalog(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.(*ValidationError).Fields["note"], "at most 500")
}

func TestTotalIsExactSum(t *testing.T) {
	items := []Line{
		{ProductID: 1, Quantity: 3, Price: 400},
		{ProductID: 2, Quantity: 7, Price: 19.99},
		{ProductID: 2, Quantity: 1, Price: 0.01},
	}
	// 1200 + 139.93 + 0.01 = 1339.94 with no float drift.
	assert.True(t, Total(items).Equal(decimal.RequireFromString("1339.94")),
		"got %s", Total(items))
}

func TestBalanceAndStatus(t *testing.T) {
	payments := []domain.Payment{{Amount: 5000}, {Amount: 2500}}
	balance := Balance(10000, payments)
	require.True(t, balance.Equal(decimal.NewFromInt(2500)))

	assert.Equal(t, domain.StatusPartiallyPaid, StatusFor(balance, true))
	assert.Equal(t, domain.StatusPending, StatusFor(decimal.NewFromInt(10000), false))
	assert.Equal(t, domain.StatusCompleted, StatusFor(decimal.Zero, true))
	assert.Equal(t, domain.StatusCompleted, StatusFor(decimal.NewFromInt(-1), true))
}
