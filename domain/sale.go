package domain

// Sale statuses. The backend owns every transition: creation sets pending or
// completed, payments move pending to partially_paid to completed, and
// cancel/delete are soft states that restore stock.
const (
	StatusPending       = "pending"
	StatusPartiallyPaid = "partially_paid"
	StatusCompleted     = "completed"
	StatusCancelled     = "cancelled"
	StatusDeleted       = "deleted"
)

// Payment methods accepted on sales and payments.
const (
	MethodCash        = "cash"
	MethodMobileMoney = "MobileMoney"
	MethodCredit      = "credit"
)

type Sale struct {
	ID            int64   `db:"id" json:"id"`
	Reference     string  `db:"reference" json:"reference"`
	ClientID      int64   `db:"client_id" json:"client"`
	TotalAmount   float64 `db:"total_amount" json:"totalAmount"`
	PaymentMethod string  `db:"payment_method" json:"paymentMethod"`
	Status        string  `db:"status" json:"status"`
	Note          string  `db:"note" json:"note,omitempty"`
	ReminderDate  *string `db:"reminder_date" json:"reminderDate,omitempty"`
	ReminderNote  *string `db:"reminder_note" json:"reminderNote,omitempty"`
	SaleDate      string  `db:"sale_date" json:"saleDate"`
	CreatedAt     string  `db:"created_at" json:"createdAt"`
	UpdatedAt     string  `db:"updated_at" json:"updatedAt"`
}

// SaleItem snapshots the product name and unit price at sale time so later
// catalog edits do not rewrite history.
type SaleItem struct {
	ID          int64   `db:"id" json:"id"`
	SaleID      int64   `db:"sale_id" json:"saleId"`
	ProductID   int64   `db:"product_id" json:"product"`
	ProductName string  `db:"product_name" json:"productName"`
	Quantity    int64   `db:"quantity" json:"quantity"`
	Price       float64 `db:"price" json:"price"`
}

// Payment rows are append-only; a sale's balance is totalAmount minus the sum
// of its payments.
type Payment struct {
	ID     int64   `db:"id" json:"id"`
	SaleID int64   `db:"sale_id" json:"saleId"`
	Amount float64 `db:"amount" json:"amount"`
	Method string  `db:"method" json:"method"`
	PaidAt string  `db:"paid_at" json:"paymentDate"`
}

// SaleRevision audits why a sale was modified. The note is mandatory on every
// edit.
type SaleRevision struct {
	ID        int64  `db:"id" json:"id"`
	SaleID    int64  `db:"sale_id" json:"saleId"`
	Note      string `db:"note" json:"note"`
	CreatedAt string `db:"created_at" json:"createdAt"`
}
