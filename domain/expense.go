package domain

type Expense struct {
	ID         int64   `db:"id" json:"id"`
	Label      string  `db:"label" json:"label"`
	Category   string  `db:"category" json:"category,omitempty"`
	Amount     float64 `db:"amount" json:"amount"`
	IncurredAt string  `db:"incurred_at" json:"incurredAt"`
	CreatedAt  string  `db:"created_at" json:"createdAt"`
}
