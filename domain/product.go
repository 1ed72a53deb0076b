package domain

// Product is a catalog entry. CostPrice is the margin floor for sale line
// prices; Stock counts available units.
type Product struct {
	ID        int64   `db:"id" json:"id"`
	Name      string  `db:"name" json:"name"`
	Price     float64 `db:"price" json:"price"`
	CostPrice float64 `db:"cost_price" json:"costPrice"`
	Stock     int64   `db:"stock" json:"stock"`
	CreatedAt string  `db:"created_at" json:"createdAt"`
	UpdatedAt string  `db:"updated_at" json:"updatedAt"`
}

// StockMovement records every stock change with the sale (if any) that
// caused it.
type StockMovement struct {
	ID        int64  `db:"id" json:"id"`
	ProductID int64  `db:"product_id" json:"product"`
	SaleID    *int64 `db:"sale_id" json:"sale,omitempty"`
	Delta     int64  `db:"delta" json:"delta"`
	Reason    string `db:"reason" json:"reason"`
	CreatedAt string `db:"created_at" json:"createdAt"`
}

// Stock movement reasons.
const (
	MovementSale     = "sale"
	MovementSaleEdit = "sale_edit"
	MovementCancel   = "cancel"
	MovementDelete   = "delete"
	MovementRestock  = "restock"
)
