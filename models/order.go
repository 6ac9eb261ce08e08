package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem is a snapshot of a menu line at order time. It carries no reference to
// the menu row, so later menu edits never change historical orders.
type OrderItem struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Qty   int             `json:"qty"`
}

// LineTotal is price × qty.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Qty)))
}

type PlaceOrderInput struct {
	Items   []OrderItem
	Total   decimal.Decimal
	Address string
	Name    string
	Phone   string
}

// Order is a row from the orders table. Rows are never updated or deleted.
type Order struct {
	ID        int64           `json:"id"`
	Items     []OrderItem     `json:"items"`
	Total     decimal.Decimal `json:"total"`
	Address   string          `json:"address"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone"`
	CreatedAt time.Time       `json:"created_at"`
}
