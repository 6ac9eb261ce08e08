package models

import "github.com/shopspring/decimal"

type MenuItem struct {
	ID    int64           `db:"id" json:"id"`
	Name  string          `db:"name" json:"name"`
	Price decimal.Decimal `db:"price" json:"price"`
	Image *string         `db:"image" json:"image,omitempty"` // nil when no upload was ever stored
}

// UpsertMenuItemInput is the admin form after parsing. A nil ID inserts a new row;
// a nil Image leaves the stored image reference untouched on update.
type UpsertMenuItemInput struct {
	ID    *int64
	Name  string
	Price decimal.Decimal
	Image *string
}
