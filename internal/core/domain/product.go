package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID                 int64           `json:"id"`
	Title              string          `json:"title"`
	Price              decimal.Decimal `json:"price"`
	AvailableInventory int             `json:"available_inventory"`
}
