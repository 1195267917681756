package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// CartState is the cart lifecycle state. Complete and Aborted are
// terminal: a cart never leaves them and its contents are frozen.
type CartState int

const (
	CartStateActive   CartState = 1
	CartStateComplete CartState = 2
	CartStateAborted  CartState = 3
)

func (s CartState) String() string {
	switch s {
	case CartStateActive:
		return "active"
	case CartStateComplete:
		return "complete"
	case CartStateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the state as its boundary string ("active" etc.);
// it is stored and passed around as the integer enum everywhere else.
func (s CartState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

type Cart struct {
	ID        int64     `json:"id"`
	State     CartState `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// CartContents is one (cart, product) row: the cart currently holds
// Amount units of the product. A row with amount 0 is deleted instead.
type CartContents struct {
	CartID    int64 `json:"cart_id"`
	ProductID int64 `json:"product_id"`
	Amount    int   `json:"amount"`
}

// CartLine is a contents row joined with its product, as rendered in
// cart summaries. cart_id is deliberately omitted.
type CartLine struct {
	ProductID int64           `json:"product_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Amount    int             `json:"amount"`
}

type CartSummary struct {
	ID         int64           `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	State      CartState       `json:"state"`
	Products   []CartLine      `json:"products"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// Summarize builds the summary for one cart. An empty cart yields an
// empty product list and a zero total.
func Summarize(cart Cart, lines []CartLine) CartSummary {
	if lines == nil {
		lines = []CartLine{}
	}
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Amount))))
	}
	return CartSummary{
		ID:         cart.ID,
		CreatedAt:  cart.CreatedAt,
		State:      cart.State,
		Products:   lines,
		TotalPrice: total,
	}
}
