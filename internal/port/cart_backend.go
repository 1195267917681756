package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dqthinh/shopping-cart/internal/core/domain"
)

// CartBackend is the contract the command surface consumes: one entry
// point per business operation, each an atomic unit of work against the
// store. Failures carry a domain.Kind and a message callers may match
// on verbatim.
type CartBackend interface {
	// CreateCart creates a new, empty cart in the active state.
	CreateCart(ctx context.Context) (domain.Cart, error)

	// AddProduct adds a product to the catalog.
	AddProduct(ctx context.Context, title string, price decimal.Decimal, availableInventory int) (domain.Product, error)

	// UpdateCartItem sets the amount of a product in an active cart,
	// replacing any previous amount. Amount 0 removes the item.
	UpdateCartItem(ctx context.Context, cartID, productID int64, amount int) error

	// ShowCarts summarizes carts in the requested order, failing fast
	// on the first unknown id.
	ShowCarts(ctx context.Context, cartIDs []int64) ([]domain.CartSummary, error)

	// CloseCart completes (checkout) or aborts an active cart and
	// returns its post-close summary.
	CloseCart(ctx context.Context, cartID int64, abort bool) (domain.CartSummary, error)
}
