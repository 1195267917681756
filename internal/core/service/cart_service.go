package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/dqthinh/shopping-cart/internal/adapter/storage"
	"github.com/dqthinh/shopping-cart/internal/core/domain"
)

// minPrice is one cent, the smallest price a product may carry.
var minPrice = decimal.New(1, -2)

// CartService is the transaction engine. Each operation runs as one
// atomic transaction: begin, compose row-access primitives, commit.
// Any failure rolls back every write the operation made.
//
// Operations that lock both a product and a cart always acquire the
// product lock first. Keep that order when adding operations, or
// concurrent callers can deadlock.
type CartService struct {
	db  *sql.DB
	log *slog.Logger
}

func New(db *sql.DB, log *slog.Logger) *CartService {
	return &CartService{db: db, log: log}
}

// withTx runs fn inside a transaction that is committed when fn
// succeeds and rolled back otherwise, including on panic.
func (s *CartService) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// CreateCart inserts a new empty cart in the active state.
func (s *CartService) CreateCart(ctx context.Context) (domain.Cart, error) {
	var cart domain.Cart
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := storage.InsertCart(ctx, tx)
		if err != nil {
			return err
		}
		cart, err = storage.FetchByID(ctx, tx, storage.Carts, id, false)
		return err
	})
	if err != nil {
		return domain.Cart{}, err
	}

	s.log.InfoContext(ctx, "cart created", "cart_id", cart.ID)
	return cart, nil
}

// AddProduct adds a product to the catalog.
func (s *CartService) AddProduct(ctx context.Context, title string, price decimal.Decimal, availableInventory int) (domain.Product, error) {
	if price.LessThan(minPrice) {
		return domain.Product{}, domain.InvalidArgument("price must be at least 1 cent")
	}
	if availableInventory < 0 {
		return domain.Product{}, domain.InvalidArgument("available inventory must not be negative")
	}

	var product domain.Product
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := storage.InsertProduct(ctx, tx, title, price, availableInventory)
		if err != nil {
			return err
		}
		product, err = storage.FetchByID(ctx, tx, storage.Products, id, false)
		return err
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.log.InfoContext(ctx, "product added",
		"product_id", product.ID, "title", product.Title, "available_inventory", product.AvailableInventory)
	return product, nil
}

// UpdateCartItem adds, changes, or removes one product in a cart. The
// given amount replaces any previously stored amount; amount 0 removes
// the row and is a no-op when the product is not in the cart.
//
// Availability is checked against total catalog inventory, not against
// amounts reserved by other active carts. Reservations are only
// realized at checkout.
func (s *CartService) UpdateCartItem(ctx context.Context, cartID, productID int64, amount int) error {
	if amount < 0 {
		return domain.InvalidArgument("amount must not be negative")
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		// Product before cart, the global lock order.
		product, err := storage.FetchByID(ctx, tx, storage.Products, productID, true)
		if err != nil {
			return err
		}
		if amount > product.AvailableInventory {
			return domain.InsufficientInventory("cannot add %d of product to cart, only %d available.",
				amount, product.AvailableInventory)
		}

		cart, err := storage.FetchByID(ctx, tx, storage.Carts, cartID, true)
		if err != nil {
			return err
		}
		if cart.State != domain.CartStateActive {
			return domain.InvalidState("cannot update a not active cart.")
		}

		key := []storage.Field{
			{Column: "cart_id", Value: cartID},
			{Column: "product_id", Value: productID},
		}
		if amount == 0 {
			_, _, err := storage.DeleteRow(ctx, tx, storage.Contents, key)
			return err
		}
		return storage.Upsert(ctx, tx, storage.Contents, key,
			[]storage.Field{{Column: "amount", Value: amount}})
	})
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "cart item updated",
		"cart_id", cartID, "product_id", productID, "amount", amount)
	return nil
}

// ShowCarts summarizes the carts with the given ids, in the order
// requested. Ids may repeat. A single missing id fails the whole call.
//
// The carts are locked so a concurrent CloseCart cannot complete
// mid-read and hand back an inconsistent snapshot.
func (s *CartService) ShowCarts(ctx context.Context, cartIDs []int64) ([]domain.CartSummary, error) {
	var summaries []domain.CartSummary
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		summaries, err = showCarts(ctx, tx, cartIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// CloseCart finishes a cart: completes it (checkout) or aborts it.
// Checkout decrements each contained product's inventory by the cart's
// stored amount in one set-based update; if that would drive any
// inventory negative the store rejects it and the state change rolls
// back with it. Aborting never touches inventory.
func (s *CartService) CloseCart(ctx context.Context, cartID int64, abort bool) (domain.CartSummary, error) {
	var summary domain.CartSummary
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		cart, err := storage.FetchByID(ctx, tx, storage.Carts, cartID, true)
		if err != nil {
			return err
		}
		if cart.State != domain.CartStateActive {
			return domain.InvalidState("cannot close an inactive cart.")
		}

		state := domain.CartStateComplete
		if abort {
			state = domain.CartStateAborted
		}
		if err := storage.UpdateCartState(ctx, tx, cartID, state); err != nil {
			return err
		}

		if !abort {
			if err := storage.DecrementInventory(ctx, tx, cartID); err != nil {
				return err
			}
		}

		summaries, err := showCarts(ctx, tx, []int64{cartID})
		if err != nil {
			return err
		}
		summary = summaries[0]
		return nil
	})
	if err != nil {
		return domain.CartSummary{}, err
	}

	s.log.InfoContext(ctx, "cart closed", "cart_id", cartID, "state", summary.State.String())
	return summary, nil
}

func showCarts(ctx context.Context, q storage.Querier, cartIDs []int64) ([]domain.CartSummary, error) {
	carts, err := storage.CartsForUpdate(ctx, q, cartIDs)
	if err != nil {
		return nil, err
	}
	contents, err := storage.CartContentsByCart(ctx, q, cartIDs)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.CartSummary, 0, len(cartIDs))
	for _, id := range cartIDs {
		summaries = append(summaries, domain.Summarize(carts[id], contents[id]))
	}
	return summaries, nil
}
