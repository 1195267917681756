package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dqthinh/shopping-cart/internal/core/domain"
)

// InsertCart creates a new active cart and returns its id. created_at is
// assigned by the store.
func InsertCart(ctx context.Context, q Querier) (int64, error) {
	res, err := q.ExecContext(ctx, "INSERT INTO cart (state) VALUES (?)", domain.CartStateActive)
	if err != nil {
		return 0, mapMySQLError("insert cart", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert cart: %w", err)
	}
	return id, nil
}

// InsertProduct creates a product and returns its id. The non-negative
// inventory invariant is enforced by the store's CHECK constraint.
func InsertProduct(ctx context.Context, q Querier, title string, price decimal.Decimal, availableInventory int) (int64, error) {
	res, err := q.ExecContext(ctx,
		"INSERT INTO products (title, price, available_inventory) VALUES (?, ?, ?)",
		title, price, availableInventory)
	if err != nil {
		return 0, mapMySQLError("insert product", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert product: %w", err)
	}
	return id, nil
}

// UpdateCartState persists a cart state transition. The caller must hold
// the cart's row lock and have verified the transition is legal.
func UpdateCartState(ctx context.Context, q Querier, id int64, state domain.CartState) error {
	if _, err := q.ExecContext(ctx, "UPDATE cart SET state = ? WHERE id = ?", state, id); err != nil {
		return fmt.Errorf("update cart state: %w", err)
	}
	return nil
}

// CartsForUpdate locks and fetches all carts with the given ids in one
// query. Any requested id with no matching row fails the whole call, so
// callers never see partial results.
func CartsForUpdate(ctx context.Context, q Querier, ids []int64) (map[int64]domain.Cart, error) {
	carts := make(map[int64]domain.Cart, len(ids))
	if len(ids) == 0 {
		return carts, nil
	}

	placeholders, args := inClause(ids)
	query := fmt.Sprintf("SELECT id, state, created_at FROM cart WHERE id IN (%s) FOR UPDATE", placeholders)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select carts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		cart, err := Carts.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart: %w", err)
		}
		carts[cart.ID] = cart
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select carts: %w", err)
	}

	for _, id := range ids {
		if _, ok := carts[id]; !ok {
			return nil, domain.NotFound("no cart with id=%d", id)
		}
	}
	return carts, nil
}

// CartContentsByCart fetches contents joined with products for the given
// cart ids in one query, ordered by product title, grouped by cart id.
func CartContentsByCart(ctx context.Context, q Querier, ids []int64) (map[int64][]domain.CartLine, error) {
	lines := make(map[int64][]domain.CartLine, len(ids))
	if len(ids) == 0 {
		return lines, nil
	}

	placeholders, args := inClause(ids)
	query := fmt.Sprintf("SELECT cc.cart_id, cc.product_id, cc.amount, p.title, p.price FROM cart_contents cc JOIN products p ON p.id = cc.product_id WHERE cc.cart_id IN (%s) ORDER BY p.title", placeholders)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select cart contents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cartID int64
		var line domain.CartLine
		if err := rows.Scan(&cartID, &line.ProductID, &line.Amount, &line.Title, &line.Price); err != nil {
			return nil, fmt.Errorf("scan cart contents: %w", err)
		}
		lines[cartID] = append(lines[cartID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select cart contents: %w", err)
	}
	return lines, nil
}

// DecrementInventory realizes a checkout: one set-based update that
// subtracts each contents row's amount from its product's inventory.
// Driving any product below zero violates the CHECK constraint and
// fails the caller's whole transaction.
func DecrementInventory(ctx context.Context, q Querier, cartID int64) error {
	_, err := q.ExecContext(ctx,
		"UPDATE products p JOIN cart_contents cc ON cc.product_id = p.id SET p.available_inventory = p.available_inventory - cc.amount WHERE cc.cart_id = ?",
		cartID)
	if err != nil {
		return mapMySQLError("decrement inventory", err)
	}
	return nil
}

func inClause(ids []int64) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ", "), args
}
