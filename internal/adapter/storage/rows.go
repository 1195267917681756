package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/dqthinh/shopping-cart/internal/core/domain"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Every primitive in this package runs against a caller-supplied Querier
// and never commits or rolls back: transaction boundaries belong to the
// caller.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RowScanner matches both *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...any) error
}

// Table describes one relation together with the typed scan for its rows.
type Table[T any] struct {
	Name    string
	Columns []string
	Scan    func(RowScanner) (T, error)
}

// Field is one named column value, used for keys and update sets.
type Field struct {
	Column string
	Value  any
}

var Products = Table[domain.Product]{
	Name:    "products",
	Columns: []string{"id", "price", "title", "available_inventory"},
	Scan: func(row RowScanner) (domain.Product, error) {
		var p domain.Product
		err := row.Scan(&p.ID, &p.Price, &p.Title, &p.AvailableInventory)
		return p, err
	},
}

var Carts = Table[domain.Cart]{
	Name:    "cart",
	Columns: []string{"id", "state", "created_at"},
	Scan: func(row RowScanner) (domain.Cart, error) {
		var c domain.Cart
		err := row.Scan(&c.ID, &c.State, &c.CreatedAt)
		return c, err
	},
}

var Contents = Table[domain.CartContents]{
	Name:    "cart_contents",
	Columns: []string{"cart_id", "product_id", "amount"},
	Scan: func(row RowScanner) (domain.CartContents, error) {
		var cc domain.CartContents
		err := row.Scan(&cc.CartID, &cc.ProductID, &cc.Amount)
		return cc, err
	},
}

// FetchByID returns the single row with the given id. With lockForUpdate
// the row is locked against concurrent readers and writers until the
// enclosing transaction commits or rolls back.
func FetchByID[T any](ctx context.Context, q Querier, t Table[T], id int64, lockForUpdate bool) (T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", strings.Join(t.Columns, ", "), t.Name)
	if lockForUpdate {
		query += " FOR UPDATE"
	}

	row, err := t.Scan(q.QueryRowContext(ctx, query, id))
	if err != nil {
		var zero T
		if errors.Is(err, sql.ErrNoRows) {
			return zero, domain.NotFound("no row in `%s` with id=%d", t.Name, id)
		}
		return zero, fmt.Errorf("fetch %s: %w", t.Name, err)
	}
	return row, nil
}

// DeleteRow removes the at-most-one row matching key and returns it.
// A missing row is not an error: ok is false and the zero value is
// returned. MySQL has no DELETE ... RETURNING, so the row is read first
// inside the caller's transaction.
func DeleteRow[T any](ctx context.Context, q Querier, t Table[T], key []Field) (T, bool, error) {
	var zero T
	where, args := whereClause(key)

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(t.Columns, ", "), t.Name, where)
	row, err := t.Scan(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("select %s for delete: %w", t.Name, err)
	}

	if _, err := q.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", t.Name, where), args...); err != nil {
		return zero, false, fmt.Errorf("delete %s: %w", t.Name, err)
	}
	return row, true, nil
}

// Upsert inserts a row with key+update fields, or if a row with that key
// already exists, overwrites exactly the update fields. This is a full
// replace of those fields, never an increment.
func Upsert[T any](ctx context.Context, q Querier, t Table[T], key, update []Field) error {
	fields := make([]Field, 0, len(key)+len(update))
	fields = append(fields, key...)
	fields = append(fields, update...)

	columns := make([]string, len(fields))
	placeholders := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, f := range fields {
		columns[i] = f.Column
		placeholders[i] = "?"
		args[i] = f.Value
	}

	assigns := make([]string, len(update))
	for i, f := range update {
		assigns[i] = fmt.Sprintf("%s = VALUES(%s)", f.Column, f.Column)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE %s",
		t.Name, strings.Join(columns, ", "), strings.Join(placeholders, ", "), strings.Join(assigns, ", "))
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return mapMySQLError("upsert "+t.Name, err)
	}
	return nil
}

func whereClause(key []Field) (string, []any) {
	parts := make([]string, len(key))
	args := make([]any, len(key))
	for i, f := range key {
		parts[i] = f.Column + " = ?"
		args[i] = f.Value
	}
	return strings.Join(parts, " AND "), args
}

// MySQL server error numbers this package cares about.
const (
	mysqlErrCheckViolated   = 3819 // ER_CHECK_CONSTRAINT_VIOLATED
	mysqlErrNoReferencedRow = 1452 // ER_NO_REFERENCED_ROW_2
)

// mapMySQLError translates store-enforced integrity failures into the
// business error taxonomy; anything else is wrapped as-is.
func mapMySQLError(op string, err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlErrCheckViolated:
			return domain.ConstraintViolation("%s: %s", op, me.Message)
		case mysqlErrNoReferencedRow:
			return domain.NotFound("%s: referenced row does not exist", op)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
