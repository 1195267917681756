package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema for the three relations. Integrity rules live here, not in
// code: non-negative inventory and amount are CHECK constraints
// (enforced by MySQL 8.0.16+), the (cart_id, product_id) pairing is
// unique, and contents rows reference their cart and product.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id BIGINT NOT NULL AUTO_INCREMENT,
		price DECIMAL(8,2) NOT NULL,
		title VARCHAR(255) NOT NULL,
		available_inventory INT NOT NULL,
		PRIMARY KEY (id),
		CONSTRAINT c_products_inventory CHECK (available_inventory >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS cart (
		id BIGINT NOT NULL AUTO_INCREMENT,
		state TINYINT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id)
	)`,
	`CREATE TABLE IF NOT EXISTS cart_contents (
		cart_id BIGINT NOT NULL,
		product_id BIGINT NOT NULL,
		amount INT NOT NULL,
		CONSTRAINT c_cart_contents_uniq UNIQUE (cart_id, product_id),
		CONSTRAINT c_cart_contents_amount CHECK (amount >= 0),
		CONSTRAINT fk_cart_contents_cart FOREIGN KEY (cart_id) REFERENCES cart (id),
		CONSTRAINT fk_cart_contents_product FOREIGN KEY (product_id) REFERENCES products (id)
	)`,
}

// Setup creates the schema if it does not exist yet.
func Setup(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
