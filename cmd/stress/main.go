package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/dqthinh/shopping-cart/internal/adapter/storage"
	"github.com/dqthinh/shopping-cart/internal/core/domain"
	"github.com/dqthinh/shopping-cart/internal/core/service"
	"github.com/dqthinh/shopping-cart/pkg/config"
	"github.com/dqthinh/shopping-cart/pkg/logger"
)

// Hammers one product with racing checkouts to demonstrate that
// inventory can never be oversold: with more full carts than stock,
// exactly initialStock closes may complete.
const (
	initialStock = 20
	totalCarts   = 50
)

func main() {
	ctx := context.Background()
	cfg := config.Load()
	lg := logger.New(os.Stderr, logger.Options{
		Service: "shopping-cart-stress",
		Env:     cfg.AppEnv,
		Level:   "warn",
	})

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(totalCarts)
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}

	if err := storage.Setup(ctx, db); err != nil {
		log.Fatalf("failed to create schema: %v", err)
	}

	svc := service.New(db, lg)

	product, err := svc.AddProduct(ctx, "stress-item", decimal.NewFromFloat(9.99), initialStock)
	if err != nil {
		log.Fatalf("failed to seed product: %v", err)
	}

	// One cart per shopper, each holding a single unit.
	cartIDs := make([]int64, totalCarts)
	for i := range cartIDs {
		cart, err := svc.CreateCart(ctx)
		if err != nil {
			log.Fatalf("failed to create cart: %v", err)
		}
		if err := svc.UpdateCartItem(ctx, cart.ID, product.ID, 1); err != nil {
			log.Fatalf("failed to fill cart %d: %v", cart.ID, err)
		}
		cartIDs[i] = cart.ID
	}

	var completed, rejected atomic.Int32
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for _, cartID := range cartIDs {
		cartID := cartID
		g.Go(func() error {
			_, err := svc.CloseCart(gctx, cartID, false)
			switch {
			case err == nil:
				completed.Add(1)
			case domain.KindOf(err) == domain.KindConstraintViolation:
				rejected.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("unexpected close failure: %v", err)
	}
	elapsed := time.Since(start)

	var finalStock int
	if err := db.QueryRowContext(ctx,
		`SELECT available_inventory FROM products WHERE id = ?`, product.ID).Scan(&finalStock); err != nil {
		log.Fatalf("failed to read final stock: %v", err)
	}

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Carts:      %d\n", totalCarts)
	fmt.Printf("Completed:        %d\n", completed.Load())
	fmt.Printf("Rejected:         %d\n", rejected.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if completed.Load() == initialStock && rejected.Load() == totalCarts-initialStock {
		fmt.Printf("PASS: Exactly %d checkouts completed, %d rejected\n", initialStock, totalCarts-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d completed/%d rejected, got %d/%d\n",
			initialStock, totalCarts-initialStock, completed.Load(), rejected.Load())
	}

	fmt.Printf("Final Stock: %d\n", finalStock)
	if finalStock == 0 {
		fmt.Println("PASS: Stock depleted to 0, never negative")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", finalStock)
	}
}
