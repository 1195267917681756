package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/dqthinh/shopping-cart/internal/adapter/storage"
	"github.com/dqthinh/shopping-cart/internal/core/domain"
	"github.com/dqthinh/shopping-cart/internal/core/service"
	"github.com/dqthinh/shopping-cart/internal/port"
	"github.com/dqthinh/shopping-cart/pkg/config"
	"github.com/dqthinh/shopping-cart/pkg/logger"
)

const maxTitleLength = 255

type app struct {
	db      *sql.DB
	backend port.CartBackend
	log     *slog.Logger
	dsn     string
}

func main() {
	// Money renders as a JSON number, not a quoted string.
	decimal.MarshalJSONWithoutQuotes = true

	cfg := config.Load()
	log := logger.New(os.Stderr, logger.Options{
		Service: "shopping-cart",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
	}).With("invocation_id", uuid.NewString())

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Error("failed to open mysql", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)

	a := &app{
		db:      db,
		backend: service.New(db, log),
		log:     log,
		dsn:     cfg.MySQLDSN,
	}

	if err := newRootCommand(a).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "cart",
		Short:         "Shopping cart backend",
		Long:          "Manages products, carts, and cart contents atop MySQL.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newSetupCommand(a),
		newCreateCartCommand(a),
		newAddProductCommand(a),
		newUpdateCartCommand(a),
		newShowCartCommand(a),
		newCloseCartCommand(a),
	)
	return root
}

// emit prints the JSON envelope for one invocation: the payload plus
// success/command on the happy path, or success=false and the error
// message otherwise. The original error is returned so the process
// exits non-zero.
func (a *app) emit(cmd *cobra.Command, payload map[string]any, err error) error {
	out := map[string]any{
		"command": cmd.Name(),
		"success": err == nil,
	}
	if err != nil {
		out["error"] = err.Error()
		a.log.Error("command failed",
			"command", cmd.Name(), "kind", domain.KindOf(err).String(), "error", err)
	} else {
		for k, v := range payload {
			out[k] = v
		}
	}

	b, merr := json.MarshalIndent(out, "", "  ")
	if merr != nil {
		return fmt.Errorf("marshal output: %w", merr)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}

func newSetupCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Creates the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := storage.Setup(cmd.Context(), a.db)
			return a.emit(cmd, map[string]any{"dbUrl": a.dsn}, err)
		},
	}
}

func newCreateCartCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create-cart",
		Short: "Creates a new, empty shopping cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			cart, err := a.backend.CreateCart(cmd.Context())
			return a.emit(cmd, map[string]any{"cart": cart}, err)
		},
	}
}

func newAddProductCommand(a *app) *cobra.Command {
	var (
		title     string
		price     string
		inventory int
	)
	cmd := &cobra.Command{
		Use:   "add-product",
		Short: "Adds a product to the list of available products",
		RunE: func(cmd *cobra.Command, args []string) error {
			product, err := a.addProduct(cmd.Context(), title, price, inventory)
			return a.emit(cmd, map[string]any{"product": product}, err)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Title of the product")
	cmd.Flags().StringVar(&price, "price", "", "Price of the product")
	cmd.Flags().IntVar(&inventory, "available-inventory", 0, "How many of the product is available")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("price")
	cmd.MarkFlagRequired("available-inventory")
	return cmd
}

func (a *app) addProduct(ctx context.Context, title, price string, inventory int) (domain.Product, error) {
	if len(title) > maxTitleLength {
		return domain.Product{}, domain.InvalidArgument("title should be at most %d characters", maxTitleLength)
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return domain.Product{}, domain.InvalidArgument("invalid price %q", price)
	}
	return a.backend.AddProduct(ctx, title, p, inventory)
}

func newUpdateCartCommand(a *app) *cobra.Command {
	var (
		cartID    int64
		productID int64
		amount    int
	)
	cmd := &cobra.Command{
		Use:   "update-cart",
		Short: "Adds or removes items in an existing cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.backend.UpdateCartItem(cmd.Context(), cartID, productID, amount)
			return a.emit(cmd, map[string]any{}, err)
		},
	}
	cmd.Flags().Int64Var(&cartID, "cart", 0, "Id of the shopping cart")
	cmd.Flags().Int64Var(&productID, "product", 0, "Id of product to add to cart")
	cmd.Flags().IntVar(&amount, "amount", 1, "How many to add to cart (0 to remove)")
	cmd.MarkFlagRequired("cart")
	cmd.MarkFlagRequired("product")
	return cmd
}

func newShowCartCommand(a *app) *cobra.Command {
	var cartIDs []int64
	cmd := &cobra.Command{
		Use:   "show-cart",
		Short: "Shows the state of one or many shopping carts",
		RunE: func(cmd *cobra.Command, args []string) error {
			carts, err := a.backend.ShowCarts(cmd.Context(), cartIDs)
			return a.emit(cmd, map[string]any{"carts": carts}, err)
		},
	}
	cmd.Flags().Int64SliceVar(&cartIDs, "cart", nil, "Shopping cart ids (repeatable)")
	cmd.MarkFlagRequired("cart")
	return cmd
}

func newCloseCartCommand(a *app) *cobra.Command {
	var (
		cartID int64
		abort  bool
	)
	cmd := &cobra.Command{
		Use:   "close-cart",
		Short: "Purchases or aborts a cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := a.backend.CloseCart(cmd.Context(), cartID, abort)
			return a.emit(cmd, map[string]any{"cart": summary}, err)
		},
	}
	cmd.Flags().Int64Var(&cartID, "cart", 0, "Id of the shopping cart")
	cmd.Flags().BoolVar(&abort, "abort", false, "Set the cart as aborted")
	cmd.MarkFlagRequired("cart")
	return cmd
}
