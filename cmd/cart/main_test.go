package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dqthinh/shopping-cart/internal/core/domain"
)

type fakeBackend struct {
	updateErr error
}

func (f *fakeBackend) CreateCart(ctx context.Context) (domain.Cart, error) {
	return domain.Cart{ID: 1, State: domain.CartStateActive, CreatedAt: time.Unix(0, 0).UTC()}, nil
}

func (f *fakeBackend) AddProduct(ctx context.Context, title string, price decimal.Decimal, availableInventory int) (domain.Product, error) {
	return domain.Product{ID: 1, Title: title, Price: price, AvailableInventory: availableInventory}, nil
}

func (f *fakeBackend) UpdateCartItem(ctx context.Context, cartID, productID int64, amount int) error {
	return f.updateErr
}

func (f *fakeBackend) ShowCarts(ctx context.Context, cartIDs []int64) ([]domain.CartSummary, error) {
	return []domain.CartSummary{}, nil
}

func (f *fakeBackend) CloseCart(ctx context.Context, cartID int64, abort bool) (domain.CartSummary, error) {
	return domain.CartSummary{ID: cartID, State: domain.CartStateComplete}, nil
}

func runCommand(t *testing.T, backend *fakeBackend, args ...string) (map[string]any, error) {
	t.Helper()

	a := &app{
		backend: backend,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		dsn:     "test-dsn",
	}
	root := newRootCommand(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)

	execErr := root.Execute()

	var envelope map[string]any
	if err := json.Unmarshal(out.Bytes(), &envelope); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	return envelope, execErr
}

func TestEnvelope_Success(t *testing.T) {
	envelope, err := runCommand(t, &fakeBackend{}, "create-cart")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if envelope["success"] != true {
		t.Errorf("expected success=true, got %v", envelope["success"])
	}
	if envelope["command"] != "create-cart" {
		t.Errorf("expected command=create-cart, got %v", envelope["command"])
	}
	cart, ok := envelope["cart"].(map[string]any)
	if !ok {
		t.Fatalf("missing cart payload: %v", envelope)
	}
	if cart["state"] != "active" {
		t.Errorf("expected state rendered as %q, got %v", "active", cart["state"])
	}
}

func TestEnvelope_Failure(t *testing.T) {
	backend := &fakeBackend{updateErr: domain.InvalidState("cannot update a not active cart.")}
	envelope, err := runCommand(t, backend, "update-cart", "--cart=1", "--product=2", "--amount=3")
	if err == nil {
		t.Fatal("expected Execute to fail")
	}
	if envelope["success"] != false {
		t.Errorf("expected success=false, got %v", envelope["success"])
	}
	if envelope["error"] != "cannot update a not active cart." {
		t.Errorf("unexpected error message: %v", envelope["error"])
	}
}

func TestUpdateCartAmountDefaultsToOne(t *testing.T) {
	envelope, err := runCommand(t, &fakeBackend{}, "update-cart", "--cart=1", "--product=2")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if envelope["success"] != true {
		t.Errorf("expected success=true, got %v", envelope["success"])
	}
}

func TestAddProductRejectsOverlongTitle(t *testing.T) {
	long := make([]byte, maxTitleLength+1)
	for i := range long {
		long[i] = 'a'
	}
	envelope, err := runCommand(t, &fakeBackend{},
		"add-product", "--title="+string(long), "--price=1.00", "--available-inventory=1")
	if err == nil {
		t.Fatal("expected Execute to fail")
	}
	if envelope["success"] != false {
		t.Errorf("expected success=false, got %v", envelope["success"])
	}
}
