// Command pos-demo runs one sale against the in-memory hardware-store catalog
// and prints the receipt, the updated stock and the recorded sales.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/sale"
)

func main() {
	logger, err := logging.New("warn", true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(context.Background(), os.Stdout, logger); err != nil {
		logger.Error("demo failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, logger *zap.Logger) error {
	products := inventory.NewMemoryRepository()
	records := sale.NewMemoryRepository()
	if err := products.SeedDemoData(ctx); err != nil {
		return err
	}

	all, err := products.ListAll(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Products:")
	for _, p := range all {
		fmt.Fprintf(w, "- %s | %s | $%s | stock: %d | %s\n", p.Code, p.Name, p.Price.Decimal.StringFixed(2), p.Stock, p.Location)
	}

	sales := sale.NewService(inventory.NewService(products, logger), records, logger)

	c := cart.New()
	c.AddItem("H001", 1)
	c.AddItem("D001", 1)
	c.AddItem("T001", 3)

	fmt.Fprintln(w, "\nCart:")
	for _, it := range c.Items() {
		fmt.Fprintf(w, "- %s: %d unit(s)\n", it.ProductCode, it.Quantity)
	}

	receipt, err := sales.ConfirmSale(ctx, c)
	if err != nil {
		return fmt.Errorf("confirm sale: %w", err)
	}

	fmt.Fprintf(w, "\nReceipt %s\n", receipt.SaleID)
	for _, it := range receipt.Items {
		fmt.Fprintf(w, "%d x %s ($%s) = $%s\n", it.Quantity, it.Name, it.UnitPrice.StringFixed(2), it.Total.StringFixed(2))
	}
	fmt.Fprintf(w, "TOTAL: $%s\n", receipt.GrandTotal.StringFixed(2))

	all, err = products.ListAll(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "\nStock after sale:")
	for _, p := range all {
		fmt.Fprintf(w, "- %s | %s -> stock: %d\n", p.Code, p.Name, p.Stock)
	}

	recorded, err := records.ListSales(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "\nRecorded sales:")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	for _, rec := range recorded {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}
