package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/tabula/pkg/catalog"
	"mercator-hq/tabula/pkg/cli"
)

var seedCmd = &cobra.Command{
	Use:   "seed <fixtures.json>",
	Short: "Load fixture records into the catalog",
	Long: `Load products and orders from a JSON file into the configured catalog.

Existing records with the same id are replaced. The file has the form:

  {
    "products": [{"id": 1, "name": "Shirt", "slug": "shirt", ...}],
    "orders":   [{"id": 7, "number": "1007", "total": {"amount": 150, "currency": "ZAR"}, ...}]
  }

Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

// fixtures is the seed file format.
type fixtures struct {
	Products []*catalog.Product `json:"products"`
	Orders   []*catalog.Order   `json:"orders"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	data, err := readFixtures(args[0], cmd.InOrStdin())
	if err != nil {
		return cli.NewCommandError("seed", err)
	}
	var fx fixtures
	if err := json.Unmarshal(data, &fx); err != nil {
		return cli.NewCommandError("seed", fmt.Errorf("invalid fixtures: %w", err))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openCatalog(&cfg.Catalog)
	if err != nil {
		return cli.NewCommandError("seed", err)
	}
	defer store.Close()

	n, err := seedStore(cmd.Context(), store, &fx)
	if err != nil {
		return cli.NewCommandError("seed", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Loaded %d products and %d orders into %s\n", n.products, n.orders, cfg.Catalog.Path)
	return nil
}

func readFixtures(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

type seedCounts struct {
	products int
	orders   int
}

// seedStore writes every fixture record to store, stopping at the first
// failure.
func seedStore(ctx context.Context, store catalog.Store, fx *fixtures) (seedCounts, error) {
	var n seedCounts
	for _, p := range fx.Products {
		if p == nil || p.ID <= 0 {
			return n, fmt.Errorf("product at index %d has no positive id", n.products)
		}
		if err := store.PutProduct(ctx, p); err != nil {
			return n, fmt.Errorf("product %d: %w", p.ID, err)
		}
		n.products++
	}
	for _, o := range fx.Orders {
		if o == nil || o.ID <= 0 {
			return n, fmt.Errorf("order at index %d has no positive id", n.orders)
		}
		if err := store.PutOrder(ctx, o); err != nil {
			return n, fmt.Errorf("order %d: %w", o.ID, err)
		}
		n.orders++
	}
	return n, nil
}
