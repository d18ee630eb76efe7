package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/xenking/smart-trolley/internal/catalog"
	"github.com/xenking/smart-trolley/internal/storage/postgres"
)

// ImportOptions holds import flags.
type ImportOptions struct {
	BatchSize     int
	BloomCapacity uint
	BloomFPR      float64
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{}

	cmd := &cobra.Command{
		Use:   "import FEED...",
		Short: "Import product feeds (CSV, optionally gzipped)",
		Long: `Stream CSV product feeds into the catalog.

Each feed needs a header row with at least barcode, name and price columns.
Barcodes that appear in more than one feed are reported and skipped.`,
		Args: cobra.RangeArgs(1, catalog.MaxFeeds),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), rootOpts, func(ctx context.Context, pool *pgxpool.Pool) error {
				im := catalog.NewImporter(postgres.NewProductRepository(pool),
					catalog.WithBatchSize(opts.BatchSize),
					catalog.WithBloomEstimates(opts.BloomCapacity, opts.BloomFPR),
				)
				report, err := im.Import(ctx, args)
				if report != nil {
					printReport(cmd.OutOrStdout(), report)
				}
				return err
			})
		},
	}

	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", catalog.DefaultBatchSize, "products per upsert")
	cmd.Flags().UintVar(&opts.BloomCapacity, "bloom-capacity", catalog.DefaultBloomCapacity, "expected barcodes per feed")
	cmd.Flags().Float64Var(&opts.BloomFPR, "bloom-fpr", catalog.DefaultBloomFPR, "bloom filter false positive rate")

	return cmd
}

func printReport(w io.Writer, r *catalog.Report) {
	fmt.Fprintf(w, "feeds:      %d\n", r.Feeds)
	fmt.Fprintf(w, "rows:       %d\n", r.Rows)
	fmt.Fprintf(w, "imported:   %d\n", r.Imported)
	fmt.Fprintf(w, "duplicates: %d\n", len(r.Duplicates))
	for _, barcode := range r.Duplicates {
		fmt.Fprintf(w, "  %s\n", barcode)
	}
	fmt.Fprintf(w, "invalid:    %d\n", len(r.Invalid))
	for _, e := range r.Invalid {
		fmt.Fprintf(w, "  %s\n", e)
	}
}
