package cli

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/xenking/smart-trolley/internal/domain/order"
	"github.com/xenking/smart-trolley/internal/storage/postgres"
)

// NewReceiptCommand creates the receipt command.
func NewReceiptCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		userID    string
		storeName string
	)

	cmd := &cobra.Command{
		Use:   "receipt ORDER_ID",
		Short: "Print the text receipt of an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			return withPool(cmd.Context(), rootOpts, func(ctx context.Context, pool *pgxpool.Pool) error {
				o, err := order.NewReceipts(postgres.NewOrderRepository(pool)).Get(ctx, userID, args[0])
				if err != nil {
					return err
				}
				return order.WriteText(cmd.OutOrStdout(), storeName, o)
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "owner of the order")
	cmd.Flags().StringVar(&storeName, "store-name", "Smart Trolley", "store name printed on the receipt")

	return cmd
}
