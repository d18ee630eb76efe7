package cli

import (
	"context"
	"os"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xenking/smart-trolley/db"
	"github.com/xenking/smart-trolley/internal/catalog"
	"github.com/xenking/smart-trolley/internal/domain/identity"
	"github.com/xenking/smart-trolley/internal/storage/postgres"
)

// SeedOptions holds seed flags.
type SeedOptions struct {
	ProductsFile string
	APIKey       string
	User         string
	AdminKey     string
	AdminUser    string
	Pepper       string
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load catalog fixtures and API keys",
		Long: `Upsert the products of a YAML fixture (the built-in catalog by default)
and register the given shopper and admin API keys.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.APIKey == "" {
				opts.APIKey = os.Getenv("TROLLEY_SEED_API_KEY")
			}
			if opts.AdminKey == "" {
				opts.AdminKey = os.Getenv("TROLLEY_SEED_ADMIN_KEY")
			}
			if opts.Pepper == "" {
				opts.Pepper = os.Getenv("TROLLEY_API_KEY_PEPPER")
			}
			return runSeed(cmd.Context(), rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ProductsFile, "products", "", "products YAML file (default: built-in catalog)")
	cmd.Flags().StringVar(&opts.APIKey, "api-key", "", "shopper API key to register (or TROLLEY_SEED_API_KEY)")
	cmd.Flags().StringVar(&opts.User, "user", "demo-shopper", "user id of the shopper key")
	cmd.Flags().StringVar(&opts.AdminKey, "admin-key", "", "admin API key to register (or TROLLEY_SEED_ADMIN_KEY)")
	cmd.Flags().StringVar(&opts.AdminUser, "admin-user", "admin", "user id of the admin key")
	cmd.Flags().StringVar(&opts.Pepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or TROLLEY_API_KEY_PEPPER)")

	return cmd
}

func runSeed(ctx context.Context, rootOpts *RootOptions, opts *SeedOptions) error {
	data := db.SeedProducts
	if opts.ProductsFile != "" {
		b, err := os.ReadFile(opts.ProductsFile)
		if err != nil {
			return errors.Wrap(err, "read products file")
		}
		data = b
	}
	products, err := catalog.ParseSeed(data)
	if err != nil {
		return err
	}
	keys := seedKeys(opts)

	return withPool(ctx, rootOpts, func(ctx context.Context, pool *pgxpool.Pool) error {
		lg := zctx.From(ctx)

		if err := postgres.NewProductRepository(pool).Upsert(ctx, products...); err != nil {
			return errors.Wrap(err, "upsert products")
		}
		lg.Info("Products seeded", zap.Int("count", len(products)))

		apikeys := postgres.NewAPIKeyRepository(pool)
		for _, k := range keys {
			if err := apikeys.Upsert(ctx, k); err != nil {
				return errors.Wrap(err, "upsert api key")
			}
			lg.Info("API key registered",
				zap.String("name", k.Name),
				zap.String("user_id", k.UserID),
				zap.Strings("scopes", k.Scopes),
			)
		}
		return nil
	})
}

// seedKeys builds the keys to register. Only their HMACs are stored.
func seedKeys(opts *SeedOptions) []identity.Key {
	pepper := []byte(opts.Pepper)

	var keys []identity.Key
	if opts.APIKey != "" {
		keys = append(keys, identity.Key{
			ID:      uuid.NewString(),
			KeyHash: identity.HashKey(pepper, opts.APIKey),
			Name:    "seed-shopper",
			UserID:  opts.User,
		})
	}
	if opts.AdminKey != "" {
		keys = append(keys, identity.Key{
			ID:      uuid.NewString(),
			KeyHash: identity.HashKey(pepper, opts.AdminKey),
			Name:    "seed-admin",
			UserID:  opts.AdminUser,
			Scopes:  []string{identity.ScopeAdmin},
		})
	}
	return keys
}
