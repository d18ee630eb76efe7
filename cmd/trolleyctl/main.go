// Command trolleyctl manages the Smart Trolley database: schema, catalog
// fixtures, product feeds, API keys and receipts.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/xenking/smart-trolley/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.Execute(ctx)
	cancel()
	os.Exit(code)
}
