// Package db embeds the database schema and the catalog fixtures.
package db

import _ "embed"

// Schema holds the DDL for the catalog, cart, order and API key tables.
// Every statement is idempotent so it can run on each start.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedProducts is the default catalog fixture used by `trolleyctl seed`.
//
//go:embed seed/products.yaml
var SeedProducts []byte
