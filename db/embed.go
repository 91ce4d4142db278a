// Package db embeds the storefront's Postgres schema.
package db

import _ "embed"

// Schema creates the session state and checkout ledger tables. It is
// idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string
