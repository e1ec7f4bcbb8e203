// Package db holds the embedded database schema.
package db

import _ "embed"

// Schema contains the DDL for the checkout and booking tables plus the
// read-side catalog and account tables used in local development.
//
//go:embed migrations/001_schema.sql
var Schema string
