// Package pg manages the PostgreSQL connection pool for the billing service.
//
// It connects through github.com/jackc/pgx/v5 with retry and backoff so the
// service survives database restarts during deploys, applies schema
// migrations with github.com/pressly/goose/v3, and exposes small helpers for
// classifying common driver errors (not found, duplicate key).
package pg
