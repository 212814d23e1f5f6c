//go:build integration

// Package testdb provides utilities for database integration tests: locating
// or starting a PostgreSQL instance, building a migrated pool and running
// test bodies inside transactions that are always rolled back.
package testdb
