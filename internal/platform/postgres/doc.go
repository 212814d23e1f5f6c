// Package postgres provides the PostgreSQL implementation of the storage
// interfaces defined in the internal/store package. It also owns connection
// provisioning and the embedded schema migrations.
package postgres
