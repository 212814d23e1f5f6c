// Package maintenance implements the worker that keeps the items table
// oscillating around a small size. Every cycle reads the row count and a
// store-side random value, then inserts or evicts at most one row.
package maintenance
