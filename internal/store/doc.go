// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the maintenance logic, so the worker's policy can be exercised against
// an in-memory fake as easily as against PostgreSQL.
package store
