// Package postgres persists marketplace transactions in PostgreSQL.
//
// It provides connection management with primary/replica resolution and the
// transaction repository: optimistic transition appends, full-or-nothing
// payment saves, and cascading deletes.
package postgres
