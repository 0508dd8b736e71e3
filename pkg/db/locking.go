package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ForUpdate applies a pessimistic row lock to the query on engines that
// support it. sqlite (the test engine) rejects FOR UPDATE and already
// serializes writers, so the clause is skipped there; every caller pairs the
// lock with a guarded UPDATE whose WHERE clause re-asserts the precondition,
// which is the correctness backstop on both engines.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// AdvisoryTxLock takes a transaction-scoped advisory lock on key, serializing
// every transaction that claims the same key until commit or rollback. Used
// where the contended resource is a count rather than a row, so no row lock
// can cover it. sqlite's single-writer model already serializes transactions,
// so the call is a no-op there.
func AdvisoryTxLock(tx *gorm.DB, key int64) error {
	if tx.Dialector.Name() == "sqlite" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(?)", key).Error
}
