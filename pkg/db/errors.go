package db

import (
	"errors"
	"strings"

	pkgerrors "github.com/asdwsxzc123/jiale-mrp/pkg/errors"
)

// SQLSTATE codes that signal the transaction lost a race and can be replayed.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
	sqlStateUniqueViolation      = "23505"
)

// counterConstraints guard rows that concurrent writers create on first use.
// Two transactions racing to insert the same counter row surface a unique
// violation on one of them; replaying it finds the row and increments it.
var counterConstraints = map[string]string{
	"document_sequences_pkey":         "document_sequences.",
	"trace_code_counters_pkey":        "trace_code_counters.",
	"ux_stock_balances_item_location": "stock_balances.",
}

// IsUniqueViolation reports whether err is a unique violation. A non-empty
// constraintName narrows the match to that constraint.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if pg := pkgerrors.Postgres(err); pg != nil {
		if pg.Code != sqlStateUniqueViolation {
			return false
		}
		if constraintName == "" || pg.Constraint == constraintName {
			return true
		}
		return strings.Contains(pg.Message, constraintName)
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") && !strings.Contains(msg, "duplicate key value") {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}

// isCounterCollision matches a unique violation on one of the counter tables,
// by constraint name on Postgres or by table name in SQLite's message.
func isCounterCollision(err error) bool {
	for constraint, sqliteTable := range counterConstraints {
		if IsUniqueViolation(err, constraint) || IsUniqueViolation(err, "UNIQUE constraint failed: "+sqliteTable) {
			return true
		}
	}
	return false
}

// IsConflict reports whether err, or any error it wraps, is a retryable
// transaction conflict.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		return true
	}
	switch sqlState(err) {
	case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable:
		return true
	}
	if isCounterCollision(err) {
		return true
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		msg := e.Error()
		if strings.Contains(msg, "database is locked") ||
			strings.Contains(msg, "database table is locked") ||
			strings.Contains(msg, "database schema is locked") {
			return true
		}
	}
	return false
}

// ClassifyError turns driver-level conflicts into CodeConflict errors so
// callers and the HTTP layer can treat them uniformly, even when a service
// already wrapped the driver error under another code.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if IsConflict(err) && !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "transaction conflict")
	}
	return err
}

func sqlState(err error) string {
	if pg := pkgerrors.Postgres(err); pg != nil {
		return pg.Code
	}
	return ""
}
