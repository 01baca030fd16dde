// Package sqlerr classifies database driver errors.
//
// It maps PostgreSQL SQLSTATE codes reported by pgx into a small set of
// categories and converts them into client-facing HTTP errors, so a unique
// or check violation never surfaces as an opaque 500.
package sqlerr

import "fmt"

// Code is a category of database error.
type Code string

const (
	Other               Code = "other"
	NotNullViolation    Code = "not_null_violation"
	ForeignKeyViolation Code = "foreign_key_violation"
	UniqueViolation     Code = "unique_violation"
	CheckViolation      Code = "check_violation"
	ExclusionViolation  Code = "exclusion_violation"
	InvalidTextRep      Code = "invalid_text_representation"
	SerializationFail   Code = "serialization_failure"
	DeadlockDetected    Code = "deadlock_detected"
	ConnectionFailure   Code = "connection_failure"
	UndefinedTable      Code = "undefined_table"
)

// Severity mirrors the PostgreSQL message severity.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityFatal   Severity = "FATAL"
	SeverityPanic   Severity = "PANIC"
	SeverityWarning Severity = "WARNING"
	SeverityNotice  Severity = "NOTICE"
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityLog     Severity = "LOG"
)

// Error is a normalized database error.
type Error struct {
	Code           Code
	Severity       Severity
	DatabaseCode   string
	Message        string
	SchemaName     string
	TableName      string
	ColumnName     string
	DataTypeName   string
	ConstraintName string

	driverErr error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Severity, e.DatabaseCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.driverErr
}

// MapCode converts a SQLSTATE into a Code.
func MapCode(sqlstate string) Code {
	switch sqlstate {
	case "23502":
		return NotNullViolation
	case "23503":
		return ForeignKeyViolation
	case "23505":
		return UniqueViolation
	case "23514":
		return CheckViolation
	case "23P01":
		return ExclusionViolation
	case "22P02":
		return InvalidTextRep
	case "40001":
		return SerializationFail
	case "40P01":
		return DeadlockDetected
	case "42P01":
		return UndefinedTable
	}
	// Class 08 is "connection exception".
	if len(sqlstate) == 5 && sqlstate[:2] == "08" {
		return ConnectionFailure
	}
	return Other
}

// MapSeverity converts the severity string reported by the server.
func MapSeverity(severity string) Severity {
	switch Severity(severity) {
	case SeverityError, SeverityFatal, SeverityPanic, SeverityWarning,
		SeverityNotice, SeverityDebug, SeverityInfo, SeverityLog:
		return Severity(severity)
	}
	return SeverityError
}
