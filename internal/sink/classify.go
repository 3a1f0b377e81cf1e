package sink

import (
	"errors"
	"regexp"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kind is the error taxonomy the consumer's retry loop switches on.
type Kind int

const (
	KindUnknown Kind = iota
	KindMissingTable
	KindMissingColumn
	KindWrongType
	KindPermissionDenied
	KindTransient
	KindFatal
)

// Retryable reports whether k corresponds to a one-shot DDL fix that
// converts the next attempt into a non-retriable outcome. Transport
// failures and every other database error are not retried here: the next
// *batch* gets a fresh connection and a fresh attempt, but this write is
// logged and dropped, per spec's error-handling table.
func (k Kind) Retryable() bool {
	switch k {
	case KindMissingTable, KindMissingColumn:
		return true
	default:
		return false
	}
}

// Classified is the result of running the Error Classifier on a write
// failure: what kind of problem it was, and — for the schema-shaped
// errors — which table or column it names, extracted from the database's
// error message the same way the original implementation did, since
// Postgres does not reliably populate the structured TableName/ColumnName
// fields for "does not exist" errors (only for constraint violations).
type Classified struct {
	Kind   Kind
	Table  string
	Column string
}

var (
	missingColumnRe = regexp.MustCompile(`column "(?P<column>.+)" of relation "(?P<table>.+)" does not exist`)
	missingTableRe  = regexp.MustCompile(`relation "(?P<table>.+)" does not exist`)
)

// Classify inspects a write error and decides how the consumer should
// react: retry after a DDL fix (missing table/column), or drop the batch
// for good and rely on the next batch's fresh connection (everything
// else, including transport failures and other database errors).
func Classify(err error) Classified {
	if err == nil {
		return Classified{Kind: KindUnknown}
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		// No SQLSTATE to inspect: a network/transport failure. Not
		// retryable here — there is no DDL fix for it, and retrying in a
		// loop just pegs a goroutine against a down database. The next
		// batch gets a fresh connection from the pool and a fresh attempt.
		return Classified{Kind: KindTransient}
	}

	switch pgErr.Code {
	case pgerrcode.UndefinedColumn:
		if m := missingColumnRe.FindStringSubmatch(pgErr.Message); m != nil {
			return Classified{Kind: KindMissingColumn, Table: m[2], Column: m[1]}
		}
		return Classified{Kind: KindMissingColumn}

	case pgerrcode.UndefinedTable:
		if m := missingTableRe.FindStringSubmatch(pgErr.Message); m != nil {
			return Classified{Kind: KindMissingTable, Table: m[1]}
		}
		return Classified{Kind: KindMissingTable}

	case pgerrcode.InsufficientPrivilege:
		return Classified{Kind: KindPermissionDenied}

	case pgerrcode.DatatypeMismatch, pgerrcode.InvalidTextRepresentation, pgerrcode.NumericValueOutOfRange:
		return Classified{Kind: KindWrongType}

	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected,
		pgerrcode.TooManyConnections, pgerrcode.CannotConnectNow,
		pgerrcode.ConnectionException, pgerrcode.ConnectionDoesNotExist,
		pgerrcode.ConnectionFailure, pgerrcode.AdminShutdown:
		// No one-shot DDL fix applies to a serialization failure, deadlock,
		// or connection-pool exhaustion. Drop and let the next batch retry
		// against a fresh connection/transaction.
		return Classified{Kind: KindFatal}

	default:
		return Classified{Kind: KindFatal}
	}
}
