package sink

import (
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassify_MissingColumn_ExtractsTableAndColumn(t *testing.T) {
	err := &pgconn.PgError{
		Code:    pgerrcode.UndefinedColumn,
		Message: `column "p99" of relation "http_latency" does not exist`,
	}
	got := Classify(err)
	assert.Equal(t, KindMissingColumn, got.Kind)
	assert.Equal(t, "http_latency", got.Table)
	assert.Equal(t, "p99", got.Column)
	assert.True(t, got.Kind.Retryable())
}

func TestClassify_MissingTable_ExtractsTable(t *testing.T) {
	err := &pgconn.PgError{
		Code:    pgerrcode.UndefinedTable,
		Message: `relation "http_latency" does not exist`,
	}
	got := Classify(err)
	assert.Equal(t, KindMissingTable, got.Kind)
	assert.Equal(t, "http_latency", got.Table)
	assert.True(t, got.Kind.Retryable())
}

func TestClassify_PermissionDenied_NotRetryable(t *testing.T) {
	err := &pgconn.PgError{Code: pgerrcode.InsufficientPrivilege}
	got := Classify(err)
	assert.Equal(t, KindPermissionDenied, got.Kind)
	assert.False(t, got.Kind.Retryable())
}

func TestClassify_Transient_NonPgError_NotRetryable(t *testing.T) {
	got := Classify(errors.New("connection reset by peer"))
	assert.Equal(t, KindTransient, got.Kind)
	assert.False(t, got.Kind.Retryable())
}

func TestClassify_SerializationFailure_NotRetryable(t *testing.T) {
	err := &pgconn.PgError{Code: pgerrcode.SerializationFailure}
	got := Classify(err)
	assert.Equal(t, KindFatal, got.Kind)
	assert.False(t, got.Kind.Retryable())
}

func TestClassify_DeadlockDetected_NotRetryable(t *testing.T) {
	err := &pgconn.PgError{Code: pgerrcode.DeadlockDetected}
	got := Classify(err)
	assert.Equal(t, KindFatal, got.Kind)
	assert.False(t, got.Kind.Retryable())
}

func TestClassify_WrongType_NotRetryable(t *testing.T) {
	err := &pgconn.PgError{Code: pgerrcode.DatatypeMismatch}
	got := Classify(err)
	assert.Equal(t, KindWrongType, got.Kind)
	assert.False(t, got.Kind.Retryable())
}

func TestClassify_UnknownCodeIsFatal(t *testing.T) {
	err := &pgconn.PgError{Code: "99999"}
	got := Classify(err)
	assert.Equal(t, KindFatal, got.Kind)
	assert.False(t, got.Kind.Retryable())
}

func TestClassify_Nil(t *testing.T) {
	got := Classify(nil)
	assert.Equal(t, KindUnknown, got.Kind)
}
