package sandbox

import (
	"errors"
	"time"
)

const (
	IsolationSnapshot = "snapshot"
	IsolationRollback = "rollback"
)

var ErrClosed = errors.New("sandbox is closed")

type ResultKind string

const (
	KindRows     ResultKind = "rows"
	KindAffected ResultKind = "affected"
)

type EngineInfo struct {
	Name      string
	Version   string
	Isolation string
}

// QueryResult is either a row set (KindRows) or an affected-row count
// (KindAffected). Rows map column name to a normalized value: integers are
// int64, reals float64, text string, dates "2006-01-02".
type QueryResult struct {
	Kind         ResultKind
	Columns      []string
	Rows         []map[string]any
	AffectedRows int64
	Duration     time.Duration
}

// QueryError carries the engine's own error text for a player statement.
type QueryError struct {
	Message string
	Hint    string
	Err     error
}

func (e *QueryError) Error() string {
	if e.Hint == "" {
		return e.Message
	}
	return e.Message + " (" + e.Hint + ")"
}

func (e *QueryError) Unwrap() error { return e.Err }
