package indicator

import (
	"errors"

	"github.com/caisdata/cais/internal/services/coverage"
)

var (
	// ErrIndicatorNotFound means the code has no catalog entry.
	ErrIndicatorNotFound = errors.New("indicator not found")
	// ErrInvalidParams means required parameters are missing or malformed.
	ErrInvalidParams = errors.New("invalid indicator parameters")
	// ErrUpstreamUnavailable means the warehouse query failed. It always
	// propagates; the dispatcher never swallows warehouse errors.
	ErrUpstreamUnavailable = errors.New("warehouse unavailable")
)

// QueryRequest is one indicator execution request.
type QueryRequest struct {
	Code   string                 `json:"code"`
	Params map[string]interface{} `json:"params"`
}

// QueryResult carries the rows plus coverage warnings. Warnings annotate, they
// never alter the row payload.
type QueryResult struct {
	Code      string                   `json:"code"`
	Rows      []map[string]interface{} `json:"rows"`
	Warnings  []coverage.Warning       `json:"warnings"`
	FromCache bool                     `json:"from_cache"`
}
