package models

import "time"

// CostRecord is one row per priced external call. Immutable once written;
// the ledger is the append-only aggregate of these.
type CostRecord struct {
	API           string    `json:"api"`
	OperationType string    `json:"operation_type"`
	TokensOrUnits int       `json:"tokens_or_units"`
	CostEstimate  float64   `json:"cost_estimate"`
	Timestamp     time.Time `json:"timestamp"`
	UserID        string    `json:"user_id,omitempty"`
}
