package budget

import (
	"context"
	"fmt"
)

type Status int

const (
	StatusOK Status = iota
	StatusSoftLimit
	StatusHardLimit
)

func (s Status) String() string {
	switch s {
	case StatusSoftLimit:
		return "SOFT_LIMIT"
	case StatusHardLimit:
		return "HARD_LIMIT"
	default:
		return "OK"
	}
}

// Guard is the admission gate consulted before paid operations. It is a
// simple threshold check over the ledger's daily sum, not a rate limiter:
// spend may exceed the hard limit by at most one in-flight call, since cost
// is recorded after a call completes.
type Guard struct {
	ledger Ledger
	soft   float64
	hard   float64
}

func NewGuard(ledger Ledger, softLimit, hardLimit float64) *Guard {
	return &Guard{ledger: ledger, soft: softLimit, hard: hardLimit}
}

func (g *Guard) Check(ctx context.Context) (Status, error) {
	spent, err := g.ledger.SpentToday(ctx)
	if err != nil {
		return StatusOK, fmt.Errorf("reading daily spend: %w", err)
	}

	switch {
	case spent >= g.hard:
		return StatusHardLimit, nil
	case spent >= g.soft:
		return StatusSoftLimit, nil
	default:
		return StatusOK, nil
	}
}
