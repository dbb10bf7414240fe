package budget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spacesedan/sportsdigest/internal/models"
)

// ErrHardLimit is returned when a paid operation would be recorded after the
// daily hard limit has been reached. Zero-cost records are always accepted.
var ErrHardLimit = errors.New("daily hard budget limit reached")

// Ledger is the append-only record of priced operations. Record refuses
// paid appends once the UTC day's spend has reached the hard limit, which is
// what keeps total spend within one in-flight call of the ceiling.
type Ledger interface {
	Record(ctx context.Context, rec models.CostRecord) error
	SpentToday(ctx context.Context) (float64, error)
}

// PgLedger stores CostRecords in the api_usage_tracking table.
type PgLedger struct {
	pool      *pgxpool.Pool
	hardLimit float64
}

func NewPgLedger(pool *pgxpool.Pool, hardLimit float64) *PgLedger {
	return &PgLedger{pool: pool, hardLimit: hardLimit}
}

func (l *PgLedger) Record(ctx context.Context, rec models.CostRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	if rec.CostEstimate > 0 {
		spent, err := l.SpentToday(ctx)
		if err != nil {
			return fmt.Errorf("checking daily spend: %w", err)
		}
		if spent >= l.hardLimit {
			return ErrHardLimit
		}
	}

	query := `INSERT INTO api_usage_tracking (api, operation_type, tokens_or_units, cost_estimate, timestamp, user_id)
        VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))`
	_, err := l.pool.Exec(ctx, query,
		rec.API, rec.OperationType, rec.TokensOrUnits, rec.CostEstimate, rec.Timestamp, rec.UserID)
	if err != nil {
		return fmt.Errorf("inserting cost record: %w", err)
	}

	slog.Debug("[CostLedger] Recorded cost",
		slog.String("api", rec.API),
		slog.String("operation", rec.OperationType),
		slog.Float64("cost", rec.CostEstimate))
	return nil
}

func (l *PgLedger) SpentToday(ctx context.Context) (float64, error) {
	query := `
        SELECT COALESCE(SUM(cost_estimate), 0)
        FROM api_usage_tracking
        WHERE timestamp >= date_trunc('day', now() AT TIME ZONE 'utc')
    `
	var spent float64
	if err := l.pool.QueryRow(ctx, query).Scan(&spent); err != nil {
		return 0, fmt.Errorf("summing daily spend: %w", err)
	}
	return spent, nil
}

// MemoryLedger keeps CostRecords in memory with the same admission policy as
// PgLedger. Used in tests and for local development without Postgres.
type MemoryLedger struct {
	mu        sync.Mutex
	records   []models.CostRecord
	hardLimit float64
	now       func() time.Time
}

func NewMemoryLedger(hardLimit float64) *MemoryLedger {
	return &MemoryLedger{hardLimit: hardLimit, now: time.Now}
}

// SetClock overrides the ledger's clock. Test hook.
func (l *MemoryLedger) SetClock(now func() time.Time) { l.now = now }

func (l *MemoryLedger) Record(ctx context.Context, rec models.CostRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = l.now().UTC()
	}

	if rec.CostEstimate > 0 && l.spentTodayLocked() >= l.hardLimit {
		return ErrHardLimit
	}

	l.records = append(l.records, rec)
	return nil
}

func (l *MemoryLedger) SpentToday(ctx context.Context) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.spentTodayLocked(), nil
}

func (l *MemoryLedger) spentTodayLocked() float64 {
	dayStart := l.now().UTC().Truncate(24 * time.Hour)
	var spent float64
	for _, rec := range l.records {
		if !rec.Timestamp.Before(dayStart) {
			spent += rec.CostEstimate
		}
	}
	return spent
}

// Records returns a copy of everything appended so far.
func (l *MemoryLedger) Records() []models.CostRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.CostRecord, len(l.records))
	copy(out, l.records)
	return out
}
