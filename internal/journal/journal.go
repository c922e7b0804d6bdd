// Package journal implements the optional trade journal (spec.md §6
// "Persisted state: none" for the core engine — this is an external,
// entirely optional observer bolted onto the Engine's execution-routing
// hook, never a dependency of SimBroker/Engine themselves).
//
// Grounded on libs/database/connection.go's retry/backoff Connect, ported
// from database/sql+pgx-stdlib to pgxpool since the journal only ever
// issues simple inserts/queries and has no use for database/sql's generic
// driver abstraction.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"jax-eventengine/internal/domain"
	"jax-eventengine/internal/observability"
)

// Config mirrors libs/database/config.go's Config, narrowed to what
// pgxpool needs plus the retry/backoff knobs.
type Config struct {
	DSN             string
	MaxConns        int32
	RetryAttempts   int
	RetryDelay      time.Duration
}

// DefaultConfig returns sensible defaults, matching
// libs/database/config.go's DefaultConfig.
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:           dsn,
		MaxConns:      10,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}
}

// Journal persists executions to Postgres for post-run inspection. It
// implements engine.ExecutionSink so it can be attached to an Engine as an
// optional observer.
type Journal struct {
	pool *pgxpool.Pool
}

// Connect opens a pgxpool.Pool with exponential-backoff retry, the same
// shape as libs/database/connection.go's Connect.
func Connect(ctx context.Context, cfg Config) (*Journal, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: journal DSN must not be empty", domain.ErrValidation)
	}
	observability.LogEvent(ctx, "info", "journal_connecting", map[string]any{
		"dsn":            cfg.DSN,
		"max_conns":      cfg.MaxConns,
		"retry_attempts": cfg.RetryAttempts,
	})

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("journal: parse DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}
	attempts := cfg.RetryAttempts
	if attempts < 0 {
		attempts = 0
	}

	var pool *pgxpool.Pool
	for attempt := 0; attempt <= attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}

		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			continue
		}
		if err = pool.Ping(ctx); err != nil {
			pool.Close()
			continue
		}
		return &Journal{pool: pool}, nil
	}

	return nil, fmt.Errorf("journal: connect after %d attempts: %w", attempts+1, err)
}

// Close releases the pool. Idempotent.
func (j *Journal) Close() {
	j.pool.Close()
}

// RecordExecution appends one execution row. runID identifies the engine
// run (spec.md §4.J run metadata); strategyKey/brokerKey come from the
// Routing Registry entry that resolved the execution (spec.md §4.L).
func (j *Journal) RecordExecution(ctx context.Context, runID uuid.UUID, strategyKey, brokerKey string, exec domain.Execution) error {
	_, err := j.pool.Exec(ctx, insertFillSQL,
		exec.Fill.ID,
		runID,
		strategyKey,
		brokerKey,
		exec.Order.ID,
		exec.Order.Instrument.Key(),
		string(exec.Order.Side),
		exec.Fill.Quantity.String(),
		exec.Fill.Price.String(),
		exec.Fill.Timestamp,
		exec.Fill.Commission.Amount.String(),
		exec.Fill.Commission.Currency.Code,
	)
	if err != nil {
		return fmt.Errorf("journal: record execution: %w", err)
	}
	return nil
}

// RunStarted records the start of a run for later correlation; a no-op
// failure here never blocks the engine loop, callers are expected to treat
// the returned error as log-and-continue.
func (j *Journal) RunStarted(ctx context.Context, runID uuid.UUID, startedAt time.Time) error {
	_, err := j.pool.Exec(ctx, insertRunSQL, runID, startedAt)
	if err != nil {
		return fmt.Errorf("journal: record run start: %w", err)
	}
	return nil
}

const insertRunSQL = `INSERT INTO engine_runs (run_id, started_at) VALUES ($1, $2) ON CONFLICT (run_id) DO NOTHING`

const insertFillSQL = `
INSERT INTO fills (
	fill_id, run_id, strategy_key, broker_key, order_id, instrument_key,
	side, quantity, price, filled_at, commission_amount, commission_currency
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (fill_id) DO NOTHING`
