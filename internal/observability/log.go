// Package observability provides structured JSON event logging, adapted
// from the teacher's libs/observability package. Plain stdlib log, not
// zap/zerolog/slog — the teacher never pulled in a structured-logging
// library, so this module doesn't either (see DESIGN.md ambient-stack
// entry).
package observability

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"
)

var logger = log.New(os.Stdout, "", 0)

// LogEvent writes one structured JSON log line: timestamp, level, event
// name, ambient RunInfo, and the given fields (redacted via normalizeFields
// for anything carrying a connection string or broker credential).
func LogEvent(ctx context.Context, level string, event string, fields map[string]any) {
	payload := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339),
		"level": level,
		"event": event,
	}

	info := RunInfoFromContext(ctx)
	if info.RunID != "" {
		payload["run_id"] = info.RunID
	}
	if info.EngineID != "" {
		payload["engine_id"] = info.EngineID
	}
	if info.StrategyID != "" {
		payload["strategy_id"] = info.StrategyID
	}

	for key, value := range normalizeFields(fields) {
		payload[key] = value
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Printf("{\"level\":\"error\",\"event\":\"log_marshal_failed\",\"error\":%q}", err.Error())
		return
	}
	logger.Print(string(raw))
}

// LogOrderSubmitted logs an order entering the submission pipeline
// (spec.md §4.H step 1).
func LogOrderSubmitted(ctx context.Context, orderID, instrument, side string, quantity string) {
	LogEvent(ctx, "info", "order_submitted", map[string]any{
		"order_id":   orderID,
		"instrument": instrument,
		"side":       side,
		"quantity":   quantity,
	})
}

// LogOrderRejected logs a rejection with its reason (spec.md §4.H step 2,
// §7 InsufficientFunds).
func LogOrderRejected(ctx context.Context, orderID, reason string) {
	LogEvent(ctx, "warn", "order_rejected", map[string]any{
		"order_id": orderID,
		"reason":   reason,
	})
}

// LogFill logs an accepted fill against an order.
func LogFill(ctx context.Context, orderID string, quantity, price string) {
	LogEvent(ctx, "info", "order_filled", map[string]any{
		"order_id": orderID,
		"quantity": quantity,
		"price":    price,
	})
}

// LogStrategyError logs an exception escaping a strategy callback,
// transitioning the strategy to ERROR (spec.md §4.I, §7).
func LogStrategyError(ctx context.Context, strategyID string, err error) {
	fields := map[string]any{"strategy_id": strategyID}
	if err != nil {
		fields["error"] = err.Error()
	}
	LogEvent(ctx, "error", "strategy_error", fields)
}

// normalizeFields stringifies error values and redacts every field,
// whether the sensitive name is the field key itself (a DSN passed as its
// own field) or buried inside a nested struct/map (credentials inside a
// broker Config).
func normalizeFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		if isSensitiveKey(key) {
			out[key] = redactedValue
			continue
		}
		if err, ok := value.(error); ok {
			out[key] = err.Error()
			continue
		}
		out[key] = RedactValue(value)
	}
	return out
}
