package observability

import "context"

// RunInfo carries the ambient identifiers LogEvent stitches into every
// structured log line. Adapted from the teacher's flow/task-oriented
// RunInfo to the engine's own identifiers: a scenario RunID, the
// originating EngineID, and (when known) the StrategyID handling the
// current callback.
type RunInfo struct {
	RunID      string
	EngineID   string
	StrategyID string
}

type runInfoKey struct{}

// WithRunInfo returns a context carrying info for subsequent LogEvent
// calls.
func WithRunInfo(ctx context.Context, info RunInfo) context.Context {
	return context.WithValue(ctx, runInfoKey{}, info)
}

// RunInfoFromContext retrieves the ambient RunInfo, or the zero value if
// none was set.
func RunInfoFromContext(ctx context.Context) RunInfo {
	if info, ok := ctx.Value(runInfoKey{}).(RunInfo); ok {
		return info
	}
	return RunInfo{}
}
