package observability

import (
	"context"
	"testing"
)

func TestRunInfoFromContext_DefaultsToZeroValue(t *testing.T) {
	info := RunInfoFromContext(context.Background())
	if info != (RunInfo{}) {
		t.Fatalf("got %+v, want zero value", info)
	}
}

func TestWithRunInfo_RoundTrips(t *testing.T) {
	info := RunInfo{RunID: "run-1", EngineID: "engine-1", StrategyID: "strat-1"}
	ctx := WithRunInfo(context.Background(), info)

	got := RunInfoFromContext(ctx)
	if got != info {
		t.Fatalf("got %+v, want %+v", got, info)
	}
}
