package fsm

// EngineState enumerates the states the Trading Engine lifecycle can
// occupy (spec.md §3 Lifecycles, confirmed against
// original_source/src/suite_trading/platform/engine/engine_state_machine.py).
type EngineState string

const (
	EngineNew     EngineState = "NEW"
	EngineRunning EngineState = "RUNNING"
	EngineStopped EngineState = "STOPPED"
	EngineError   EngineState = "ERROR"
)

// EngineAction is the set of actions accepted by the engine FSM.
type EngineAction string

const (
	EngineActionStart EngineAction = "START"
	EngineActionStop  EngineAction = "STOP"
	EngineActionFail  EngineAction = "FAIL"
)

// engineTable implements NEW -> RUNNING -> (STOPPED | ERROR).
var engineTable = NewTable([]Transition[EngineState, EngineAction]{
	{From: EngineNew, Action: EngineActionStart, To: EngineRunning},
	{From: EngineRunning, Action: EngineActionStop, To: EngineStopped},
	{From: EngineRunning, Action: EngineActionFail, To: EngineError},
})

// EngineMachine is a Machine specialized to the engine lifecycle.
type EngineMachine = Machine[EngineState, EngineAction]

// NewEngineMachine creates an engine FSM at EngineNew.
func NewEngineMachine() *EngineMachine {
	return NewMachine(engineTable, EngineNew)
}
