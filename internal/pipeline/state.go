package pipeline

// State is a phase of a load run.
type State string

const (
	StateInit        State = "Init"
	StateSchemaReady State = "SchemaReady"
	StateStreaming   State = "Streaming"
	StateAggregating State = "Aggregating"
	StateDone        State = "Done"
	StateFailed      State = "Failed"
)

// next lists the legal successors of each state. Failed and Done are terminal.
var next = map[State][]State{
	StateInit:        {StateSchemaReady, StateFailed},
	StateSchemaReady: {StateStreaming, StateFailed},
	StateStreaming:   {StateAggregating, StateFailed},
	StateAggregating: {StateDone, StateFailed},
}

// CanTransition reports whether a run may move from one state to another.
func CanTransition(from, to State) bool {
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }
