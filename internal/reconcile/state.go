package reconcile

// RunState tracks a fetch-and-reconcile flow. States only move forward;
// StateFailed is terminal and reachable from connecting, fetching, or
// merging. There is no retry transition: callers re-invoke the whole flow.
type RunState string

const (
	StateIdle          RunState = "IDLE"
	StateConnecting    RunState = "CONNECTING"
	StateIntrospecting RunState = "INTROSPECTING"
	StateFetching      RunState = "FETCHING"
	StateMerging       RunState = "MERGING"
	StateDone          RunState = "DONE"
	StateFailed        RunState = "FAILED"
)

// Result summarizes one reconciliation run. On failure Count fields are
// zero: no partial commit tracking is attempted.
type Result struct {
	State         RunState `json:"state"`
	ExternalCount int      `json:"externalCount"`
	ManualCount   int      `json:"manualCount"`
	Total         int      `json:"total"`
	Error         string   `json:"error,omitempty"`
}
