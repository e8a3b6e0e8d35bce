package model

import (
	"github.com/cloudwego/eino/schema"
)

// AppState stores per-invocation state for the Eino Graph.
// It is registered via compose.WithGenLocalState and is only read or written
// inside state handlers or compose.ProcessState, which Eino serialises.
type AppState struct {
	SessionID string
	Today     string
	History   []*schema.Message // system, user, assistant tool calls, tool results

	ToolCallCount    int
	ToolCallsDropped int
	ToolCallIDSeq    int // synthesised ids when the provider omits them
	ToolsCalled      []string

	TotalCostUSD float64
}

// QueryInput is one user turn.
type QueryInput struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	// Today is an ISO date (2006-01-02). Empty means use the clock.
	Today string `json:"today,omitempty"`
}

// TurnResult is what the runner hands back to transports.
type TurnResult struct {
	SessionID string   `json:"session_id"`
	Reply     string   `json:"reply"`
	ToolCalls []string `json:"tool_calls,omitempty"`
	CostUSD   float64  `json:"cost_usd"`
}

// Keys used to surface per-turn accounting on the final message.
const (
	ExtraUsageCost    = "usage_cost"
	ExtraTotalCostUSD = "usage_cost_total_usd"
	ExtraToolsCalled  = "tools_called"
)
