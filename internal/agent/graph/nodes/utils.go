package nodes

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/docbook-core-poc-v1/server/internal/agent/model"
	logx "github.com/docbook-core-poc-v1/server/pkg/logger"
	"github.com/docbook-core-poc-v1/server/pkg/metrics"
)

const DefaultMaxToolCalls = 5

// normalizeMaxToolCalls returns a sane default when the provided value is invalid.
func normalizeMaxToolCalls(n int) int {
	if n <= 0 {
		return DefaultMaxToolCalls
	}
	return n
}

// limitToolCalls keeps at most max calls and reports how many were dropped.
func limitToolCalls(calls []schema.ToolCall, max int) ([]schema.ToolCall, int) {
	max = normalizeMaxToolCalls(max)
	if len(calls) <= max {
		return calls, 0
	}
	return calls[:max], len(calls) - max
}

// ensureToolCallIDs fills ids the provider left empty with call_N.
func ensureToolCallIDs(msg *schema.Message, state *model.AppState) {
	for i := range msg.ToolCalls {
		if strings.TrimSpace(msg.ToolCalls[i].ID) == "" {
			state.ToolCallIDSeq++
			msg.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
		}
	}
}

// lastToolCallMessage finds the most recent assistant message carrying tool calls.
func lastToolCallMessage(history []*schema.Message) (int, *schema.Message) {
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if msg != nil && msg.Role == schema.Assistant && len(msg.ToolCalls) > 0 {
			return i, msg
		}
	}
	return -1, nil
}

// accountUsage converts token usage to USD, records it on the message and
// accumulates it in state.
func accountUsage(out *schema.Message, state *model.AppState, node, modelName string, m *metrics.Metrics) {
	if out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	usage := out.ResponseMeta.Usage
	inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(modelName))
	if out.Extra == nil {
		out.Extra = map[string]any{}
	}
	out.Extra[model.ExtraUsageCost] = map[string]any{
		"currency":          "USD",
		"model":             modelName,
		"prompt_tokens":     usage.PromptTokens,
		"completion_tokens": usage.CompletionTokens,
		"total_tokens":      usage.TotalTokens,
		"input_cost":        inC,
		"output_cost":       outC,
		"total_cost":        totalC,
	}
	logx.Debug().
		Str("session_id", state.SessionID).
		Str("node", node).
		Str("model", modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")

	state.TotalCostUSD += totalC
	m.AddCost(totalC)
}

// SanitizeToolArguments trims string arguments and coerces scalars to strings,
// since every tool parameter is a string. Arguments that are not a JSON object
// are passed through untouched.
func SanitizeToolArguments(arguments string) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil {
		return arguments
	}

	for k, v := range m {
		switch vv := v.(type) {
		case string:
			m[k] = strings.TrimSpace(vv)
		case float64, bool, json.Number:
			m[k] = fmt.Sprint(vv)
		default:
			// null, objects and arrays never fit a string parameter
			delete(m, k)
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return arguments
	}
	return string(b)
}
