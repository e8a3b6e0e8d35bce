package nodes

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbook-core-poc-v1/server/internal/agent/model"
)

func toolCalls(names ...string) []schema.ToolCall {
	calls := make([]schema.ToolCall, len(names))
	for i, n := range names {
		calls[i] = schema.ToolCall{Function: schema.FunctionCall{Name: n, Arguments: `{}`}}
	}
	return calls
}

func TestSanitizeToolArguments(t *testing.T) {
	out := SanitizeToolArguments(`{"doctor":"  Dr. Ahmed ","time":10,"urgent":true,"notes":null,"tags":["a"]}`)
	assert.JSONEq(t, `{"doctor":"Dr. Ahmed","time":"10","urgent":"true"}`, out)

	assert.Equal(t, "not json", SanitizeToolArguments("not json"))
}

func TestInputConverterPreHandlerResetsState(t *testing.T) {
	fixed := time.Date(2025, 8, 28, 12, 0, 0, 0, time.UTC)
	h := NewInputConverterPreHandler(func() time.Time { return fixed })
	state := &model.AppState{ToolCallCount: 3, TotalCostUSD: 1, ToolsCalled: []string{"x"}}

	in, err := h(context.Background(), model.QueryInput{SessionID: "s", Message: "hi"}, state)
	require.NoError(t, err)
	assert.Equal(t, "2025-08-28", in.Today)
	assert.Equal(t, "2025-08-28", state.Today)
	assert.Equal(t, "s", state.SessionID)
	assert.Zero(t, state.ToolCallCount)
	assert.Zero(t, state.TotalCostUSD)
	assert.Nil(t, state.ToolsCalled)

	in, err = h(context.Background(), model.QueryInput{SessionID: "s", Message: "hi", Today: "2030-01-01"}, state)
	require.NoError(t, err)
	assert.Equal(t, "2030-01-01", in.Today)
}

func TestResponseWithToolsPostHandlerSynthesisesIDs(t *testing.T) {
	state := &model.AppState{}
	out := schema.AssistantMessage("", toolCalls("search_doctors", "save_appointment"))
	out.ToolCalls[1].ID = "provider-id"

	h := NewResponseWithToolsPostHandler(nil, "gemini-2.5-flash", nil)
	got, err := h(context.Background(), out, state)
	require.NoError(t, err)

	assert.Equal(t, "call_1", got.ToolCalls[0].ID)
	assert.Equal(t, "provider-id", got.ToolCalls[1].ID)
	assert.Equal(t, 1, state.ToolCallIDSeq)
	assert.Len(t, state.History, 1)
}

func TestToolExecutorPreHandlerDropsExtraCalls(t *testing.T) {
	state := &model.AppState{}
	msg := schema.AssistantMessage("", toolCalls("a", "b", "c", "d"))
	state.History = []*schema.Message{schema.SystemMessage("sys"), schema.UserMessage("u"), msg}

	h := NewToolExecutorPreHandler(2)
	got, err := h(context.Background(), msg, state)
	require.NoError(t, err)

	assert.Len(t, got.ToolCalls, 2)
	assert.Len(t, msg.ToolCalls, 4, "the model output is not mutated")
	assert.Same(t, got, state.History[2])
	assert.Equal(t, 2, state.ToolCallCount)
	assert.Equal(t, 2, state.ToolCallsDropped)
	assert.Equal(t, []string{"a", "b"}, state.ToolsCalled)
}

func TestResponseWithoutToolsPreHandlerFillsToolCallIDs(t *testing.T) {
	caller := schema.AssistantMessage("", toolCalls("search_doctors"))
	caller.ToolCalls[0].ID = "call_1"
	state := &model.AppState{History: []*schema.Message{schema.SystemMessage("sys"), schema.UserMessage("u"), caller}}

	results := []*schema.Message{schema.ToolMessage("Dr. Ahmed, Cardiology", "")}
	got, err := NewResponseWithoutToolsPreHandler()(context.Background(), results, state)
	require.NoError(t, err)

	require.Len(t, got, 4)
	assert.Equal(t, "call_1", got[3].ToolCallID)
}

func TestAccountUsage(t *testing.T) {
	state := &model.AppState{}
	out := schema.AssistantMessage("hi", nil)
	out.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 1000, CompletionTokens: 100, TotalTokens: 1100}}

	accountUsage(out, state, NodeResponseWithTools, "gemini-2.5-flash", nil)
	accountUsage(out, state, NodeResponseWithTools, "gemini-2.5-flash", nil)

	assert.InDelta(t, 0.0011, state.TotalCostUSD, 1e-9)
	assert.Contains(t, out.Extra, model.ExtraUsageCost)

	accountUsage(schema.AssistantMessage("no usage", nil), state, NodeResponseWithTools, "gemini-2.5-flash", nil)
	assert.InDelta(t, 0.0011, state.TotalCostUSD, 1e-9)
}

func TestToolExecutorCondition(t *testing.T) {
	cond := NewToolExecutorCondition()
	next, err := cond(context.Background(), schema.AssistantMessage("", toolCalls("a")))
	require.NoError(t, err)
	assert.Equal(t, NodeToolExecutor, next)

	next, err = cond(context.Background(), schema.AssistantMessage("done", nil))
	require.NoError(t, err)
	assert.Equal(t, compose.END, next)
}
