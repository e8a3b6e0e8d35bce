package nodes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/docbook-core-poc-v1/server/internal/agent/graph/conversations"
	"github.com/docbook-core-poc-v1/server/internal/agent/graph/prompts"
	"github.com/docbook-core-poc-v1/server/internal/agent/model"
	logx "github.com/docbook-core-poc-v1/server/pkg/logger"
	"github.com/docbook-core-poc-v1/server/pkg/metrics"
)

const (
	NodeInputConverter       = "InputConverter"
	NodeResponseWithTools    = "ResponseWithTools"
	NodeToolExecutor         = "ToolExecutor"
	NodeResponseWithoutTools = "ResponseWithoutTools"
)

// FallbackReply is returned when the model produces neither text nor tool calls.
const FallbackReply = "Sorry, I couldn't put together an answer. Could you rephrase or tell me a bit more?"

// NewInputConverterPreHandler resets per-turn state and pins today's date.
func NewInputConverterPreHandler(now func() time.Time) func(context.Context, model.QueryInput, *model.AppState) (model.QueryInput, error) {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, in model.QueryInput, s *model.AppState) (model.QueryInput, error) {
		if strings.TrimSpace(in.Today) == "" {
			in.Today = now().Format(time.DateOnly)
		}
		s.SessionID = in.SessionID
		s.Today = in.Today
		s.History = nil
		s.ToolCallCount = 0
		s.ToolCallsDropped = 0
		s.ToolCallIDSeq = 0
		s.ToolsCalled = nil
		s.TotalCostUSD = 0
		return in, nil
	}
}

// NewInputConverterNode saves the user turn, renders the system prompt with
// the prior chat history, and emits [system, user].
func NewInputConverterNode(
	mm *conversations.MessagesManager,
	promptCfg model.PromptConfig,
) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.QueryInput) ([]*schema.Message, error) {
		if err := mm.SaveUserMessage(ctx, input.SessionID, input.Message); err != nil {
			return nil, fmt.Errorf("save user message: %w", err)
		}

		history, err := mm.ChatHistory(ctx, input.SessionID, true)
		if err != nil {
			return nil, fmt.Errorf("load chat history: %w", err)
		}

		systemPrompt, err := prompts.RenderChatSystem(ctx, promptCfg, prompts.ChatVars{
			Today:       input.Today,
			ChatHistory: history,
		})
		if err != nil {
			return nil, fmt.Errorf("render chat system prompt: %w", err)
		}

		return []*schema.Message{
			schema.SystemMessage(systemPrompt),
			schema.UserMessage(input.Message),
		}, nil
	})
}

// NewResponseWithToolsPreHandler records the prompt messages as the turn history.
func NewResponseWithToolsPreHandler() func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		state.History = append(state.History[:0], in...)
		logx.Debug().Str("session_id", state.SessionID).Msg("AI thinking...")
		return in, nil
	}
}

// NewResponseWithToolsPostHandler accounts usage, normalises tool call ids and,
// when the model answered directly, finalises the reply.
func NewResponseWithToolsPostHandler(
	mm *conversations.MessagesManager,
	modelName string,
	m *metrics.Metrics,
) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		if out == nil {
			out = schema.AssistantMessage("", nil)
		}
		accountUsage(out, state, NodeResponseWithTools, modelName, m)

		// Some providers omit tool call ids; tool results must reference one.
		ensureToolCallIDs(out, state)
		state.History = append(state.History, out)

		if len(out.ToolCalls) > 0 {
			logx.Debug().Str("session_id", state.SessionID).Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
			return out, nil
		}

		finalizeReply(ctx, mm, out, state)
		return out, nil
	}
}

// NewToolExecutorCondition routes to the tools node when the model asked for tools.
func NewToolExecutorCondition() func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, input *schema.Message) (string, error) {
		if input != nil && len(input.ToolCalls) > 0 {
			logx.Debug().Int("tool_count", len(input.ToolCalls)).Msg("Routing to ToolExecutor")
			return NodeToolExecutor, nil
		}
		logx.Debug().Msg("No tool calls - continuing to end")
		return compose.END, nil
	}
}

// NewToolExecutorPreHandler enforces the per-turn tool call limit. Calls over
// the limit are dropped from both the executed message and the turn history.
func NewToolExecutorPreHandler(maxToolCalls int) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, in *schema.Message, state *model.AppState) (*schema.Message, error) {
		calls, dropped := limitToolCalls(in.ToolCalls, maxToolCalls)
		if dropped > 0 {
			logx.Warn().
				Str("session_id", state.SessionID).
				Int("requested", len(in.ToolCalls)).
				Int("dropped", dropped).
				Int("max_tool_calls", normalizeMaxToolCalls(maxToolCalls)).
				Msg("Tool call limit exceeded - dropping extra calls")

			trimmed := *in
			trimmed.ToolCalls = calls
			if i, _ := lastToolCallMessage(state.History); i >= 0 {
				state.History[i] = &trimmed
			}
			in = &trimmed
		}

		state.ToolCallCount += len(calls)
		state.ToolCallsDropped += dropped
		for _, c := range calls {
			state.ToolsCalled = append(state.ToolsCalled, c.Function.Name)
		}

		logx.Debug().
			Int("tool_call_count", state.ToolCallCount).
			Str("session_id", state.SessionID).
			Msg("Tool execution attempt")
		return in, nil
	}
}

// NewResponseWithoutToolsPreHandler appends tool results to the turn history
// and hands the whole history to the answer-only model.
func NewResponseWithoutToolsPreHandler() func(context.Context, []*schema.Message, *model.AppState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, state *model.AppState) ([]*schema.Message, error) {
		_, caller := lastToolCallMessage(state.History)
		for i, msg := range in {
			if msg == nil || msg.Role != schema.Tool || strings.TrimSpace(msg.ToolCallID) != "" {
				continue
			}
			if caller != nil && i < len(caller.ToolCalls) {
				msg.ToolCallID = caller.ToolCalls[i].ID
			}
		}

		state.History = append(state.History, in...)
		return state.History, nil
	}
}

// NewResponseWithoutToolsPostHandler accounts usage and finalises the reply.
func NewResponseWithoutToolsPostHandler(
	mm *conversations.MessagesManager,
	modelName string,
	m *metrics.Metrics,
) func(context.Context, *schema.Message, *model.AppState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.AppState) (*schema.Message, error) {
		if out == nil {
			out = schema.AssistantMessage("", nil)
		}
		accountUsage(out, state, NodeResponseWithoutTools, modelName, m)

		if len(out.ToolCalls) > 0 {
			logx.Warn().Str("session_id", state.SessionID).Int("tool_count", len(out.ToolCalls)).
				Msg("Answer model asked for tools; ignoring the calls")
			out.ToolCalls = nil
		}
		state.History = append(state.History, out)

		finalizeReply(ctx, mm, out, state)
		return out, nil
	}
}

// finalizeReply saves a non-empty reply to the session, falls back to a
// polite message otherwise, and surfaces turn accounting on the message.
func finalizeReply(ctx context.Context, mm *conversations.MessagesManager, out *schema.Message, state *model.AppState) {
	if strings.TrimSpace(out.Content) != "" {
		if err := mm.SaveResponse(ctx, state.SessionID, out.Content); err != nil {
			logx.Error().
				Str("session_id", state.SessionID).
				Err(err).
				Msg("Error saving assistant response")
		} else {
			logx.Debug().Str("session_id", state.SessionID).Msg("Saved assistant response")
		}
	} else {
		logx.Warn().Str("session_id", state.SessionID).Msg("Empty model reply - using fallback")
		out.Content = FallbackReply
	}

	if out.Extra == nil {
		out.Extra = map[string]any{}
	}
	out.Extra[model.ExtraTotalCostUSD] = state.TotalCostUSD
	out.Extra[model.ExtraToolsCalled] = append([]string(nil), state.ToolsCalled...)
	logx.Debug().Msg("AI response ready")
}
