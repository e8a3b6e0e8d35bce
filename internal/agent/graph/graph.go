package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/docbook-core-poc-v1/server/internal/agent/graph/conversations"
	"github.com/docbook-core-poc-v1/server/internal/agent/graph/nodes"
	"github.com/docbook-core-poc-v1/server/internal/agent/graph/observers"
	"github.com/docbook-core-poc-v1/server/internal/agent/graph/tools"
	"github.com/docbook-core-poc-v1/server/internal/agent/model"
	errx "github.com/docbook-core-poc-v1/server/internal/core/error"
	logx "github.com/docbook-core-poc-v1/server/pkg/logger"
	"github.com/docbook-core-poc-v1/server/pkg/metrics"
)

// Runner executes one conversational turn per call.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (model.TurnResult, error)
	// Reset forgets the session's history.
	Reset(ctx context.Context, sessionID string) error
}

// Config holds everything needed to compose the full response graph end-to-end.
// This is a convenience layer over GraphConfig that also constructs ChatModels and MessagesManager.
type Config struct {
	GeminiClient     *genai.Client
	ResponseModel    model.ResponseModelConfig
	Prompt           model.PromptConfig
	Conversation     model.ConversationConfig
	ConversationRepo model.ConversationRepository
	Tools            tools.Deps
	Metrics          *metrics.Metrics
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	ChatModels      *nodes.ChatModels
	MessagesManager *conversations.MessagesManager
	PromptConfig    model.PromptConfig
	Tools           []tool.BaseTool
	ToolMaxCalls    int
	Metrics         *metrics.Metrics
	// Now defaults to time.Now; it decides "today" when the input leaves it empty.
	Now func() time.Time
}

// GraphBuilder handles the construction of the agent conversation graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.QueryInput, *schema.Message]
}

type graphRunner struct {
	runnable compose.Runnable[model.QueryInput, *schema.Message]
	mm       *conversations.MessagesManager
	metrics  *metrics.Metrics
}

func (r *graphRunner) Invoke(ctx context.Context, in model.QueryInput) (model.TurnResult, error) {
	in.SessionID = strings.TrimSpace(in.SessionID)
	in.Message = strings.TrimSpace(in.Message)
	if in.SessionID == "" {
		return model.TurnResult{}, errx.Validation("session id is required")
	}
	if in.Message == "" {
		return model.TurnResult{}, errx.Validation("message cannot be empty")
	}

	log := logx.Session(in.SessionID)
	start := time.Now()
	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks(r.metrics)))
	r.metrics.ObserveTurn(start, err)
	if err != nil {
		log.Error().Err(err).Msg("turn failed")
		r.discardUserMessage(ctx, in)
		return model.TurnResult{}, fmt.Errorf("run turn: %w", err)
	}

	res := model.TurnResult{SessionID: in.SessionID, Reply: nodes.FallbackReply}
	if out == nil {
		return res, nil
	}
	if strings.TrimSpace(out.Content) != "" {
		res.Reply = out.Content
	}
	if v, ok := out.Extra[model.ExtraTotalCostUSD].(float64); ok {
		res.CostUSD = v
	}
	if v, ok := out.Extra[model.ExtraToolsCalled].([]string); ok && len(v) > 0 {
		res.ToolCalls = v
	}

	log.Info().
		Strs("tools", res.ToolCalls).
		Float64("cost_usd", res.CostUSD).
		Dur("took", time.Since(start)).
		Msg("turn completed")
	return res, nil
}

// discardUserMessage keeps a failed turn out of the history, so the next
// prompt does not show an unanswered human message.
func (r *graphRunner) discardUserMessage(ctx context.Context, in model.QueryInput) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := r.mm.DiscardUserMessage(ctx, in.SessionID, in.Message); err != nil {
		log := logx.Session(in.SessionID)
		log.Warn().Err(err).Msg("failed to discard user message of failed turn")
	}
}

func (r *graphRunner) Reset(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errx.Validation("session id is required")
	}
	return r.mm.Reset(ctx, sessionID)
}

// BuildResponseGraph composes ChatModels, MessagesManager and tools, builds the graph, and returns a Runner.
func BuildResponseGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.ConversationRepo == nil {
		return nil, fmt.Errorf("conversation repo is nil")
	}

	cms, err := nodes.NewChatModels(ctx, cfg.GeminiClient, &cfg.ResponseModel)
	if err != nil {
		return nil, err
	}

	businessTools, err := tools.GetTools(cfg.Tools)
	if err != nil {
		return nil, err
	}

	mm := conversations.NewMessagesManager(cfg.ConversationRepo, cfg.Conversation)

	runner, err := BuildRunner(ctx, &GraphConfig{
		ChatModels:      cms,
		MessagesManager: mm,
		PromptConfig:    cfg.Prompt,
		Tools:           businessTools,
		ToolMaxCalls:    cfg.Conversation.Tools.MaxCalls,
		Metrics:         cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Response graph built successfully")
	return runner, nil
}

// BuildRunner compiles the graph and wraps it as a Runner.
func BuildRunner(ctx context.Context, config *GraphConfig) (Runner, error) {
	runnable, err := BuildGraph(ctx, config)
	if err != nil {
		return nil, err
	}
	return &graphRunner{runnable: runnable, mm: config.MessagesManager, metrics: config.Metrics}, nil
}

// BuildGraph constructs and returns the compiled agent graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModels == nil || config.ChatModels.ResponseWithTools == nil || config.ChatModels.ResponseWithoutTools == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.MessagesManager == nil {
		return nil, fmt.Errorf("messages manager is nil")
	}
	if len(config.Tools) == 0 {
		return nil, fmt.Errorf("no tools configured")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.QueryInput, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	if err := builder.setupTools(ctx); err != nil {
		return nil, err
	}

	builder.addNodes()
	builder.addEdges()

	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// setupTools binds the business tools to the tool-calling model and adds the tools node
func (b *GraphBuilder) setupTools(ctx context.Context) error {
	toolInfos, err := tools.GetToolInfos(ctx, b.config.Tools)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to get tool infos")
		return fmt.Errorf("failed to get tool infos: %w", err)
	}

	if err := b.config.ChatModels.BindTools(ctx, toolInfos); err != nil {
		return err
	}

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               b.config.Tools,
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			// Gracefully handle hallucinated or malformed tool calls (e.g., empty name)
			logx.Warn().
				Str("tool_name", name).
				Str("arguments", input).
				Msg("Unknown or invalid tool call; returning fallback result")
			return fmt.Sprintf("{\"error\":\"unknown_tool\",\"name\":%q,\"note\":\"ignored\"}", name), nil
		},
		ToolArgumentsHandler: func(ctx context.Context, name, arguments string) (string, error) {
			return nodes.SanitizeToolArguments(arguments), nil
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return fmt.Errorf("failed to create tools node: %w", err)
	}

	b.graph.AddToolsNode(nodes.NodeToolExecutor, toolsNode,
		compose.WithStatePreHandler(nodes.NewToolExecutorPreHandler(b.config.ToolMaxCalls)),
		compose.WithNodeName(nodes.NodeToolExecutor),
	)

	return nil
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() {
	cms := b.config.ChatModels

	b.graph.AddLambdaNode(nodes.NodeInputConverter,
		nodes.NewInputConverterNode(b.config.MessagesManager, b.config.PromptConfig),
		compose.WithStatePreHandler(nodes.NewInputConverterPreHandler(b.config.Now)),
		compose.WithNodeName(nodes.NodeInputConverter),
	)

	b.graph.AddChatModelNode(nodes.NodeResponseWithTools,
		cms.ResponseWithTools,
		compose.WithStatePreHandler(nodes.NewResponseWithToolsPreHandler()),
		compose.WithStatePostHandler(nodes.NewResponseWithToolsPostHandler(b.config.MessagesManager, cms.ResponseModelName, b.config.Metrics)),
		compose.WithNodeName(nodes.NodeResponseWithTools),
	)

	b.graph.AddChatModelNode(nodes.NodeResponseWithoutTools,
		cms.ResponseWithoutTools,
		compose.WithStatePreHandler(nodes.NewResponseWithoutToolsPreHandler()),
		compose.WithStatePostHandler(nodes.NewResponseWithoutToolsPostHandler(b.config.MessagesManager, cms.ResponseModelName, b.config.Metrics)),
		compose.WithNodeName(nodes.NodeResponseWithoutTools),
	)
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, nodes.NodeInputConverter},
		{nodes.NodeInputConverter, nodes.NodeResponseWithTools},
		{nodes.NodeToolExecutor, nodes.NodeResponseWithoutTools},
		{nodes.NodeResponseWithoutTools, compose.END},
	}

	for _, edge := range edges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	toolBranch := compose.NewGraphBranch(
		nodes.NewToolExecutorCondition(),
		map[string]bool{
			nodes.NodeToolExecutor: true,
			compose.END:            true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeResponseWithTools, toolBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding tool branch")
		return fmt.Errorf("error adding tool branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	// one tool round per turn; the bound only guards against miswiring
	runnable, err := b.graph.Compile(ctx,
		compose.WithMaxRunSteps(10),
		compose.WithGraphName("DoctorAppointmentAgent"),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
