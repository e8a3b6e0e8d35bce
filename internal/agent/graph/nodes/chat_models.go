package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/docbook-core-poc-v1/server/internal/agent/model"
	logx "github.com/docbook-core-poc-v1/server/pkg/logger"
)

// ChatModels holds the two response models of a turn: one that may call
// tools and one that only writes the final answer from tool results.
type ChatModels struct {
	ResponseWithTools    einomodel.ChatModel
	ResponseWithoutTools einomodel.BaseChatModel
	ResponseModelName    string
}

// NewGeminiClient creates the genai client shared by chat and embedding models.
func NewGeminiClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		clientCfg.HTTPOptions.BaseURL = baseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}
	return client, nil
}

// NewChatModels creates both response models from one client and configuration.
func NewChatModels(ctx context.Context, client *genai.Client, config *model.ResponseModelConfig) (*ChatModels, error) {
	if client == nil || config == nil {
		return nil, fmt.Errorf("gemini client and response config are required")
	}

	newModel := func() (*gemini.ChatModel, error) {
		cfg := &gemini.Config{
			Client:      client,
			Model:       config.Model,
			Temperature: &config.Temperature,
			MaxTokens:   &config.MaxTokens,
		}
		if config.ThinkingBudget >= 0 {
			cfg.ThinkingConfig = &genai.ThinkingConfig{
				IncludeThoughts: false,
				ThinkingBudget:  genai.Ptr(config.ThinkingBudget),
			}
		}
		return gemini.NewChatModel(ctx, cfg)
	}

	withTools, err := newModel()
	if err != nil {
		logx.Error().Err(err).Msg("Error creating tool-calling model")
		return nil, fmt.Errorf("error creating tool-calling model: %w", err)
	}
	withoutTools, err := newModel()
	if err != nil {
		logx.Error().Err(err).Msg("Error creating response model")
		return nil, fmt.Errorf("error creating response model: %w", err)
	}

	return &ChatModels{
		ResponseWithTools:    withTools,
		ResponseWithoutTools: withoutTools,
		ResponseModelName:    config.Model,
	}, nil
}

// BindTools binds tools to the tool-calling model only.
func (cm *ChatModels) BindTools(ctx context.Context, tools []*schema.ToolInfo) error {
	if err := cm.ResponseWithTools.BindTools(tools); err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools")
		return fmt.Errorf("failed to bind tools: %w", err)
	}

	logx.Debug().Int("tools", len(tools)).Msg("Successfully bound tools to response model")
	return nil
}
