package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/docbook-core-poc-v1/server/internal/agent/graph/tools"
	"github.com/docbook-core-poc-v1/server/internal/agent/model"
)

//go:embed template/chat_prompt.txt
var chatSystemPrompt string

// ChatVars are the per-turn values rendered into the system prompt.
type ChatVars struct {
	Today       string
	ChatHistory string
}

// RenderChatSystem renders the chat system prompt via the Eino prompt
// component (Go template), which also triggers prompt callbacks.
func RenderChatSystem(ctx context.Context, config model.PromptConfig, vars ChatVars) (string, error) {
	hospital := config.HospitalName
	if hospital == "" {
		hospital = "the hospital"
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(chatSystemPrompt),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"HospitalName": hospital,
		"Today":        vars.Today,
		"ChatHistory":  vars.ChatHistory,
		"SearchTool":   tools.ToolSearchDoctors,
		"SaveTool":     tools.ToolSaveAppointment,
		"ListTool":     tools.ToolListAppointments,
	})
	if err != nil {
		return "", fmt.Errorf("chat prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("chat prompt render: empty result")
	}
	return msgs[0].Content, nil
}
