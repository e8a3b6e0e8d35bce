package prompts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docbook-core-poc-v1/server/internal/agent/model"
)

func TestRenderChatSystem(t *testing.T) {
	out, err := RenderChatSystem(context.Background(), model.PromptConfig{HospitalName: "City Care Hospital"}, ChatVars{
		Today:       "2025-08-28",
		ChatHistory: "Human: I have chest pain\nAI: Dr. Ahmed can help.",
	})
	require.NoError(t, err)

	assert.Contains(t, out, "City Care Hospital")
	assert.Contains(t, out, "Today is 2025-08-28.")
	assert.Contains(t, out, "search_doctors: look up doctors")
	assert.Contains(t, out, `"Appointment booked for [Patient] with [Doctor] on [Date/Time]."`)
	assert.Contains(t, out, `"[Time] - [Patient] with [Doctor]"`)
	assert.Contains(t, out, "Human: I have chest pain\nAI: Dr. Ahmed can help.")
	assert.NotContains(t, out, "{{")
}

func TestRenderChatSystemWithoutHistory(t *testing.T) {
	out, err := RenderChatSystem(context.Background(), model.PromptConfig{}, ChatVars{Today: "2025-08-28"})
	require.NoError(t, err)
	assert.Contains(t, out, "(no previous messages)")
	assert.Contains(t, out, "the hospital")
}
