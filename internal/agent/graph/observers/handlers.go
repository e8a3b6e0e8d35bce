package observers

import (
	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	"github.com/docbook-core-poc-v1/server/pkg/metrics"
)

// NewAllCallbacks aggregates all observer handlers (prompt, model, tool) into one callbacks.Handler.
// m may be nil.
func NewAllCallbacks(m *metrics.Metrics) einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		Tool(newToolHandler(m)).
		ChatModel(newModelHandler(m)).
		Prompt(newPromptHandler()).
		Handler()
}
