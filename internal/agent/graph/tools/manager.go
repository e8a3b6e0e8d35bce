package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/docbook-core-poc-v1/server/internal/appointments"
	"github.com/docbook-core-poc-v1/server/pkg/metrics"
)

const (
	ToolSearchDoctors    = "search_doctors"
	ToolSaveAppointment  = "save_appointment"
	ToolListAppointments = "list_appointments"
)

// Deps are the collaborators the business tools call into.
type Deps struct {
	Retriever    retriever.Retriever
	Appointments appointments.Store
	Metrics      *metrics.Metrics
}

// GetTools returns every tool the chat model may call.
func GetTools(deps Deps) ([]tool.BaseTool, error) {
	if deps.Retriever == nil {
		return nil, fmt.Errorf("tools: retriever is nil")
	}
	if deps.Appointments == nil {
		return nil, fmt.Errorf("tools: appointment store is nil")
	}
	return []tool.BaseTool{
		createSearchDoctorsTool(deps.Retriever),
		createSaveAppointmentTool(deps.Appointments, deps.Metrics),
		createListAppointmentsTool(deps.Appointments),
	}, nil
}

// GetToolInfos collects the schema of each tool for binding to a chat model.
func GetToolInfos(ctx context.Context, tools []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// turnAborted reports whether the caller gave up on the turn. Tool failures
// are otherwise handed back to the model as results; once the turn is
// cancelled or past its deadline another model call cannot help.
func turnAborted(ctx context.Context) bool {
	return ctx.Err() != nil
}
