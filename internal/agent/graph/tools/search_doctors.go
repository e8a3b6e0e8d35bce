package tools

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	logx "github.com/docbook-core-poc-v1/server/pkg/logger"
)

// ===================================
// Search Doctors Tool
// ===================================

type SearchDoctorsInput struct {
	Query string `json:"query"`
}

const noDoctorsFound = "No matching doctors found."

func createSearchDoctorsTool(r retriever.Retriever) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolSearchDoctors,
			Desc: "Get doctor information from the hospital's doctor database. " +
				"Use ONLY when the user provides a clear symptom or condition (e.g. \"chest pain\", \"skin rash\") or names a specialty. " +
				"Do NOT call this tool for vague inputs like \"I am sick\"; ask follow-up questions first.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     schema.String,
					Desc:     "The symptom, condition or specialty to search for, in the user's words.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *SearchDoctorsInput) (string, error) {
			query := strings.TrimSpace(in.Query)
			if query == "" {
				return "Error: query is required.", nil
			}

			docs, err := r.Retrieve(ctx, query)
			if err != nil {
				if turnAborted(ctx) {
					return "", err
				}
				logx.Error().Err(err).Str("query", query).Msg("doctor search failed")
				return "Error: the doctor directory is unavailable right now.", nil
			}

			contents := make([]string, 0, len(docs))
			for _, d := range docs {
				if d == nil || strings.TrimSpace(d.Content) == "" {
					continue
				}
				contents = append(contents, d.Content)
			}
			if len(contents) == 0 {
				return noDoctorsFound, nil
			}
			return strings.Join(contents, "\n"), nil
		},
	)
}
