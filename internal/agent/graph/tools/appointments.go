package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/docbook-core-poc-v1/server/internal/agent/model"
	"github.com/docbook-core-poc-v1/server/internal/appointments"
	errx "github.com/docbook-core-poc-v1/server/internal/core/error"
	logx "github.com/docbook-core-poc-v1/server/pkg/logger"
	"github.com/docbook-core-poc-v1/server/pkg/metrics"
)

// ===================================
// Save Appointment Tool
// ===================================

type SaveAppointmentInput struct {
	Doctor  string `json:"doctor"`
	Patient string `json:"patient"`
	Date    string `json:"date"`
	Time    string `json:"time"`
}

func createSaveAppointmentTool(store appointments.Store, m *metrics.Metrics) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolSaveAppointment,
			Desc: "Save appointment details. Call only when the doctor, the patient name, the date and the time are all known.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"doctor": {
					Type:     schema.String,
					Desc:     "Doctor name exactly as listed, e.g. \"Dr. Ahmed\".",
					Required: true,
				},
				"patient": {
					Type:     schema.String,
					Desc:     "Full name of the patient.",
					Required: true,
				},
				"date": {
					Type:     schema.String,
					Desc:     "Appointment date as YYYY-MM-DD.",
					Required: true,
				},
				"time": {
					Type:     schema.String,
					Desc:     "Appointment time, e.g. \"10:00\" or \"10:00 AM\".",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *SaveAppointmentInput) (string, error) {
			var missing []string
			for _, f := range []struct{ name, value string }{
				{"doctor", in.Doctor}, {"patient", in.Patient}, {"date", in.Date}, {"time", in.Time},
			} {
				if strings.TrimSpace(f.value) == "" {
					missing = append(missing, f.name)
				}
			}
			if len(missing) > 0 {
				return fmt.Sprintf("Error: missing %s. Ask the user before booking.", strings.Join(missing, ", ")), nil
			}

			saved, err := store.Save(ctx, model.Appointment{
				Doctor:  in.Doctor,
				Patient: in.Patient,
				Date:    in.Date,
				Time:    in.Time,
			})
			if err != nil {
				if turnAborted(ctx) {
					return "", err
				}
				logx.Error().Err(err).Str("doctor", in.Doctor).Msg("saving appointment failed")
				return "Error: " + errx.PublicMessage(err) + ".", nil
			}
			m.IncAppointments()

			return fmt.Sprintf("Appointment saved for %s with %s on %s %s", saved.Patient, saved.Doctor, saved.Date, saved.Time), nil
		},
	)
}

// ===================================
// List Appointments Tool
// ===================================

type ListAppointmentsInput struct {
	Doctor string `json:"doctor,omitempty"`
}

func createListAppointmentsTool(store appointments.Store) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolListAppointments,
			Desc: "List booked appointments, optionally only for one doctor.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"doctor": {
					Type: schema.String,
					Desc: "Optional doctor name filter, e.g. \"Dr. Sara\".",
				},
			}),
		},
		func(ctx context.Context, in *ListAppointmentsInput) (string, error) {
			doctor := strings.TrimSpace(in.Doctor)
			appts, err := store.List(ctx, doctor)
			if err != nil {
				if turnAborted(ctx) {
					return "", err
				}
				logx.Error().Err(err).Str("doctor", doctor).Msg("listing appointments failed")
				return "Error: " + errx.PublicMessage(err) + ".", nil
			}
			if len(appts) == 0 {
				if doctor != "" {
					return "No appointments found for " + doctor + ".", nil
				}
				return "No appointments found.", nil
			}

			lines := make([]string, len(appts))
			for i, a := range appts {
				lines[i] = fmt.Sprintf("%s %s - %s with %s", a.Date, a.Time, a.Patient, a.Doctor)
			}
			return strings.Join(lines, "\n"), nil
		},
	)
}
