package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/docbook-core-poc-v1/server/internal/agent/graph"
	"github.com/docbook-core-poc-v1/server/internal/agent/model"
	errx "github.com/docbook-core-poc-v1/server/internal/core/error"
)

var chatSession string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant from the terminal",
	Long: `Start an interactive session against the same graph the server runs.

Type /reset to forget the conversation and /exit (or Ctrl-D) to quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		runner, err := a.runner(ctx)
		if err != nil {
			return err
		}

		sessionID := chatSession
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		return chatLoop(ctx, runner, sessionID, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatSession, "session", "", "resume an existing session id")
}

func chatLoop(ctx context.Context, runner graph.Runner, sessionID string, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Session %s. Type /exit to quit.\n", sessionID)
	scanner := bufio.NewScanner(in)
	var total float64

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			if err := runner.Reset(ctx, sessionID); err != nil {
				return err
			}
			total = 0
			fmt.Fprintln(out, "Conversation cleared.")
			continue
		}

		res, err := runner.Invoke(ctx, model.QueryInput{SessionID: sessionID, Message: line})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "Error: %s\n", errx.PublicMessage(err))
			continue
		}
		total += res.CostUSD
		fmt.Fprintf(out, "%s\n(cost $%.6f, session $%.6f)\n", res.Reply, res.CostUSD, total)
	}
}
