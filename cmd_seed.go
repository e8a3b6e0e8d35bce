package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/docbook-core-poc-v1/server/internal/knowledge"
	logx "github.com/docbook-core-poc-v1/server/pkg/logger"
	"github.com/docbook-core-poc-v1/server/pkg/qdrant"
)

var recreate bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Index the doctor catalog into Qdrant",
	Long: `Embed the doctor catalog and index it into the Qdrant collection.

Unchanged doctors are skipped and doctors removed from the catalog are
deleted. --recreate drops the collection and its index records first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.seed(ctx, recreate)
		if err != nil {
			return err
		}

		coll, err := a.qdrant.GetCollection(ctx, a.cfg.Retrieval.Collection)
		if err != nil {
			// the index run already succeeded; the summary is informational
			logx.Warn().Err(err).Msg("could not read collection summary")
		}
		printSeedReport(cmd.OutOrStdout(), res, coll)
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&recreate, "recreate", false, "drop and recreate the collection before indexing")
}

func printSeedReport(w io.Writer, res knowledge.IndexResult, coll *qdrant.Collection) {
	fmt.Fprintf(w, "added=%d skipped=%d deleted=%d\n", res.Added, res.Skipped, res.Deleted)
	if coll == nil {
		return
	}
	fmt.Fprintf(w, "collection=%s status=%s points=%d vector_size=%d distance=%s\n",
		coll.Name, coll.Status, coll.Points, coll.VectorSize, coll.Distance)
}
