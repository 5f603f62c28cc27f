package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cloo-solutions/vdoc/internal/api"
	"github.com/cloo-solutions/vdoc/internal/service"
	"github.com/spf13/cobra"
)

// DefaultQuestion is asked when no query argument is given.
const DefaultQuestion = "What are common symptoms of the flu?"

// AskCmd runs one query through the local pipeline without starting a server.
func AskCmd() *cobra.Command {
	var showStages bool

	cmd := &cobra.Command{
		Use:   "ask [query]",
		Short: "Answer a question with the local pipeline",
		Long:  "Loads the corpus and generator from the environment, answers one query and prints the JSON response envelope.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if query == "" {
				query = DefaultQuestion
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			app, err := Bootstrap(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			return ask(cmd.Context(), app.RAG, query, showStages, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&showStages, "stages", false, "Print the stages the pipeline went through")

	return cmd
}

type answerer interface {
	Answer(ctx context.Context, query string) service.Result
}

// ask prints the envelope and returns an error when the run failed, so the
// process exit status reflects the outcome.
func ask(ctx context.Context, rag answerer, query string, showStages bool, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	res := rag.Answer(ctx, query)
	_, body := api.Envelope(&res)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(body); err != nil {
		return err
	}

	if showStages {
		stages := make([]string, len(res.Trace))
		for i, st := range res.Trace {
			stages[i] = string(st)
		}
		fmt.Fprintf(out, "stages: %s\n", strings.Join(stages, " -> "))
	}

	if !res.OK() {
		return fmt.Errorf("%s failed at %s", res.Err.Code, res.FailedStage)
	}
	return nil
}
