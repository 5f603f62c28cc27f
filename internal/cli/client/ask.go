package client

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// AskRequest is the body of POST /rag.
type AskRequest struct {
	Query string `json:"query"`
}

// AskResponse is the success envelope of POST /rag.
type AskResponse struct {
	Query           string   `json:"query"`
	Response        string   `json:"response"`
	RetrievedChunks []string `json:"retrieved_chunks"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var showChunks bool

	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Ask a medical question",
		Long:  "Sends the question to the vdoc server and prints the generated answer.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			c := NewAPIClientWithCmd(cmd)

			var resp AskResponse
			if err := c.Post(cmd.Context(), "/rag", AskRequest{Query: strings.Join(args, " ")}, &resp); err != nil {
				return err
			}
			return printAnswer(cmd.OutOrStdout(), &resp, outputJSON, showChunks)
		},
	}

	cmd.Flags().BoolVar(&showChunks, "chunks", false, "Also print the retrieved context chunks")

	return cmd
}

func printAnswer(w io.Writer, resp *AskResponse, outputJSON, showChunks bool) error {
	if outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintln(w, resp.Response)
	if showChunks {
		fmt.Fprintf(w, "\nContext (%d chunks):\n", len(resp.RetrievedChunks))
		for i, c := range resp.RetrievedChunks {
			fmt.Fprintf(w, "  %d. %s\n", i+1, c)
		}
	}
	return nil
}
