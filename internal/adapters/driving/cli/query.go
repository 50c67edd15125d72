package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// excerptLen is how much of a matching chunk is printed.
const excerptLen = 200

var (
	queryK   int
	queryAll bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Search the index interactively",
	Long: `Finds the indexed text closest to each question and prints the best
match with its page number.

Without arguments, questions are read line by line until 'exit'.
With a question argument, it is answered once.`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryK, "top-k", "k", 0,
		fmt.Sprintf("number of chunks to retrieve (default %d)", domain.DefaultTopK))
	queryCmd.Flags().BoolVar(&queryAll, "all", false, "print every retrieved chunk, not only the best")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if retriever == nil {
		return notConfigured("retriever")
	}

	out := cmd.OutOrStdout()
	if len(args) > 0 {
		return answerQuery(cmd.Context(), out, strings.Join(args, " "), false)
	}

	fmt.Fprintln(out, "Ask a question about your documents. Type 'exit' to quit.")
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if isExit(line) {
			return nil
		}
		err := answerQuery(cmd.Context(), out, line, true)
		// Setup problems will not fix themselves between questions.
		if errors.Is(err, domain.ErrConfiguration) {
			return err
		}
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}
}

// answerQuery prints the best match for question. The interactive loop
// announces each search; a one-shot answer prints results only.
func answerQuery(ctx context.Context, out io.Writer, question string, interactive bool) error {
	logger.Section("retrieve")
	stop := func() {}
	if interactive {
		stop = startSpinner(out, "Searching")
	}
	res, err := retriever.Retrieve(ctx, question, queryK)
	stop()
	if err != nil {
		return err
	}
	if res.IsEmpty() {
		fmt.Fprintln(out, "No relevant text found.")
		return nil
	}

	hits := res.Hits
	if !queryAll {
		hits = hits[:1]
	}
	for _, hit := range hits {
		excerpt := strings.TrimSpace(hit.Chunk.Excerpt(excerptLen))
		if queryAll {
			fmt.Fprintf(out, "[page %d] (%.3f) %s\n", hit.Chunk.Page, hit.Score, excerpt)
		} else {
			fmt.Fprintf(out, "[page %d] %s\n", hit.Chunk.Page, excerpt)
		}
	}
	return nil
}

func isExit(line string) bool {
	switch strings.ToLower(line) {
	case "exit", "quit", "/exit", "/quit":
		return true
	default:
		return false
	}
}
