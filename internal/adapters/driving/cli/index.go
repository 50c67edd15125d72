package cli

import (
	"bufio"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

var indexClearYes bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect or clear the vector index",
	Long: `Each embedding model has its own index under the index directory.
These commands act on the index of the configured embedding model.`,
}

var indexInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the index of the configured embedding model",
	Args:  cobra.NoArgs,
	RunE:  runIndexInfo,
}

var indexClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every entry from the index",
	Args:  cobra.NoArgs,
	RunE:  runIndexClear,
}

func init() {
	indexClearCmd.Flags().BoolVarP(&indexClearYes, "yes", "y", false, "do not ask for confirmation")
	indexCmd.AddCommand(indexInfoCmd)
	indexCmd.AddCommand(indexClearCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexInfo(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return notConfigured("index service")
	}

	info, err := indexService.Info(cmd.Context())
	if errors.Is(err, domain.ErrIndexNotFound) {
		cmd.Println("No index yet. Run 'lexrag ingest <path>' first.")
		return nil
	}
	if err != nil {
		return err
	}

	cmd.Printf("Model:      %s\n", info.Model)
	cmd.Printf("Dimensions: %d\n", info.Dimensions)
	if info.Metric != "" {
		cmd.Printf("Metric:     %s\n", info.Metric)
	}
	cmd.Printf("Entries:    %d\n", info.Entries)
	if info.Path != "" {
		cmd.Printf("Path:       %s\n", info.Path)
	}
	return nil
}

func runIndexClear(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return notConfigured("index service")
	}

	if !indexClearYes {
		cmd.Print("Remove every entry from the index? [y/N]: ")
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
		default:
			cmd.Println("Aborted.")
			return nil
		}
	}

	if err := indexService.Clear(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("Index cleared.")
	return nil
}
