package cli

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List chat modes",
	Long: `Lists the chat modes and whether they consult the vector index.

Each mode's system prompt lives in <config-dir>/prompts/mode_<name>.txt and
can be edited freely; {{context}} and {{history}} are filled in per turn.`,
	Args: cobra.NoArgs,
	RunE: runModes,
}

func init() {
	rootCmd.AddCommand(modesCmd)
}

func runModes(cmd *cobra.Command, _ []string) error {
	if chatService == nil {
		return notConfigured("chat service")
	}

	modes := chatService.Modes()
	if len(modes) == 0 {
		cmd.Println("No modes available.")
		return nil
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i].Name < modes[j].Name })

	var defaultMode string
	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil {
			defaultMode = s.Chat.Mode
		}
	}

	for _, m := range modes {
		marker := " "
		if m.Name == defaultMode {
			marker = "*"
		}
		var traits []string
		if m.RequiresRetrieval {
			traits = append(traits, "retrieval")
		}
		if m.HasPrimer() {
			traits = append(traits, "primer")
		}
		line := m.Name
		if len(traits) > 0 {
			line += " (" + strings.Join(traits, ", ") + ")"
		}
		cmd.Printf("%s %-26s %s\n", marker, line, m.Title)
		if m.Description != "" {
			cmd.Printf("    %s\n", m.Description)
		}
	}
	return nil
}

