package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure model providers, chunking, ingestion and chat options.

Use subcommands to change single keys or run the interactive wizard.
Environment variables (LEXRAG_OLLAMA_URL, OLLAMA_HOST, LEXRAG_LLM_MODEL,
LEXRAG_EMBEDDING_MODEL, OPENAI_API_KEY) override stored values.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a setting",
	Long: `Set a single setting. Run 'lexrag settings keys' for the list of keys.

Examples:
  lexrag settings set llm.model llama3.1:8b
  lexrag settings set retrieval.top_k 5
  lexrag settings set ingest.batch_interval 250ms`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Restore the default of a setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsUnset,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List setting keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure model providers and the default chat mode.`,
	RunE:  runSettingsWizard,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long: `Configure the embedding provider used for ingestion and retrieval.

Each embedding model has its own index; switching models requires
ingesting documents again.`,
	RunE: runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure chat model provider",
	RunE:  runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsUnsetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return notConfigured("settings service")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	if p := settingsService.Path(); p != "" {
		cmd.Printf("File: %s\n", p)
	}
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.Dimensions > 0 {
		cmd.Printf("  Dimensions: %d\n", settings.Embedding.Dimensions)
	} else {
		cmd.Printf("  Dimensions: (from first vector)\n")
	}
	printEndpoint(cmd, settings.Embedding.Provider, settings.Embedding.BaseURL, settings.Embedding.APIKey)
	printStatus(cmd, settings.Embedding.IsConfigured())
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	printEndpoint(cmd, settings.LLM.Provider, settings.LLM.BaseURL, settings.LLM.APIKey)
	if settings.LLM.Temperature >= 0 {
		cmd.Printf("  Temperature: %g\n", settings.LLM.Temperature)
	} else {
		cmd.Printf("  Temperature: (model default)\n")
	}
	if settings.LLM.CPUOnly {
		cmd.Printf("  CPU only: yes\n")
	}
	printStatus(cmd, settings.LLM.IsConfigured())
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Size: %d\n", settings.Chunking.ChunkSize)
	cmd.Printf("  Overlap: %d\n", settings.Chunking.Overlap)
	cmd.Println()

	cmd.Println("[Ingest]")
	cmd.Printf("  Batch size: %d\n", settings.Ingest.BatchSize)
	cmd.Printf("  Batch interval: %s\n", settings.Ingest.BatchInterval)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Top k: %d\n", settings.Retrieval.TopK)
	cmd.Println()

	cmd.Println("[Index]")
	cmd.Printf("  Directory: %s\n", settings.Index.Dir)
	cmd.Println()

	cmd.Println("[Chat]")
	cmd.Printf("  Mode: %s\n", settings.Chat.Mode)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'lexrag settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printEndpoint(cmd *cobra.Command, provider domain.AIProvider, baseURL, apiKey string) {
	if baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
}

func printStatus(cmd *cobra.Command, configured bool) {
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return notConfigured("settings service")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return err
	}
	display := value
	if strings.HasSuffix(key, "api_key") {
		display = maskAPIKey(value)
	}
	cmd.Printf("Set %s = %s\n", key, display)
	if key == "embedding.model" || key == "embedding.provider" {
		cmd.Println("Note: each embedding model has its own index. Ingest your documents again.")
	}
	return nil
}

func runSettingsUnset(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return notConfigured("settings service")
	}

	if err := settingsService.Unset(args[0]); err != nil {
		return err
	}
	cmd.Printf("Unset %s (default applies)\n", args[0])
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return notConfigured("settings service")
	}

	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return notConfigured("settings service")
	}

	cmd.Println("lexrag Settings Wizard")
	cmd.Println("======================")
	cmd.Println()

	in := cmd.InOrStdin()
	reader := bufio.NewReader(in)

	cmd.Println("Step 1: Embedding Provider")
	cmd.Println("--------------------------")
	if err := configureEmbeddingProvider(cmd, reader, in); err != nil {
		return err
	}

	cmd.Println("Step 2: Chat Model Provider")
	cmd.Println("---------------------------")
	if err := configureLLMProvider(cmd, reader, in); err != nil {
		return err
	}

	cmd.Println("Step 3: Default Chat Mode")
	cmd.Println("-------------------------")
	if err := configureChatMode(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}
	checkModels(cmd)

	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return notConfigured("settings service")
	}

	in := cmd.InOrStdin()
	if err := configureEmbeddingProvider(cmd, bufio.NewReader(in), in); err != nil {
		return err
	}
	checkModels(cmd)
	return nil
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return notConfigured("settings service")
	}

	in := cmd.InOrStdin()
	if err := configureLLMProvider(cmd, bufio.NewReader(in), in); err != nil {
		return err
	}
	checkModels(cmd)
	return nil
}

//nolint:dupl // Similar to configureLLMProvider but for embeddings
func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader, in io.Reader) error {
	provider, err := chooseProvider(cmd, reader)
	if err != nil {
		return err
	}

	defaultModel := domain.DefaultEmbeddingModels()[provider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	if err := applyProvider(cmd, "embedding", provider, model, reader, in); err != nil {
		return err
	}
	// Known models get their dimensions from the table; others pin on first insert.
	if err := settingsService.Unset("embedding.dimensions"); err != nil {
		return err
	}

	cmd.Printf("Embedding provider configured: %s (%s)\n\n", provider.Description(), model)
	return nil
}

//nolint:dupl // Similar to configureEmbeddingProvider but for chat models
func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader, in io.Reader) error {
	provider, err := chooseProvider(cmd, reader)
	if err != nil {
		return err
	}

	defaultModel := domain.DefaultLLMModels()[provider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	if err := applyProvider(cmd, "llm", provider, model, reader, in); err != nil {
		return err
	}

	cmd.Printf("Chat model provider configured: %s (%s)\n\n", provider.Description(), model)
	return nil
}

func chooseProvider(cmd *cobra.Command, reader *bufio.Reader) (domain.AIProvider, error) {
	cmd.Println("Select provider")
	providers := domain.AllProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	return providers[idx-1], nil
}

// applyProvider stores provider, model and credentials under the given prefix.
func applyProvider(
	cmd *cobra.Command, prefix string, provider domain.AIProvider, model string,
	reader *bufio.Reader, in io.Reader,
) error {
	values := [][2]string{
		{prefix + ".provider", provider.String()},
		{prefix + ".model", model},
	}

	defaultURL := domain.DefaultOllamaURL
	if !provider.IsLocal() {
		defaultURL = "https://api.openai.com/v1"
	}
	cmd.Printf("Enter base URL [%s]: ", defaultURL)
	if baseURL := readLine(reader); baseURL != "" {
		values = append(values, [2]string{prefix + ".base_url", baseURL})
	} else if err := settingsService.Unset(prefix + ".base_url"); err != nil {
		return err
	}

	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey := readPassword(reader, in)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
		values = append(values, [2]string{prefix + ".api_key", apiKey})
	}

	for _, kv := range values {
		if err := settingsService.Set(kv[0], kv[1]); err != nil {
			return fmt.Errorf("failed to configure %s provider: %w", prefix, err)
		}
	}
	return nil
}

func configureChatMode(cmd *cobra.Command, reader *bufio.Reader) error {
	if chatService == nil {
		cmd.Println("Skipped: no chat modes available.")
		cmd.Println()
		return nil
	}
	modes := chatService.Modes()
	if len(modes) == 0 {
		cmd.Println("Skipped: no chat modes available.")
		cmd.Println()
		return nil
	}

	for i, m := range modes {
		cmd.Printf("  %d. %s - %s\n", i+1, m.Name, m.Title)
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(modes), 1)
	selected := modes[idx-1]

	if err := settingsService.Set("chat.mode", selected.Name); err != nil {
		return fmt.Errorf("failed to set chat mode: %w", err)
	}
	cmd.Printf("Default chat mode: %s\n\n", selected.Name)
	return nil
}

// checkModels pings the model services when a checker is wired. Failures
// are reported, not returned, so the saved settings stay in place.
func checkModels(cmd *cobra.Command) {
	if modelChecker == nil {
		return
	}
	cmd.Print("Validating configuration... ")
	if err := modelChecker(cmd.Context()); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return
	}
	cmd.Println("OK")
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal.
func readPassword(reader *bufio.Reader, in io.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
