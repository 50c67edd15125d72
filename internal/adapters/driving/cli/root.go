package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Global flags.
var (
	verbose   bool
	configDir string
)

// Services wired by the composition root.
var (
	ingestService   driving.IngestService
	retriever       driving.Retriever
	chatService     driving.ChatService
	indexService    driving.IndexService
	settingsService driving.SettingsService
	promptWatcher   PromptWatcher
	modelChecker    func(ctx context.Context) error
	closeFn         func() error
)

// PromptWatcher reloads mode prompts when their files change, until ctx is done.
type PromptWatcher func(ctx context.Context, onChange func(name string)) error

// Services is everything the commands need.
type Services struct {
	Ingest    driving.IngestService
	Retriever driving.Retriever
	Chat      driving.ChatService
	Index     driving.IndexService
	Settings  driving.SettingsService

	// WatchPrompts is optional.
	WatchPrompts PromptWatcher

	// Check pings the configured model services. Optional.
	Check func(ctx context.Context) error

	// Close releases resources held by the services. Optional.
	Close func() error
}

// Bootstrap builds services for a configuration directory.
// An empty directory means the default location.
type Bootstrap func(configDir string) (*Services, error)

var bootstrap Bootstrap

// skipServices marks commands that run without services.
const skipServices = "skip-services"

var rootCmd = &cobra.Command{
	Use:   "lexrag",
	Short: "Chat with your documents using local models",
	Long: `lexrag indexes PDF and text documents into a local vector index and
answers questions about them with a chat model served by Ollama.

Ingest a document, then query it or start a chat:
  lexrag ingest statutes/industrial_disputes_act.pdf
  lexrag query
  lexrag chat --mode counsel`,
	SilenceUsage:      true,
	PersistentPreRunE: setupServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug output to stderr")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.lexrag)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetBootstrap installs the function that builds services once flags are parsed.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices installs services directly.
func SetServices(s *Services) {
	ingestService = s.Ingest
	retriever = s.Retriever
	chatService = s.Chat
	indexService = s.Index
	settingsService = s.Settings
	promptWatcher = s.WatchPrompts
	modelChecker = s.Check
	closeFn = s.Close
}

// Execute runs the root command and releases services afterwards.
func Execute() error {
	defer closeServices()
	return rootCmd.Execute()
}

func setupServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if cmd.Annotations[skipServices] == "true" || bootstrap == nil {
		return nil
	}
	services, err := bootstrap(configDir)
	if err != nil {
		return fmt.Errorf("initialise: %w", err)
	}
	SetServices(services)
	// Build once per process.
	bootstrap = nil
	return nil
}

func closeServices() {
	if closeFn == nil {
		return
	}
	if err := closeFn(); err != nil {
		logger.Warn("close: %v", err)
	}
	closeFn = nil
}

var errNotConfigured = errors.New("service not configured")

func notConfigured(name string) error {
	return fmt.Errorf("%s %w", name, errNotConfigured)
}

// isTerminal reports whether out is an interactive terminal.
func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
