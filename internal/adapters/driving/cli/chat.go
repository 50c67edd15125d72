package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/adapters/driving/tui"
	"github.com/custodia-labs/lexrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

var (
	chatMode  string
	chatPlain bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a persona about your documents",
	Long: `Starts a conversation in one of the chat modes (see 'lexrag modes').

Retrieval modes look up the indexed documents before every reply.
Prompt files under the configuration directory are reloaded when they
change, so a persona can be tuned while the chat is open.

On a terminal this opens the chat screen:
  Enter    - Send message
  Ctrl+R   - Reset conversation
  PgUp/Dn  - Scroll history
  Ctrl+C   - Quit

With --plain, or when output is not a terminal, messages are read line by
line. Type '/reset' to start over and 'exit' to quit.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMode, "mode", "m", "", "chat mode (default from settings)")
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "use line mode instead of the chat screen")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if chatService == nil {
		return notConfigured("chat service")
	}

	session, err := chatService.NewSession(chatMode)
	if err != nil {
		return err
	}
	logger.Debug("chat session %s in mode %s", session.ID, session.Mode)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if chatPlain || !isTerminal(cmd.OutOrStdout()) {
		watchPrompts(ctx, func(name string) {
			logger.Info("reloaded prompt %s", name)
		})
		return runPlainChat(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), session)
	}
	return runChatScreen(ctx, session)
}

func runChatScreen(ctx context.Context, session *domain.Session) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in chat screen: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("chat screen crashed: %v", r)
		}
	}()

	app, err := tui.NewApp(tui.NewPorts(chatService, session))
	if err != nil {
		return fmt.Errorf("failed to create chat screen: %w", err)
	}
	app.WithContext(ctx)

	p := app.NewProgram()
	watchPrompts(ctx, func(name string) {
		p.Send(messages.PromptReloaded{Name: name})
	})

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat screen: %w", err)
	}
	return nil
}

func runPlainChat(ctx context.Context, in io.Reader, out io.Writer, session *domain.Session) error {
	mode, err := chatService.Mode(session.Mode)
	if err != nil {
		return err
	}
	speaker := mode.Title
	if speaker == "" {
		speaker = mode.Name
	}

	fmt.Fprintf(out, "Chatting in %s mode. Type '/reset' to start over, 'exit' to quit.\n", mode.Name)
	printHistory(out, speaker, session.History())

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "\nYou> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case isExit(line):
			return nil
		case strings.EqualFold(line, "/reset"):
			if err := chatService.Reset(session); err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				continue
			}
			fmt.Fprintln(out, "Conversation reset.")
			printHistory(out, speaker, session.History())
			continue
		}

		stop := startSpinner(out, speaker+" is thinking")
		res, err := chatService.Turn(ctx, session, line)
		stop()
		if errors.Is(err, domain.ErrConfiguration) {
			return err
		}
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		printReply(out, speaker, res)
	}
}

func printHistory(out io.Writer, speaker string, history []domain.Message) {
	for _, m := range history {
		switch m.Role {
		case domain.RoleAssistant:
			fmt.Fprintf(out, "\n%s> %s\n", speaker, m.Content)
		case domain.RoleUser:
			fmt.Fprintf(out, "\nYou> %s\n", m.Content)
		case domain.RoleSystem:
		}
	}
}

func printReply(out io.Writer, speaker string, res *driving.TurnResult) {
	fmt.Fprintf(out, "\n%s> %s\n", speaker, strings.TrimSpace(res.Reply))
	if res.Retrieved.IsEmpty() {
		return
	}
	pages := make([]string, 0, res.Retrieved.Len())
	seen := make(map[int]bool)
	for _, hit := range res.Retrieved.Hits {
		if seen[hit.Chunk.Page] {
			continue
		}
		seen[hit.Chunk.Page] = true
		pages = append(pages, fmt.Sprintf("page %d", hit.Chunk.Page))
	}
	fmt.Fprintf(out, "(context: %s)\n", strings.Join(pages, ", "))
}

// watchPrompts runs the prompt watcher in the background until ctx ends.
func watchPrompts(ctx context.Context, onChange func(name string)) {
	if promptWatcher == nil {
		return
	}
	go func() {
		if err := promptWatcher(ctx, onChange); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("prompt watcher stopped: %v", err)
		}
	}()
}
