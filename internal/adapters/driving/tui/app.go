package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/lexrag/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/lexrag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/lexrag/internal/adapters/driving/tui/components/transcript"
	"github.com/custodia-labs/lexrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/lexrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/lexrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// Commands typed into the input instead of a question.
const (
	commandReset = "/reset"
)

// App is the chat screen following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is passed to every turn.
	ctx context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap

	input      *input.MessageInput
	transcript *transcript.View
	status     *status.Bar
	spinner    spinner.Model

	// mode is re-resolved after prompt reloads.
	mode domain.ModeConfig

	// busy is true while a turn or reset runs.
	busy bool

	// err holds the last error that occurred.
	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the chat screen for the session in ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	mode, err := ports.Chat.Mode(ports.Session.Mode)
	if err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	bar := status.NewBar(s, km)
	bar.SetMode(modeLabel(mode))

	tr := transcript.New(s, modeLabel(mode))
	tr.SetMessages(ports.Session.History())

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = s.AssistantLabel

	return &App{
		ports:      ports,
		ctx:        context.Background(),
		styles:     s,
		keymap:     km,
		input:      input.NewMessageInput(s),
		transcript: tr,
		status:     bar,
		spinner:    sp,
		mode:       mode,
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.input.Init(),
		tea.SetWindowTitle("lexrag - "+modeLabel(a.mode)),
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case spinner.TickMsg:
		if !a.busy {
			return a, nil
		}
		a.spinner, cmd = a.spinner.Update(msg)
		a.status.SetSpinner(a.spinner.View())
		a.syncTurnState()
		return a, cmd

	case messages.TurnCompleted:
		a.finishTurn(msg)
		return a, a.input.Focus()

	case messages.SessionReset:
		a.busy = false
		a.status.Clear()
		if msg.Err != nil {
			a.fail(msg.Err)
		} else {
			a.err = nil
			a.status.SetMessage("Conversation reset.")
		}
		a.transcript.SetMessages(a.ports.Session.History())
		return a, a.input.Focus()

	case messages.PromptReloaded:
		a.reloadMode(msg.Name)
		return a, nil

	case messages.ErrorOccurred:
		a.fail(msg.Err)
		return a, nil

	case messages.Quit:
		return a, tea.Quit
	}

	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	key := msg.String()

	switch {
	case keymap.Matches(key, a.keymap.Quit):
		return a, tea.Quit
	case keymap.Matches(key, a.keymap.ScrollUp):
		a.transcript.PageUp()
		return a, nil
	case keymap.Matches(key, a.keymap.ScrollDown):
		a.transcript.PageDown()
		return a, nil
	}

	// Only scrolling and quitting are allowed while a turn runs.
	if a.busy {
		return a, nil
	}

	switch {
	case keymap.Matches(key, a.keymap.Send):
		return a, a.submit(a.input.Submit())
	case keymap.Matches(key, a.keymap.Reset):
		return a, a.startReset()
	case keymap.Matches(key, a.keymap.Cancel):
		a.input.Reset()
		return a, nil
	}

	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// submit starts a turn for text, or handles an input command.
func (a *App) submit(text string) tea.Cmd {
	switch {
	case text == "":
		return nil
	case isExit(text):
		return tea.Quit
	case strings.EqualFold(text, commandReset):
		return a.startReset()
	}

	a.busy = true
	a.err = nil
	a.status.Clear()
	a.status.SetState(status.StateGenerating)
	if a.mode.RequiresRetrieval {
		a.status.SetState(status.StateRetrieving)
	}
	a.input.Blur()

	// Show the question right away; the session appends it inside the turn.
	pending := append(a.ports.Session.History(), domain.UserMessage(text))
	a.transcript.SetMessages(pending)

	return tea.Batch(a.turnCmd(text), a.spinner.Tick)
}

func (a *App) turnCmd(text string) tea.Cmd {
	chat, session, ctx := a.ports.Chat, a.ports.Session, a.ctx
	return func() tea.Msg {
		res, err := chat.Turn(ctx, session, text)
		return messages.TurnCompleted{Input: text, Result: res, Err: err}
	}
}

func (a *App) startReset() tea.Cmd {
	a.busy = true
	a.input.Blur()
	chat, session := a.ports.Chat, a.ports.Session
	return func() tea.Msg {
		return messages.SessionReset{Err: chat.Reset(session)}
	}
}

func (a *App) finishTurn(msg messages.TurnCompleted) {
	a.busy = false
	a.status.Clear()
	a.transcript.SetMessages(a.ports.Session.History())

	if msg.Err != nil {
		a.fail(msg.Err)
		return
	}
	a.err = nil
	if msg.Result != nil {
		a.status.SetContextCount(msg.Result.Retrieved.Len())
		if a.mode.RequiresRetrieval && msg.Result.Retrieved.IsEmpty() {
			a.status.SetMessage("No matching context in the index.")
		}
	}
}

func (a *App) fail(err error) {
	a.err = err
	a.status.SetState(status.StateError)
	a.status.SetMessage(err.Error())
}

// syncTurnState mirrors the session's turn state into the status bar.
func (a *App) syncTurnState() {
	switch a.ports.Session.State() {
	case domain.TurnRetrieving:
		a.status.SetState(status.StateRetrieving)
	case domain.TurnGeneratingReply:
		a.status.SetState(status.StateGenerating)
	case domain.TurnIdle, domain.TurnAwaitingUserInput, domain.TurnError:
	}
}

// reloadMode picks up an edited prompt file for the current mode.
func (a *App) reloadMode(name string) {
	mode, err := a.ports.Chat.Mode(a.ports.Session.Mode)
	if err != nil {
		a.fail(err)
		return
	}
	a.mode = mode
	a.status.SetMode(modeLabel(mode))
	a.transcript.SetAssistant(modeLabel(mode))
	if !a.busy {
		a.status.Clear()
		a.status.SetMessage(fmt.Sprintf("Reloaded %s.", name))
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	header := a.styles.Title.Render("lexrag · " + modeLabel(a.mode))
	if a.mode.Description != "" {
		header += "\n" + a.styles.Subtitle.Render(a.mode.Description)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		a.transcript.View(),
		a.input.View(),
		a.status.View(),
	)
}

// Run starts the chat screen with the given extra program options.
func (a *App) Run(opts ...tea.ProgramOption) error {
	_, err := a.NewProgram(opts...).Run()
	return err
}

// NewProgram builds the Bubbletea program for the app. Callers that need to
// push messages from outside, e.g. prompt reload events, use Program.Send.
func (a *App) NewProgram(opts ...tea.ProgramOption) *tea.Program {
	base := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(a.ctx)}
	return tea.NewProgram(a, append(base, opts...)...)
}

// Busy reports whether a turn is running.
func (a *App) Busy() bool {
	return a.busy
}

// Mode returns the mode currently shown.
func (a *App) Mode() domain.ModeConfig {
	return a.mode
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// Transcript returns the conversation view.
func (a *App) Transcript() *transcript.View {
	return a.transcript
}

// Status returns the status bar.
func (a *App) Status() *status.Bar {
	return a.status
}

// SetDimensions lays the screen out for the given terminal size.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	// header (2) + input (3) + status (1)
	a.transcript.SetSize(width, height-6)
	a.input.SetWidth(width)
	a.status.SetWidth(width)
}

func modeLabel(m domain.ModeConfig) string {
	if m.Title != "" {
		return m.Title
	}
	return m.Name
}

func isExit(text string) bool {
	switch strings.ToLower(text) {
	case "exit", "quit":
		return true
	default:
		return false
	}
}
