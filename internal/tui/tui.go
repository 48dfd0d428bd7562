package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/strategy"
	"github.com/lox/blackjack/internal/table"
)

// Config configures the terminal table
type Config struct {
	// Player is the name the human plays under
	Player string
	// Balance is the opening balance. Zero or less uses the rules' starting
	// balance.
	Balance int64
	// DealerDelay paces dealer draws. Zero plays the dealer turn at once.
	DealerDelay time.Duration
	Logger      *log.Logger
}

// Model is the Bubble Tea model for one human player at one table
type Model struct {
	table  *table.Table
	basic  *strategy.Basic
	cfg    Config
	logger *log.Logger

	// UI components
	logViewport viewport.Model
	actionInput textinput.Model

	gameLog     []logEntry
	focusedPane int // 0 = log, 1 = input
	quitting    bool

	lastBet  int64
	lastHand table.HandID
	dealing  bool

	width       int
	height      int
	initialized bool
}

type logEntry struct {
	style lipgloss.Style
	text  string
}

// dealerStepMsg asks the model to play one dealer step
type dealerStepMsg struct{}

// New seats cfg.Player at t
func New(t *table.Table, cfg Config) (*Model, error) {
	if cfg.Player == "" {
		cfg.Player = "player"
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	balance := cfg.Balance
	if balance <= 0 {
		balance = -1
	}
	if err := t.AddPlayer(cfg.Player, balance); err != nil {
		return nil, err
	}

	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Placeholder = "bet 10, deal, hit, stand, double, split, surrender, hint, help"
	ti.Focus()
	ti.CharLimit = 100
	ti.Width = 100
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	ti.Prompt = "> "

	m := &Model{
		table:       t,
		basic:       strategy.NewBasic(t.Rules()),
		cfg:         cfg,
		logger:      cfg.Logger.WithPrefix("tui"),
		logViewport: vp,
		actionInput: ti,
		focusedPane: 1,
		lastBet:     t.Rules().Limits.MinBet,
	}
	m.addLog(HeaderStyle, " Blackjack ")
	m.addLog(InfoStyle, t.Rules().Summary())
	m.addLog(InfoStyle, "Type help for commands. Enter rebets and deals.")
	return m, nil
}

// Run runs the terminal table until the player quits or ctx ends
func Run(ctx context.Context, m *Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case dealerStepMsg:
		cmds = append(cmds, m.stepDealer())

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "tab":
			if m.focusedPane == 0 {
				m.focusedPane = 1
				m.actionInput.Focus()
			} else {
				m.focusedPane = 0
				m.actionInput.Blur()
			}
		case "enter":
			if m.focusedPane == 1 {
				input := strings.TrimSpace(m.actionInput.Value())
				m.actionInput.SetValue("")
				cmds = append(cmds, m.execute(input))
			}
		case "up", "k":
			if m.focusedPane == 0 {
				m.logViewport.ScrollUp(1)
			}
		case "down", "j":
			if m.focusedPane == 0 {
				m.logViewport.ScrollDown(1)
			}
		case "pgup":
			m.logViewport.HalfPageUp()
		case "pgdown":
			m.logViewport.HalfPageDown()
		}
	}

	var cmd tea.Cmd
	if m.focusedPane == 1 {
		m.actionInput, cmd = m.actionInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the table
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	actionContent := m.renderActionPane()
	actionHeight := lipgloss.Height(actionContent)
	actionPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#04B575")).
		Width(max(m.width-2, 1)).
		Height(max(actionHeight, 1)).
		Render(actionContent)

	sidebarContent := m.renderSidebarPane()
	sidebarWidth := max(lipgloss.Width(sidebarContent), 25)
	paneHeight := max(m.height-actionHeight-4, 1)

	sidebarPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(sidebarWidth).
		Height(paneHeight).
		Render(sidebarContent)

	logWidth := max(m.width-sidebarWidth-4, 1)
	m.logViewport.Width = logWidth
	m.logViewport.Height = paneHeight
	m.logViewport.SetContent(m.renderLogPane())
	if !m.initialized && logWidth > 1 && paneHeight > 1 {
		m.logViewport.GotoBottom()
		m.initialized = true
	}

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(logWidth).
		Height(paneHeight)
	if m.focusedPane == 0 {
		logStyle = logStyle.BorderForeground(lipgloss.Color("#04B575"))
	}
	logPane := logStyle.Render(m.logViewport.View())

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebarPane)
	return lipgloss.JoinVertical(lipgloss.Top, topRow, actionPane)
}

func (m *Model) renderLogPane() string {
	lines := make([]string, len(m.gameLog))
	for i, e := range m.gameLog {
		lines[i] = e.style.Render(e.text)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderSidebarPane() string {
	var b strings.Builder
	snap := m.table.Snapshot()

	b.WriteString(HandInfoStyle.Render(m.cfg.Player))
	b.WriteString("\n")
	b.WriteString(WarningStyle.Render(fmt.Sprintf("Balance: $%d", snap.Balances[m.cfg.Player])))
	b.WriteString("\n\n")

	b.WriteString(InfoStyle.Render(fmt.Sprintf("Round %d  %s", snap.Round, snap.Phase)))
	b.WriteString("\n")
	b.WriteString(InfoStyle.Render(fmt.Sprintf("Shoe: %d/%d left", snap.Shoe.Remaining, snap.Shoe.TotalCards)))
	b.WriteString("\n")
	if snap.Shoe.ReshuffleDue {
		b.WriteString(WarningStyle.Render("Reshuffle due"))
		b.WriteString("\n")
	}
	if len(snap.SideBets) > 0 {
		b.WriteString("\n")
		b.WriteString(InfoStyle.Render("Side bets:"))
		b.WriteString("\n")
		for _, sb := range snap.SideBets {
			b.WriteString(fmt.Sprintf("  %s $%d (%s)\n", sb.Kind, sb.Amount, sb.Status))
		}
	}
	return b.String()
}

func (m *Model) renderActionPane() string {
	var b strings.Builder
	snap := m.table.Snapshot()

	if len(snap.Dealer.Cards) > 0 {
		total := fmt.Sprintf("%d", snap.Dealer.Total)
		if snap.Dealer.HoleHidden {
			total = "?"
		}
		b.WriteString(HandInfoStyle.Render("Dealer: "))
		b.WriteString(formatCards(snap.Dealer.Cards))
		b.WriteString(HandInfoStyle.Render(" " + total))
		b.WriteString("\n")
	}

	for _, h := range snap.Hands {
		style := HandInfoStyle
		marker := "  "
		if h.ID == snap.ActiveHand {
			style = ActiveHandStyle
			marker = "> "
		}
		b.WriteString(style.Render(fmt.Sprintf("%sHand %d ($%d): ", marker, h.ID, h.Amount)))
		b.WriteString(formatCards(h.Cards))
		if len(h.Cards) > 0 {
			b.WriteString(style.Render(fmt.Sprintf(" %s %s", describe(h), h.Status)))
		}
		b.WriteString("\n")
	}

	if id := snap.ActiveHand; id != 0 {
		if legal := m.table.LegalActions(id); len(legal) > 0 {
			names := make([]string, len(legal))
			for i, a := range legal {
				names[i] = "[" + string(a) + "]"
			}
			b.WriteString(ActionsStyle.Render("Actions: " + strings.Join(names, " ")))
			b.WriteString("\n")
		}
	}

	m.actionInput.Placeholder = m.placeholder(snap.Phase)
	b.WriteString(m.actionInput.View())
	b.WriteString("\n")

	help := "Tab to scroll log • Enter to submit • Ctrl+C to quit"
	if m.focusedPane == 0 {
		help = "Log focused: ↑↓ scroll, PgUp/PgDn half page, Tab to input"
	}
	b.WriteString(InfoStyle.Render(help))
	return b.String()
}

func (m *Model) placeholder(phase table.Phase) string {
	switch {
	case m.table.InsuranceOpen():
		return "insurance [amount] or no"
	case phase == table.PlayerTurn:
		return "hit, stand, double, split, surrender, hint"
	case phase == table.Cleanup:
		return "Enter for the next round"
	case phase == table.Betting:
		return fmt.Sprintf("bet <amount>, side <kind> <amount>, deal (Enter bets $%d and deals)", m.lastBet)
	default:
		return "help for commands"
	}
}

func describe(h table.HandView) string {
	switch {
	case h.Summary.Blackjack:
		return "blackjack"
	case h.Summary.Busted:
		return fmt.Sprintf("%d bust", h.Summary.Total)
	case h.Summary.Soft:
		return fmt.Sprintf("soft %d", h.Summary.Total)
	default:
		return fmt.Sprintf("%d", h.Summary.Total)
	}
}

// formatCards formats cards with colors
func formatCards(cards []deck.Card) string {
	if len(cards) == 0 {
		return ""
	}
	formatted := make([]string, 0, len(cards))
	for _, card := range cards {
		switch {
		case card.Rank == 0:
			formatted = append(formatted, HiddenCardStyle.Render("??"))
		case card.IsRed():
			formatted = append(formatted, RedCardStyle.Render(card.String()))
		default:
			formatted = append(formatted, BlackCardStyle.Render(card.String()))
		}
	}
	return "[" + strings.Join(formatted, " ") + "]"
}

func (m *Model) addLog(style lipgloss.Style, text string) {
	m.gameLog = append(m.gameLog, logEntry{style: style, text: text})

	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.SetContent(m.renderLogPane())
		m.logViewport.GotoBottom()
	}
}

// Log returns the plain text of the game log
func (m *Model) Log() []string {
	out := make([]string, len(m.gameLog))
	for i, e := range m.gameLog {
		out[i] = e.text
	}
	return out
}
