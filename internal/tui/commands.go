package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/sidebet"
	"github.com/lox/blackjack/internal/strategy"
	"github.com/lox/blackjack/internal/table"
)

var helpLines = []string{
	"bet [amount]                 place a bet (repeats the last amount)",
	"side <kind> <amount> [hand]  side bet: perfect_pairs, 21+3, lucky_lucky,",
	"                             royal_match, over_13, under_13, exactly_13",
	"clear                        take back every bet of this round",
	"deal                         deal the round",
	"hit | h, stand | s, double | d, split | p, surrender | r",
	"insurance [amount] | no      take or decline insurance",
	"hint                         basic strategy for the active hand",
	"next                         start the next round",
	"reshuffle, rules, help, quit",
	"Enter on its own rebets and deals, declines insurance or starts the next round.",
}

// execute runs one line of player input. Errors are logged, never returned.
func (m *Model) execute(input string) tea.Cmd {
	fields := strings.Fields(strings.ToLower(input))
	if len(fields) == 0 {
		return m.proceed()
	}
	m.addLog(InfoStyle, "> "+input)

	cmd, args := fields[0], fields[1:]
	var err error
	switch cmd {
	case "quit", "exit", "q":
		m.quitting = true
		return tea.Quit
	case "help", "?":
		for _, line := range helpLines {
			m.addLog(InfoStyle, line)
		}
		return nil
	case "rules":
		m.addLog(InfoStyle, m.table.Rules().Summary())
		return nil
	case "hint":
		err = m.hint()
	case "bet", "b":
		err = m.bet(args)
	case "side":
		err = m.side(args)
	case "clear":
		if err = m.table.ClearBets(); err == nil {
			m.addLog(GameLogStyle, "Bets returned")
		}
	case "deal":
		err = m.deal()
	case "hit", "h":
		err = m.play(table.ActionHit)
	case "stand", "s":
		err = m.play(table.ActionStand)
	case "double", "d":
		err = m.play(table.ActionDouble)
	case "split", "p":
		err = m.play(table.ActionSplit)
	case "surrender", "r":
		err = m.play(table.ActionSurrender)
	case "insurance", "ins":
		err = m.insure(args)
	case "no":
		err = m.closeInsurance()
	case "next", "n":
		err = m.next()
	case "reshuffle":
		m.table.Reshuffle()
		m.addLog(WarningStyle, "Shoe reshuffled")
	default:
		err = fmt.Errorf("unknown command %q, type help", cmd)
	}

	if err != nil {
		m.logger.Debug("Command failed", "input", input, "error", err)
		m.addLog(ErrorStyle, err.Error())
		return nil
	}
	return m.advance()
}

// proceed is the empty-input shortcut for whatever comes next
func (m *Model) proceed() tea.Cmd {
	var err error
	switch {
	case m.table.InsuranceOpen():
		err = m.closeInsurance()
	case m.table.Phase() == table.Cleanup:
		err = m.next()
	case m.table.Phase() == table.Betting:
		if len(m.table.Snapshot().Hands) == 0 {
			err = m.bet(nil)
		}
		if err == nil {
			err = m.deal()
		}
	default:
		return nil
	}
	if err != nil {
		m.addLog(ErrorStyle, err.Error())
		return nil
	}
	return m.advance()
}

func parseAmount(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimPrefix(s, "$"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return n, nil
}

func (m *Model) bet(args []string) error {
	amount := m.lastBet
	if len(args) > 0 {
		var err error
		if amount, err = parseAmount(args[0]); err != nil {
			return err
		}
	}
	id, err := m.table.PlaceBet(m.cfg.Player, amount)
	if err != nil {
		return err
	}
	m.lastBet = amount
	m.lastHand = id
	m.addLog(GameLogStyle, fmt.Sprintf("Bet $%d on hand %d", amount, id))
	return nil
}

func (m *Model) side(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: side <kind> <amount> [hand]")
	}
	kind, err := sidebet.ParseKind(args[0])
	if err != nil {
		return err
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return err
	}
	id := m.lastHand
	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid hand %q", args[2])
		}
		id = table.HandID(n)
	}
	if id == 0 {
		return errors.New("place a bet before a side bet")
	}
	if _, err := m.table.PlaceSideBet(id, kind, amount); err != nil {
		return err
	}
	m.addLog(GameLogStyle, fmt.Sprintf("Side bet %s $%d on hand %d", kind, amount, id))
	return nil
}

func (m *Model) deal() error {
	before := m.table.Snapshot().Shoe.Reshuffles
	if err := m.table.Deal(); err != nil {
		return err
	}
	snap := m.table.Snapshot()
	if snap.Shoe.Reshuffles > before {
		m.addLog(WarningStyle, "Shoe reshuffled")
	}
	m.addLog(HeaderStyle, fmt.Sprintf(" Round %d ", snap.Round))
	m.addLog(GameLogStyle, "Dealer shows "+cardText(snap.Dealer.Cards))
	for _, h := range snap.Hands {
		m.addLog(GameLogStyle, fmt.Sprintf("Hand %d: %s (%s)", h.ID, cardText(h.Cards), describe(h)))
	}
	return nil
}

func (m *Model) play(a table.Action) error {
	id := m.table.ActiveHand()
	if id == 0 {
		return errors.New("no hand to play")
	}

	var err error
	switch a {
	case table.ActionHit:
		err = m.table.Hit(id)
	case table.ActionStand:
		err = m.table.Stand(id)
	case table.ActionDouble:
		err = m.table.Double(id)
	case table.ActionSplit:
		var split table.HandID
		if split, err = m.table.Split(id); err == nil {
			m.addLog(GameLogStyle, fmt.Sprintf("Hand %d split into hand %d", id, split))
		}
	case table.ActionSurrender:
		err = m.table.Surrender(id)
	}
	if err != nil {
		return err
	}

	h, err := m.handView(id)
	if err != nil {
		return err
	}
	m.addLog(GameLogStyle, fmt.Sprintf("Hand %d %s: %s (%s)", id, a, cardText(h.Cards), describe(h)))
	return nil
}

func (m *Model) handView(id table.HandID) (table.HandView, error) {
	for _, h := range m.table.Snapshot().Hands {
		if h.ID == id {
			return h, nil
		}
	}
	return table.HandView{}, fmt.Errorf("%w: %d", table.ErrUnknownHand, id)
}

// insure insures one hand and closes the insurance window. Without an
// amount the full half-bet is taken.
func (m *Model) insure(args []string) error {
	id := m.table.ActiveHand()
	if id == 0 {
		id = m.firstHand()
	}
	h, err := m.table.Hand(id)
	if err != nil {
		return err
	}
	amount := h.Amount / 2
	if len(args) > 0 {
		if amount, err = parseAmount(args[0]); err != nil {
			return err
		}
	}
	if err := m.table.TakeInsurance(id, amount); err != nil {
		return err
	}
	m.addLog(GameLogStyle, fmt.Sprintf("Insurance $%d on hand %d", amount, id))
	return m.closeInsurance()
}

func (m *Model) closeInsurance() error {
	if err := m.table.CloseInsurance(); err != nil {
		return err
	}
	snap := m.table.Snapshot()
	if snap.Phase == table.Settlement {
		m.addLog(WarningStyle, "Dealer has blackjack")
	} else {
		m.addLog(InfoStyle, "No dealer blackjack")
	}
	return nil
}

func (m *Model) firstHand() table.HandID {
	for _, h := range m.table.Snapshot().Hands {
		if h.Owner == m.cfg.Player {
			return h.ID
		}
	}
	return 0
}

func (m *Model) hint() error {
	id := m.table.ActiveHand()
	if id == 0 {
		return errors.New("no hand to play")
	}
	h, err := m.handView(id)
	if err != nil {
		return err
	}
	up := m.table.Snapshot().Dealer.Cards[0]
	d := m.basic.Decide(strategy.SituationFor(h, up))
	m.addLog(SuccessStyle, fmt.Sprintf("Hint: %s (%s)", d.Action, d.Reasoning))
	return nil
}

func (m *Model) next() error {
	before := m.table.Snapshot().Shoe.Reshuffles
	if err := m.table.StartNextRound(); err != nil {
		return err
	}
	if m.table.Snapshot().Shoe.Reshuffles > before {
		m.addLog(WarningStyle, "Cut card reached, shoe reshuffled")
	}
	m.lastHand = 0
	m.addLog(InfoStyle, "Place your bets")
	return nil
}

// advance moves the round on after a command: the dealer plays once no
// player hand is left, and a finished round is settled.
func (m *Model) advance() tea.Cmd {
	if m.table.InsuranceOpen() {
		m.addLog(WarningStyle, "Dealer shows an Ace. Insurance? (insurance [amount] / no)")
		return nil
	}
	switch m.table.Phase() {
	case table.DealerTurn:
		if m.dealing {
			return nil
		}
		m.dealing = true
		if m.cfg.DealerDelay <= 0 {
			if err := m.table.AdvanceDealer(); err != nil {
				m.dealing = false
				m.addLog(ErrorStyle, err.Error())
				return nil
			}
			m.dealing = false
			m.addLog(GameLogStyle, m.dealerLine())
			m.settle()
			return nil
		}
		return m.dealerTick()
	case table.Settlement:
		m.settle()
	}
	return nil
}

func (m *Model) dealerTick() tea.Cmd {
	return tea.Tick(m.cfg.DealerDelay, func(time.Time) tea.Msg {
		return dealerStepMsg{}
	})
}

// stepDealer plays one paced dealer step
func (m *Model) stepDealer() tea.Cmd {
	if !m.dealing {
		return nil
	}
	done, err := m.table.DealerStep()
	if err != nil {
		m.dealing = false
		m.addLog(ErrorStyle, err.Error())
		return nil
	}
	m.addLog(GameLogStyle, m.dealerLine())
	if !done {
		return m.dealerTick()
	}
	m.dealing = false
	m.settle()
	return nil
}

func (m *Model) dealerLine() string {
	d := m.table.Dealer()
	return fmt.Sprintf("Dealer: %s (%d)", cardText(d.Cards), d.Total)
}

func (m *Model) settle() {
	res, err := m.table.Settle()
	if err != nil {
		m.addLog(ErrorStyle, err.Error())
		return
	}
	if res.DealerBlackjack {
		m.addLog(GameLogStyle, "Dealer: "+cardText(res.Dealer)+" (blackjack)")
	}
	for _, h := range res.Hands {
		m.addLog(outcomeStyle(h.Payout-h.Amount), fmt.Sprintf("Hand %d %s: %d, paid $%d on $%d",
			h.Hand, h.Outcome, h.Total, h.Payout, h.Amount))
	}
	for _, sb := range res.SideBets {
		label := sb.Label
		if label == "" {
			label = "no win"
		}
		m.addLog(outcomeStyle(sb.Payout-sb.Amount), fmt.Sprintf("%s on hand %d: %s, paid $%d",
			sb.Kind, sb.Hand, label, sb.Payout))
	}
	net := res.Net[m.cfg.Player]
	balance, _ := m.table.Balance(m.cfg.Player)
	m.addLog(outcomeStyle(net), fmt.Sprintf("Net %+d, balance $%d. Enter for the next round.", net, balance))
}

func outcomeStyle(net int64) lipgloss.Style {
	switch {
	case net > 0:
		return SuccessStyle
	case net < 0:
		return ErrorStyle
	default:
		return GameLogStyle
	}
}

func cardText(cards []deck.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		if c.Rank == 0 {
			parts[i] = "??"
		} else {
			parts[i] = c.String()
		}
	}
	return strings.Join(parts, " ")
}
