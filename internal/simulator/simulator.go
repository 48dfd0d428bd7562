package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/fileutil"
	"github.com/lox/blackjack/internal/ledger"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/sidebet"
	"github.com/lox/blackjack/internal/statistics"
	"github.com/lox/blackjack/internal/strategy"
	"github.com/lox/blackjack/internal/table"
	"golang.org/x/sync/errgroup"
)

const playerName = "sim"

// SideBet is a side wager placed on every simulated hand
type SideBet struct {
	Kind   sidebet.Kind
	Amount int64
}

// Config holds configuration for running simulations
type Config struct {
	Rules    config.Rules
	Rounds   int // Rounds per table
	Tables   int // Independent tables, each with its own shoe
	Workers  int // Tables played at once; defaults to the CPU count
	Hands    int // Hands the player plays each round
	Bet      int64
	SideBets []SideBet
	Player   string
	Seed     int64
	Timeout  time.Duration
	Logger   *log.Logger
	Recorder table.Recorder // Optional; receives every round from every table
	Report   string         // Optional JSON report path
}

// Simulator plays many rounds at independent tables
type Simulator struct {
	config Config
}

// New creates a new simulator, filling in defaults
func New(cfg Config) *Simulator {
	if cfg.Tables <= 0 {
		cfg.Tables = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Hands <= 0 {
		cfg.Hands = 1
	}
	if cfg.Bet <= 0 {
		cfg.Bet = cfg.Rules.Limits.MinBet
	}
	if cfg.Player == "" {
		cfg.Player = "basic"
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	return &Simulator{config: cfg}
}

// Run plays every table and returns the merged statistics. Tables are
// seeded from Config.Seed, so equal configs give equal results.
func (s *Simulator) Run(ctx context.Context) (*statistics.Statistics, error) {
	cfg := s.config
	if cfg.Rounds <= 0 {
		return nil, fmt.Errorf("simulator: rounds must be positive, got %d", cfg.Rounds)
	}
	if err := cfg.Rules.Validate(); err != nil {
		return nil, err
	}
	if cfg.Hands > table.MaxHands {
		return nil, fmt.Errorf("simulator: at most %d hands per round, got %d", table.MaxHands, cfg.Hands)
	}
	if _, err := strategy.New(cfg.Player, cfg.Rules, randutil.New(cfg.Seed)); err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	started := time.Now()
	results := make([]*statistics.Statistics, cfg.Tables)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range cfg.Tables {
		seed := randutil.Derive(cfg.Seed, i)
		g.Go(func() error {
			stats, err := s.playTable(ctx, i, seed)
			if err != nil {
				return fmt.Errorf("table %d (seed %d): %w", i, seed, err)
			}
			results[i] = stats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &statistics.Statistics{}
	for _, r := range results {
		stats.Merge(r)
	}
	if err := stats.Validate(); err != nil {
		return nil, fmt.Errorf("statistics validation failed: %w", err)
	}

	elapsed := time.Since(started)
	low, high := stats.ConfidenceInterval95()
	cfg.Logger.Info("Simulation complete",
		"rounds", stats.Rounds,
		"tables", cfg.Tables,
		"player", cfg.Player,
		"mean", fmt.Sprintf("%.4f", stats.Mean()),
		"ci95", fmt.Sprintf("[%.4f, %.4f]", low, high),
		"elapsed", elapsed.Round(time.Millisecond))

	if cfg.Report != "" {
		if err := fileutil.WriteJSONAtomic(cfg.Report, NewReport(cfg, stats, elapsed), 0o644); err != nil {
			return stats, fmt.Errorf("writing report: %w", err)
		}
	}
	return stats, nil
}

// bankroll is enough for every round to lose the most it can
func (s *Simulator) bankroll() int64 {
	cfg := s.config
	worst := cfg.Bet * 2 * int64(cfg.Rules.MaxSplitHands+1)
	worst += cfg.Bet / 2 // insurance
	for _, sb := range cfg.SideBets {
		worst += sb.Amount
	}
	return worst * int64(cfg.Hands) * int64(cfg.Rounds+1)
}

func (s *Simulator) playTable(ctx context.Context, index int, seed int64) (*statistics.Statistics, error) {
	cfg := s.config
	logger := cfg.Logger.With("table", index)

	opts := []table.Option{
		table.WithRNG(randutil.New(seed)),
		table.WithLogger(logger),
		table.WithHistoryLimit(0),
	}
	if cfg.Recorder != nil {
		opts = append(opts, table.WithRecorder(cfg.Recorder))
	}
	tbl, err := table.New(cfg.Rules, opts...)
	if err != nil {
		return nil, err
	}
	if err := tbl.AddPlayer(playerName, s.bankroll()); err != nil {
		return nil, err
	}
	player, err := strategy.New(cfg.Player, cfg.Rules, randutil.New(randutil.Derive(seed, 1)))
	if err != nil {
		return nil, err
	}

	stats := &statistics.Statistics{}
	for range cfg.Rounds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := s.playRound(ctx, tbl, player)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", tbl.Round(), err)
		}
		stats.Add(statistics.FromRound(*res, playerName, cfg.Bet, seed))
		if err := tbl.StartNextRound(); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func (s *Simulator) playRound(ctx context.Context, tbl *table.Table, player strategy.Player) (*table.RoundResult, error) {
	cfg := s.config
	for range cfg.Hands {
		id, err := tbl.PlaceBet(playerName, cfg.Bet)
		if err != nil {
			return nil, err
		}
		for _, sb := range cfg.SideBets {
			if _, err := tbl.PlaceSideBet(id, sb.Kind, sb.Amount); err != nil {
				return nil, err
			}
		}
	}
	if err := tbl.Deal(); err != nil {
		return nil, err
	}

	for tbl.Phase() == table.PlayerTurn {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if tbl.InsuranceOpen() {
			if err := tbl.DeclineInsurance(); err != nil {
				return nil, err
			}
			continue
		}

		id := tbl.ActiveHand()
		snap := tbl.Snapshot()
		var view table.HandView
		for _, h := range snap.Hands {
			if h.ID == id {
				view = h
				break
			}
		}
		d := player.Decide(strategy.SituationFor(view, snap.Dealer.Cards[0]))
		if err := retryOnReshuffle(tbl, func() error { return Apply(tbl, id, d.Action) }); err != nil {
			return nil, fmt.Errorf("%s on hand %d: %w", d.Action, id, err)
		}
	}

	if tbl.Phase() == table.DealerTurn {
		if err := retryOnReshuffle(tbl, tbl.AdvanceDealer); err != nil {
			return nil, err
		}
	}
	return tbl.Settle()
}

// retryOnReshuffle runs fn, reshuffling once if the shoe ran out under it
func retryOnReshuffle(tbl *table.Table, fn func() error) error {
	err := fn()
	if errors.Is(err, deck.ErrShoeExhausted) {
		tbl.Reshuffle()
		err = fn()
	}
	return err
}

// Apply performs a player action on a hand
func Apply(tbl *table.Table, id table.HandID, a table.Action) error {
	switch a {
	case table.ActionHit:
		return tbl.Hit(id)
	case table.ActionStand:
		return tbl.Stand(id)
	case table.ActionDouble:
		return tbl.Double(id)
	case table.ActionSplit:
		_, err := tbl.Split(id)
		return err
	case table.ActionSurrender:
		return tbl.Surrender(id)
	default:
		return fmt.Errorf("%w: %q cannot be applied to a hand", table.ErrIllegalAction, a)
	}
}

// Report is the JSON summary of a simulation
type Report struct {
	Rules      string             `json:"rules"`
	Player     string             `json:"player"`
	Seed       int64              `json:"seed"`
	Tables     int                `json:"tables"`
	Rounds     int                `json:"rounds"`
	Hands      int                `json:"hands"`
	Bet        int64              `json:"bet"`
	Mean       float64            `json:"mean_units"`
	StdDev     float64            `json:"stddev_units"`
	CI95       [2]float64         `json:"ci95_units"`
	HouseEdge  float64            `json:"house_edge"`
	MainUnits  float64            `json:"main_units"`
	SideUnits  float64            `json:"side_units"`
	Outcomes   map[string]float64 `json:"outcome_rates"`
	DoubleRate float64            `json:"double_rate"`
	SplitRate  float64            `json:"split_rate"`
	ByUpCard   map[string]float64 `json:"mean_by_up_card"`
	Elapsed    string             `json:"elapsed"`
}

// NewReport builds a Report from merged statistics
func NewReport(cfg Config, stats *statistics.Statistics, elapsed time.Duration) Report {
	low, high := stats.ConfidenceInterval95()
	r := Report{
		Rules:     cfg.Rules.Summary(),
		Player:    cfg.Player,
		Seed:      cfg.Seed,
		Tables:    cfg.Tables,
		Rounds:    stats.Rounds,
		Hands:     stats.Hands,
		Bet:       cfg.Bet,
		Mean:      stats.Mean(),
		StdDev:    stats.StdDev(),
		CI95:      [2]float64{low, high},
		HouseEdge: stats.HouseEdge(),
		MainUnits: stats.MainUnits,
		SideUnits: stats.SideUnits,
		Outcomes:  map[string]float64{},
		ByUpCard:  map[string]float64{},
		Elapsed:   elapsed.Round(time.Millisecond).String(),
	}
	if stats.Rounds > 0 {
		r.DoubleRate = float64(stats.Doubles) / float64(stats.Rounds)
		r.SplitRate = float64(stats.Splits) / float64(stats.Rounds)
	}
	for o := range stats.Outcomes {
		r.Outcomes[o.String()] = stats.OutcomeRate(o)
	}
	for _, rank := range upCards {
		if stats.ByUpCard[rank].Rounds > 0 {
			r.ByUpCard[rank.String()] = stats.UpCardMean(rank)
		}
	}
	return r
}

var upCards = []deck.Rank{deck.Two, deck.Three, deck.Four, deck.Five, deck.Six, deck.Seven, deck.Eight, deck.Nine, deck.Ten, deck.Ace}

// PrintSummary writes a human-readable summary of simulation results
func PrintSummary(w io.Writer, stats *statistics.Statistics, player string) {
	low, high := stats.ConfidenceInterval95()

	fmt.Fprintf(w, "\n=== FINAL RESULTS for %s player ===\n", player)
	fmt.Fprintf(w, "Rounds played: %d (%d hands)\n", stats.Rounds, stats.Hands)

	fmt.Fprintf(w, "\n=== STATISTICAL RESULTS ===\n")
	fmt.Fprintf(w, "Mean: %.4f units/round\n", stats.Mean())
	fmt.Fprintf(w, "Median: %.4f units/round\n", stats.Median())
	fmt.Fprintf(w, "Std Dev: %.4f units\n", stats.StdDev())
	fmt.Fprintf(w, "Std Error: %.4f units\n", stats.StdError())
	fmt.Fprintf(w, "95%% CI: [%.4f, %.4f] units/round\n", low, high)
	fmt.Fprintf(w, "House edge: %.3f%% of chips wagered\n", stats.HouseEdge()*100)
	fmt.Fprintf(w, "Biggest win: %.1f units, biggest loss: %.1f units\n", stats.MaxWin, stats.MaxLoss)

	fmt.Fprintf(w, "\n=== OUTCOMES ===\n")
	for _, o := range []ledger.Outcome{ledger.Win, ledger.BlackjackWin, ledger.Push, ledger.Loss, ledger.Surrender} {
		fmt.Fprintf(w, "%-10s %6.2f%%\n", o.String()+":", stats.OutcomeRate(o)*100)
	}
	if stats.Rounds > 0 {
		fmt.Fprintf(w, "Rounds with a double: %.2f%%, with a split: %.2f%%\n",
			float64(stats.Doubles)/float64(stats.Rounds)*100,
			float64(stats.Splits)/float64(stats.Rounds)*100)
	}
	if stats.SideUnits != 0 {
		fmt.Fprintf(w, "Primary bets: %.2f units, side bets: %.2f units\n", stats.MainUnits, stats.SideUnits)
	}

	fmt.Fprintf(w, "\n=== DEALER UP-CARD ANALYSIS ===\n")
	for _, rank := range upCards {
		u := stats.ByUpCard[rank]
		if u.Rounds > 0 {
			fmt.Fprintf(w, "Dealer %s: %d rounds, %.3f units/round\n", rank, u.Rounds, stats.UpCardMean(rank))
		}
	}
}
