package statistics

import (
	"fmt"
	"math"
	"sort"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/ledger"
	"github.com/lox/blackjack/internal/table"
)

// RoundResult is one settled round from a single player's point of view
type RoundResult struct {
	NetUnits  float64 // Net result in base-bet units, side bets included
	MainUnits float64 // Portion of NetUnits from primary bets
	SideUnits float64 // Portion of NetUnits from side bets
	Wagered   int64
	Returned  int64
	Seed      int64 // Seed of the table that played the round (for replay)
	DealerUp  deck.Rank
	Outcomes  []ledger.Outcome
	Doubled   bool
	Split     bool
}

// FromRound extracts player's view of a settled round. Amounts are scaled by
// unit, the base bet.
func FromRound(r table.RoundResult, player string, unit int64, seed int64) RoundResult {
	if unit <= 0 {
		unit = 1
	}
	out := RoundResult{Seed: seed}
	if len(r.Dealer) > 0 {
		out.DealerUp = r.Dealer[0].Rank
	}

	var main, side int64
	for _, h := range r.Hands {
		if h.Owner != player {
			continue
		}
		out.Outcomes = append(out.Outcomes, h.Outcome)
		out.Wagered += h.Amount
		out.Returned += h.Payout
		main += h.Payout - h.Amount
		out.Doubled = out.Doubled || h.Doubled
		out.Split = out.Split || h.Split
	}
	for _, sb := range r.SideBets {
		if sb.Owner != player {
			continue
		}
		out.Wagered += sb.Amount
		out.Returned += sb.Payout
		side += sb.Payout - sb.Amount
	}

	out.MainUnits = float64(main) / float64(unit)
	out.SideUnits = float64(side) / float64(unit)
	out.NetUnits = float64(main+side) / float64(unit)
	return out
}

// UpCardStats tracks results against one dealer up-card
type UpCardStats struct {
	Rounds    int
	SumUnits  float64
	SumUnits2 float64
}

// Statistics accumulates results across many rounds
type Statistics struct {
	Rounds    int
	SumUnits  float64
	SumUnits2 float64   // Sum of squares for variance calculation
	Values    []float64 // All values for median/percentile calculation

	Hands    int
	Wagered  int64
	Returned int64
	Outcomes map[ledger.Outcome]int

	Doubles int // Rounds with at least one doubled hand
	Splits  int // Rounds with at least one split

	// MainUnits and SideUnits must add up to AllUnits
	MainUnits float64
	SideUnits float64
	AllUnits  float64

	// Indexed by rank; Ten covers every ten-value card
	ByUpCard [deck.Ace + 1]UpCardStats

	MaxWin  float64
	MaxLoss float64
}

// Mean returns the average result in units per round
func (s *Statistics) Mean() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return s.SumUnits / float64(s.Rounds)
}

// Variance returns the sample variance of all results
func (s *Statistics) Variance() float64 {
	if s.Rounds < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.SumUnits2 - float64(s.Rounds)*mean*mean) / float64(s.Rounds-1)
}

// StdDev returns the sample standard deviation of all results
func (s *Statistics) StdDev() float64 {
	return math.Sqrt(math.Max(s.Variance(), 0))
}

// StdError returns the standard error of the mean
func (s *Statistics) StdError() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Rounds))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// HouseEdge returns the share of wagered chips the house kept
func (s *Statistics) HouseEdge() float64 {
	if s.Wagered == 0 {
		return 0
	}
	return float64(s.Wagered-s.Returned) / float64(s.Wagered)
}

func upIndex(r deck.Rank) int {
	if r >= deck.Ten && r <= deck.King {
		return int(deck.Ten)
	}
	return int(r)
}

// Add incorporates a round into the statistics
func (s *Statistics) Add(r RoundResult) {
	if s.Outcomes == nil {
		s.Outcomes = make(map[ledger.Outcome]int)
	}
	net := r.NetUnits
	s.Rounds++
	s.SumUnits += net
	s.SumUnits2 += net * net
	s.Values = append(s.Values, net)

	s.Hands += len(r.Outcomes)
	s.Wagered += r.Wagered
	s.Returned += r.Returned
	for _, o := range r.Outcomes {
		s.Outcomes[o]++
	}
	if r.Doubled {
		s.Doubles++
	}
	if r.Split {
		s.Splits++
	}

	s.MainUnits += r.MainUnits
	s.SideUnits += r.SideUnits
	s.AllUnits += net

	if idx := upIndex(r.DealerUp); idx >= int(deck.Two) && idx <= int(deck.Ace) {
		s.ByUpCard[idx].Rounds++
		s.ByUpCard[idx].SumUnits += net
		s.ByUpCard[idx].SumUnits2 += net * net
	}

	s.MaxWin = math.Max(s.MaxWin, net)
	s.MaxLoss = math.Min(s.MaxLoss, net)
}

// Merge folds other into s. Workers keep their own Statistics and merge
// at the end.
func (s *Statistics) Merge(other *Statistics) {
	if other == nil {
		return
	}
	if s.Outcomes == nil {
		s.Outcomes = make(map[ledger.Outcome]int)
	}
	s.Rounds += other.Rounds
	s.SumUnits += other.SumUnits
	s.SumUnits2 += other.SumUnits2
	s.Values = append(s.Values, other.Values...)
	s.Hands += other.Hands
	s.Wagered += other.Wagered
	s.Returned += other.Returned
	for o, n := range other.Outcomes {
		s.Outcomes[o] += n
	}
	s.Doubles += other.Doubles
	s.Splits += other.Splits
	s.MainUnits += other.MainUnits
	s.SideUnits += other.SideUnits
	s.AllUnits += other.AllUnits
	for i := range s.ByUpCard {
		s.ByUpCard[i].Rounds += other.ByUpCard[i].Rounds
		s.ByUpCard[i].SumUnits += other.ByUpCard[i].SumUnits
		s.ByUpCard[i].SumUnits2 += other.ByUpCard[i].SumUnits2
	}
	s.MaxWin = math.Max(s.MaxWin, other.MaxWin)
	s.MaxLoss = math.Min(s.MaxLoss, other.MaxLoss)
}

// Median returns the median value of all results
func (s *Statistics) Median() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// Percentile returns the value at the given percentile (0.0 to 1.0)
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// OutcomeRate returns the share of hands that ended with o
func (s *Statistics) OutcomeRate(o ledger.Outcome) float64 {
	if s.Hands == 0 {
		return 0
	}
	return float64(s.Outcomes[o]) / float64(s.Hands)
}

// UpCardMean returns the mean result against a dealer up-card rank
func (s *Statistics) UpCardMean(r deck.Rank) float64 {
	idx := upIndex(r)
	if idx < int(deck.Two) || idx > int(deck.Ace) {
		return 0
	}
	u := s.ByUpCard[idx]
	if u.Rounds == 0 {
		return 0
	}
	return u.SumUnits / float64(u.Rounds)
}

// IsLedgerBalanced checks that the primary and side-bet buckets add up
func (s *Statistics) IsLedgerBalanced() bool {
	return math.Abs(s.AllUnits-s.MainUnits-s.SideUnits) <= 1e-6
}

// Validate checks the accumulated data is internally consistent
func (s *Statistics) Validate() error {
	if !s.IsLedgerBalanced() {
		return fmt.Errorf("ledger mismatch: all=%.6f, main=%.6f, side=%.6f",
			s.AllUnits, s.MainUnits, s.SideUnits)
	}
	if s.Rounds <= 0 {
		return fmt.Errorf("invalid round count: %d", s.Rounds)
	}
	if len(s.Values) != s.Rounds {
		return fmt.Errorf("values length (%d) does not match round count (%d)", len(s.Values), s.Rounds)
	}

	outcomes := 0
	for _, n := range s.Outcomes {
		outcomes += n
	}
	if outcomes != s.Hands {
		return fmt.Errorf("outcome total (%d) does not match hand count (%d)", outcomes, s.Hands)
	}

	upCards := 0
	for _, u := range s.ByUpCard {
		upCards += u.Rounds
	}
	if upCards != s.Rounds {
		return fmt.Errorf("up-card rounds (%d) do not match round count (%d)", upCards, s.Rounds)
	}

	if s.Wagered > 0 && s.Returned < 0 {
		return fmt.Errorf("negative returns: %d", s.Returned)
	}
	return nil
}
