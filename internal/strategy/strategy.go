// Package strategy decides player actions. Players pick from the actions
// the table reports as legal, so a decision never needs re-validating.
package strategy

import (
	"fmt"
	rand "math/rand/v2"
	"slices"
	"strings"

	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/hand"
	"github.com/lox/blackjack/internal/table"
)

// Decision is an action and a short reason for it
type Decision struct {
	Action    table.Action
	Reasoning string
}

// Situation is everything a player sees when acting on a hand
type Situation struct {
	Cards    []deck.Card
	DealerUp deck.Card
	Legal    []table.Action
	Split    bool
}

// SituationFor builds a Situation from a snapshot hand view
func SituationFor(h table.HandView, up deck.Card) Situation {
	return Situation{Cards: h.Cards, DealerUp: up, Legal: h.Legal, Split: h.Split}
}

func (s Situation) can(a table.Action) bool {
	return slices.Contains(s.Legal, a)
}

// Player chooses an action for a hand
type Player interface {
	Decide(s Situation) Decision
}

// Names lists the built-in players
var Names = []string{"basic", "dealer", "never-bust", "random"}

// New returns the named built-in player. The rng is only used by the
// random player.
func New(name string, rules config.Rules, rng *rand.Rand) (Player, error) {
	switch strings.ToLower(name) {
	case "basic":
		return NewBasic(rules), nil
	case "dealer", "mimic":
		return MimicDealer{HitSoft17: rules.DealerHitsSoft17}, nil
	case "never-bust", "neverbust":
		return NeverBust{}, nil
	case "random", "rand":
		if rng == nil {
			return nil, fmt.Errorf("random player needs a random source")
		}
		return &Random{rng: rng}, nil
	default:
		return nil, fmt.Errorf("unknown player %q (want one of %s)", name, strings.Join(Names, ", "))
	}
}

// MimicDealer plays the house rule: hit below 17, and on soft 17 when the
// dealer would.
type MimicDealer struct {
	HitSoft17 bool
}

func (m MimicDealer) Decide(s Situation) Decision {
	if hand.DealerShouldHit(s.Cards, m.HitSoft17) && s.can(table.ActionHit) {
		return Decision{Action: table.ActionHit, Reasoning: "mimic dealer hitting"}
	}
	return Decision{Action: table.ActionStand, Reasoning: "mimic dealer standing"}
}

// NeverBust stands on any total a hit could bust
type NeverBust struct{}

func (NeverBust) Decide(s Situation) Decision {
	if hand.HardTotal(s.Cards) <= 11 && s.can(table.ActionHit) {
		return Decision{Action: table.ActionHit, Reasoning: "never-bust hitting"}
	}
	return Decision{Action: table.ActionStand, Reasoning: "never-bust standing"}
}

// Random picks uniformly among the legal actions, never insurance
type Random struct {
	rng *rand.Rand
}

func (r *Random) Decide(s Situation) Decision {
	choices := make([]table.Action, 0, len(s.Legal))
	for _, a := range s.Legal {
		if a != table.ActionInsurance {
			choices = append(choices, a)
		}
	}
	if len(choices) == 0 {
		return Decision{Action: table.ActionStand, Reasoning: "random with nothing legal"}
	}
	return Decision{Action: choices[r.rng.IntN(len(choices))], Reasoning: "random"}
}
