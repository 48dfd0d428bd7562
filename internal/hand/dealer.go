package hand

import "github.com/lox/blackjack/internal/deck"

// DealerStandTotal is the total at which the dealer stops drawing
const DealerStandTotal = 17

// DealerShouldHit applies the house drawing rule: hit below 17, and on a
// soft 17 when the table hits soft 17.
func DealerShouldHit(cards []deck.Card, hitSoft17 bool) bool {
	total := Total(cards)
	if total < DealerStandTotal {
		return true
	}
	return hitSoft17 && total == DealerStandTotal && IsSoft(cards)
}
