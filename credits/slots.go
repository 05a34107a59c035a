package credits

import "math/rand"

// Symbols is the slot-machine alphabet. Three reels draw from it
// independently and uniformly.
var Symbols = []string{"🍒", "🍋", "🍊", "🍇", "🍉", "🔔", "⭐", "🍀", "💎"}

// Payout table: triple, exactly one pair, all distinct.
const (
	TriplePayout = 50
	PairPayout   = 10
	MissPayout   = -10
)

// Payout classifies one draw. Any pair counts, regardless of position.
func Payout(a, b, c string) int {
	switch {
	case a == b && b == c:
		return TriplePayout
	case a == b || b == c || a == c:
		return PairPayout
	default:
		return MissPayout
	}
}

// Machine draws slot symbols. The zero value is not usable; construct with
// NewMachine.
type Machine struct {
	symbols []string
	intn    func(n int) int
}

func NewMachine() *Machine {
	//nolint:gosec // G404: game randomness, not used for security
	return &Machine{symbols: Symbols, intn: rand.Intn}
}

// Spin draws three symbols and returns them with the resulting payout.
func (m *Machine) Spin() (reels [3]string, payout int) {
	for i := range reels {
		reels[i] = m.symbols[m.intn(len(m.symbols))]
	}
	return reels, Payout(reels[0], reels[1], reels[2])
}
