// Package scoring ranks candidate routes by destination output.
package scoring

import (
	"github.com/shopspring/decimal"

	"github.com/mtlprog/swaproute/internal/domain"
)

// DefaultTieThreshold is the relative output difference under which two
// candidates are considered tied.
const DefaultTieThreshold = 0.001

// Candidate is the ranking view of a route or slippage attempt.
type Candidate struct {
	ID       string
	Output   decimal.Decimal
	Slippage float64
}

// Options tunes ranking.
type Options struct {
	TieThreshold float64
}

func (o Options) threshold() decimal.Decimal {
	if o.TieThreshold <= 0 {
		return decimal.NewFromFloat(DefaultTieThreshold)
	}
	return decimal.NewFromFloat(o.TieThreshold)
}

// Compare returns a negative number when a ranks ahead of b, positive when b
// ranks ahead, and zero only for identical candidates. Outputs within the tie
// threshold prefer the lower slippage, then the lexicographically smaller id.
func Compare(a, b Candidate, opts Options) int {
	if domain.RelativeDiff(a.Output, b.Output).GreaterThanOrEqual(opts.threshold()) {
		return -a.Output.Cmp(b.Output)
	}
	return tieBreak(a, b)
}

func tieBreak(a, b Candidate) int {
	switch {
	case a.Slippage < b.Slippage:
		return -1
	case a.Slippage > b.Slippage:
		return 1
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	default:
		return 0
	}
}

// Rank orders candidates best first. Each position is filled by the
// highest-output remaining candidate, or the tie-break winner among those
// within the threshold of it, so the result does not depend on input order.
func Rank(cands []Candidate, opts Options) []Candidate {
	ranked := make([]Candidate, 0, len(cands))
	for _, i := range order(cands, opts) {
		ranked = append(ranked, cands[i])
	}
	return ranked
}

func order(cands []Candidate, opts Options) []int {
	th := opts.threshold()
	remaining := make([]int, len(cands))
	for i := range cands {
		remaining[i] = i
	}

	result := make([]int, 0, len(cands))
	for len(remaining) > 0 {
		top := decimal.Zero
		for _, i := range remaining {
			if cands[i].Output.GreaterThan(top) {
				top = cands[i].Output
			}
		}

		best := -1
		for pos, i := range remaining {
			if domain.RelativeDiff(cands[i].Output, top).GreaterThanOrEqual(th) {
				continue
			}
			if best < 0 || tieBreak(cands[i], cands[remaining[best]]) < 0 {
				best = pos
			}
		}
		if best < 0 {
			best = 0
		}

		result = append(result, remaining[best])
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return result
}

// FromRoute builds the ranking view of a route.
func FromRoute(r domain.RouterRoute) Candidate {
	return Candidate{
		ID:       r.ID,
		Output:   domain.SafeParse(r.ToToken.Amount),
		Slippage: r.Slippage,
	}
}

// Select ranks routes and returns the best one and the rest in rank order.
// ok is false when routes is empty.
func Select(routes []domain.RouterRoute, opts Options) (best domain.RouterRoute, alternates []domain.RouterRoute, ok bool) {
	if len(routes) == 0 {
		return domain.RouterRoute{}, nil, false
	}

	cands := make([]Candidate, len(routes))
	for i, r := range routes {
		cands[i] = FromRoute(r)
	}

	idx := order(cands, opts)
	best = routes[idx[0]]
	for _, i := range idx[1:] {
		alternates = append(alternates, routes[i])
	}
	return best, alternates, true
}
