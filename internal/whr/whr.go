// Package whr implements Whole History Rating: Bayesian MAP estimation of
// Bradley-Terry log-strengths via Newton's method, with centered posterior
// variances yielding 95% confidence intervals on an Elo-like scale.
package whr

import (
	"math"
	"sort"

	"github.com/tommoa/writing-bench/internal/bench"
)

const (
	priorVariance  = 0.25
	priorPrecision = 1.0 / priorVariance
	maxIterations  = 50
	convergenceTol = 1e-6

	// eloScale is 400/ln(10), the usual Bradley-Terry-to-Elo conversion factor.
	eloScale = 400.0 / math.Ln10
	eloBase  = 1500.0
)

// Game is one pairwise outcome: playerWhite vs playerBlack, with result 1.0
// (white won), 0.5 (tie), or 0.0 (black won). Weight defaults to 1.0 and is
// typically the judge-quality weight from internal/judgequality.
type Game struct {
	White  string
	Black  string
	Result float64
	Weight float64
}

// Result is the per-player outcome of a WHR run.
type Result struct {
	Ratings    map[string]PlayerRating
	Converged  bool
	Iterations int
}

// PlayerRating is one player's rating and uncertainty.
type PlayerRating struct {
	Elo     int
	CI95    float64 // math.Inf(1) if the player has zero matches
	Matches int
	Wins    float64
	Losses  float64
	Ties    float64
}

// weight returns g.Weight, defaulting to 1.0 when unset (zero value).
func (g Game) weight() float64 {
	if g.Weight == 0 {
		return 1.0
	}
	return g.Weight
}

// sigmoid is the logistic function.
func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Compute runs WHR to convergence over the given games and returns per-player
// ratings with centered 95% confidence intervals. Self-play games (white ==
// black) are skipped. Iteration order is fixed by sorting player labels, so
// the result is independent of the input game order.
func Compute(games []Game) (*Result, error) {
	filtered := make([]Game, 0, len(games))
	for _, g := range games {
		if g.White == g.Black {
			continue
		}
		filtered = append(filtered, g)
	}

	players := collectPlayers(filtered)
	if len(players) == 0 {
		return &Result{Ratings: map[string]PlayerRating{}, Converged: true}, nil
	}

	idx := make(map[string]int, len(players))
	for i, p := range players {
		idx[p] = i
	}
	n := len(players)

	r := make([]float64, n)
	converged := false
	iterations := 0

	for iterations = 0; iterations < maxIterations; iterations++ {
		grad := make([]float64, n)
		negH := newMatrix(n)
		for i := 0; i < n; i++ {
			negH.set(i, i, priorPrecision)
			grad[i] = -r[i] * priorPrecision
		}

		for _, g := range filtered {
			a, b := idx[g.White], idx[g.Black]
			p := sigmoid(r[a] - r[b])
			w := g.weight()

			grad[a] += w * (g.Result - p)
			grad[b] -= w * (g.Result - p)

			h := w * p * (1 - p)
			negH.add(a, a, h)
			negH.add(b, b, h)
			negH.add(a, b, -h)
			negH.add(b, a, -h)
		}

		delta, err := solve(negH, grad)
		if err != nil {
			return nil, &bench.ErrInternal{Detail: "WHR Newton step: " + err.Error()}
		}

		maxDelta := 0.0
		for i := range r {
			r[i] += delta[i]
			if d := math.Abs(delta[i]); d > maxDelta {
				maxDelta = d
			}
		}

		if maxDelta < convergenceTol {
			converged = true
			iterations++
			break
		}
	}

	// Center: subtract the mean so the prior's gauge mode doesn't leak into the scale.
	mean := 0.0
	for _, v := range r {
		mean += v
	}
	mean /= float64(n)
	for i := range r {
		r[i] -= mean
	}

	variances, err := centeredVariances(filtered, idx, n, r)
	if err != nil {
		return nil, err
	}

	wins, losses, ties, matches := tallyOutcomes(filtered, idx, n)

	ratings := make(map[string]PlayerRating, n)
	for _, p := range players {
		i := idx[p]
		ci95 := math.Inf(1)
		if matches[i] > 0 {
			ci95 = math.Round(1.96 * math.Sqrt(variances[i]) * eloScale)
		}
		ratings[p] = PlayerRating{
			Elo:     int(math.Round(r[i]*eloScale + eloBase)),
			CI95:    ci95,
			Matches: matches[i],
			Wins:    wins[i],
			Losses:  losses[i],
			Ties:    ties[i],
		}
	}

	return &Result{Ratings: ratings, Converged: converged, Iterations: iterations}, nil
}

// collectPlayers returns every distinct player label across games, in
// sorted order, so accumulation and output are order-independent.
func collectPlayers(games []Game) []string {
	seen := make(map[string]struct{})
	for _, g := range games {
		seen[g.White] = struct{}{}
		seen[g.Black] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func tallyOutcomes(games []Game, idx map[string]int, n int) (wins, losses, ties []float64, matches []int) {
	wins = make([]float64, n)
	losses = make([]float64, n)
	ties = make([]float64, n)
	matches = make([]int, n)
	for _, g := range games {
		a, b := idx[g.White], idx[g.Black]
		matches[a]++
		matches[b]++
		switch g.Result {
		case 1.0:
			wins[a]++
			losses[b]++
		case 0.0:
			losses[a]++
			wins[b]++
		default:
			ties[a]++
			ties[b]++
		}
	}
	return
}

// centeredVariances inverts the converged negative-Hessian to get the
// posterior covariance, then projects out the gauge mode per model so the
// reported CI reflects distinguishability rather than prior uncertainty.
func centeredVariances(games []Game, idx map[string]int, n int, r []float64) ([]float64, error) {
	negH := newMatrix(n)
	for i := 0; i < n; i++ {
		negH.set(i, i, priorPrecision)
	}
	for _, g := range games {
		a, b := idx[g.White], idx[g.Black]
		p := sigmoid(r[a] - r[b])
		h := g.weight() * p * (1 - p)
		negH.add(a, a, h)
		negH.add(b, b, h)
		negH.add(a, b, -h)
		negH.add(b, a, -h)
	}

	cov, err := invert(negH)
	if err != nil {
		return nil, &bench.ErrInternal{Detail: "WHR covariance inversion: " + err.Error()}
	}

	rowSums := make([]float64, n)
	total := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := cov.at(i, j)
			rowSums[i] += v
			total += v
		}
	}

	nf := float64(n)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := cov.at(i, i) - 2.0/nf*rowSums[i] + total/(nf*nf)
		if v < 0 {
			v = 0
		}
		out[i] = v
	}
	return out, nil
}
