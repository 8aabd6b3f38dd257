package whr

import "math"

// HasOverlap reports whether two players' confidence intervals overlap.
// An infinite CI always overlaps.
func HasOverlap(a, b PlayerRating) bool {
	if math.IsInf(a.CI95, 1) || math.IsInf(b.CI95, 1) {
		return true
	}
	return math.Abs(float64(a.Elo-b.Elo)) < a.CI95+b.CI95
}

// HasAnyOverlap reports whether player a overlaps with any other player in all.
func HasAnyOverlap(name string, a PlayerRating, all map[string]PlayerRating) bool {
	for other, rating := range all {
		if other == name {
			continue
		}
		if HasOverlap(a, rating) {
			return true
		}
	}
	return false
}

// MaxCIHalfWidth returns the maximum CI among players still overlapping at
// least one other player; 0 if every player is fully separated.
func MaxCIHalfWidth(ratings map[string]PlayerRating) float64 {
	max := 0.0
	for name, r := range ratings {
		if !HasAnyOverlap(name, r, ratings) {
			continue
		}
		if math.IsInf(r.CI95, 1) {
			return math.Inf(1)
		}
		if r.CI95 > max {
			max = r.CI95
		}
	}
	return max
}

// theoreticalPerGamePrecision is the fallback precision-per-game used when a
// player has too few matches for an empirical estimate, or when that
// estimate comes out non-positive.
const theoreticalPerGamePrecision = 0.25

// EstimateRemainingJudgments estimates the extra games needed to shrink a
// player's CI to effectiveTarget = max(ciThreshold, nonOverlapThreshold),
// under the linearization that posterior precision scales linearly with
// match count. nonOverlapThreshold may be NaN to mean "no such target".
func EstimateRemainingJudgments(ci float64, matches int, ciThreshold float64, nonOverlapThreshold float64) int {
	effectiveTarget := ciThreshold
	if !math.IsNaN(nonOverlapThreshold) && nonOverlapThreshold > effectiveTarget {
		effectiveTarget = nonOverlapThreshold
	}
	if math.IsInf(ci, 1) || ci <= effectiveTarget {
		return 0
	}

	// Precision (1/variance) is proportional to elo-scale^2/ci95^2 up to the
	// 1.96 constant; work directly in CI units via currentPrecision ~ 1/ci^2.
	currentPrecision := 1.0 / (ci * ci)
	priorPrecisionEquivalent := 1.0 / (priorVarianceCIUnits())

	perGame := theoreticalPerGamePrecision
	if matches > 2 {
		empirical := (currentPrecision - priorPrecisionEquivalent) / float64(matches)
		if empirical > 0 {
			perGame = empirical
		}
	}

	targetPrecision := 1.0 / (effectiveTarget * effectiveTarget)
	deficit := targetPrecision - currentPrecision
	if deficit <= 0 {
		return 0
	}
	return int(math.Ceil(deficit / perGame))
}

// priorVarianceCIUnits converts the prior variance into the same CI-elo
// units used above, for the empirical-precision baseline subtraction.
func priorVarianceCIUnits() float64 {
	return 1.96 * 1.96 * priorVariance * eloScale * eloScale
}

// OverlapFreeThreshold returns the tightest CI at which model stops
// overlapping every neighbor in all: for each overlapping neighbor the
// per-neighbor threshold is max(gap - neighborCi, gap/2) (the second term
// assumes both shrink equally). Returns +Inf if already separated from
// everyone, and NaN if no such finite threshold exists (a neighbor has
// infinite CI, or the gap is ~zero).
func OverlapFreeThreshold(name string, rating PlayerRating, all map[string]PlayerRating) float64 {
	tightest := math.Inf(1)
	any := false
	for other, r := range all {
		if other == name || !HasOverlap(rating, r) {
			continue
		}
		any = true
		if math.IsInf(r.CI95, 1) {
			return math.NaN()
		}
		gap := math.Abs(float64(rating.Elo - r.Elo))
		if gap < 1e-9 {
			return math.NaN()
		}
		threshold := math.Max(gap-r.CI95, gap/2)
		if threshold < tightest {
			tightest = threshold
		}
	}
	if !any {
		return math.Inf(1)
	}
	return tightest
}
