package need

import (
	"math"

	"github.com/tommoa/writing-bench/internal/whr"
)

// pairResolved reports whether (a, b) needs no more work: both models have
// at least minPairsPerModel matches, and either their CIs no longer overlap
// or both individually meet ciThreshold. When ciThreshold is 0, resolution
// is decided purely by overlap.
func pairResolved(cfg Config, a, b whr.PlayerRating) bool {
	if a.Matches < cfg.MinPairsPerModel || b.Matches < cfg.MinPairsPerModel {
		return false
	}
	if !whr.HasOverlap(a, b) {
		return true
	}
	if cfg.CIThreshold <= 0 {
		return false
	}
	return a.CI95 <= cfg.CIThreshold && b.CI95 <= cfg.CIThreshold
}

// dimensionConverged reports whether every model in ratings either meets
// the CI threshold or has no overlap with any other model, and every model
// has at least minPairsPerModel matches. An empty dimension is never
// converged -- convergence requires evidence, not absence of it.
func dimensionConverged(cfg Config, ratings map[string]whr.PlayerRating) bool {
	if len(ratings) == 0 {
		return false
	}
	for name, r := range ratings {
		if r.Matches < cfg.MinPairsPerModel {
			return false
		}
		settled := r.CI95 <= cfg.CIThreshold && cfg.CIThreshold > 0
		if !settled && whr.HasAnyOverlap(name, r, ratings) {
			return false
		}
		if !settled && math.IsInf(r.CI95, 1) {
			return false
		}
	}
	return true
}

// IsConverged reports whether every one of the three rating dimensions has
// converged.
func IsConverged(cfg Config, writing, feedback, revised map[string]whr.PlayerRating) bool {
	return dimensionConverged(cfg, writing) &&
		dimensionConverged(cfg, feedback) &&
		dimensionConverged(cfg, revised)
}
