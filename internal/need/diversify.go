package need

import "math"

// diversify selects candidates greedily by descending score (candidates is
// assumed already sorted), subject to a per-canonical-pair cap of
// max(2, ceil(batchSize / numModels)), stopping once batchSize have been
// chosen. This keeps one hot pair from monopolizing an entire batch.
func diversify(candidates []Need, batchSize, numModels int) []Need {
	if batchSize <= 0 || len(candidates) == 0 {
		return nil
	}
	maxPerPair := perPairCap(batchSize, numModels)

	counts := make(map[string]int)
	out := make([]Need, 0, batchSize)
	for _, c := range candidates {
		if len(out) >= batchSize {
			break
		}
		key := c.pairKey()
		if counts[key] >= maxPerPair {
			continue
		}
		counts[key]++
		out = append(out, c)
	}
	return out
}

func perPairCap(batchSize, numModels int) int {
	if numModels <= 0 {
		return 2
	}
	c := int(math.Ceil(float64(batchSize) / float64(numModels)))
	if c < 2 {
		return 2
	}
	return c
}
