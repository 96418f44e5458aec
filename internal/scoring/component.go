package scoring

import "github.com/mikedmote52/amc-discovery/internal/domain"

// weightedMissingThreshold is the spec's "> 40% of component weight unknown"
// rule: a bucket is marked unknown once the known weight fraction drops
// below this value.
const weightedMissingThreshold = 0.60

// component is one weighted input to a sub-score, already mapped into
// [0,100]; value is unknown if its underlying field was unknown.
type component struct {
	value  domain.Unknown[float64]
	weight float64
}

// combine computes the weight-renormalized score over known components and
// reports whether the known weight fraction clears the missing-data
// threshold. Mirrors the composite-level renormalization rule at the
// sub-score level.
func combine(components []component) (score float64, known bool) {
	var totalWeight, knownWeight, weightedSum float64
	for _, c := range components {
		totalWeight += c.weight
		if v, ok := c.value.Get(); ok {
			knownWeight += c.weight
			weightedSum += c.weight * v
		}
	}
	if totalWeight == 0 || knownWeight/totalWeight < weightedMissingThreshold {
		return 0, false
	}
	return weightedSum / knownWeight, true
}

func boolScore(v domain.Unknown[bool]) domain.Unknown[float64] {
	b, ok := v.Get()
	if !ok {
		return domain.UnknownValue[float64]()
	}
	if b {
		return domain.Known(100.0)
	}
	return domain.Known(0.0)
}
