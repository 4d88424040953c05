package services

import "github.com/velolift/VeloLiftBack/internal/models"

// Depth quality bands, inches of bar travel.
const (
	depthDeep     = 15.0
	depthParallel = 12.0
	depthHigh     = 8.0
)

// RecomputeAggregates derives a set's aggregate fields from its current
// reps. Fields with no underlying samples come back nil: "no data" is a
// distinct state from zero, and a recorded 0 reading is a sample like any
// other.
func RecomputeAggregates(reps []models.Rep) models.SetAggregates {
	aggregates := models.SetAggregates{RepsCompleted: len(reps)}

	var depthSum float64
	var depthCount int
	var velocitySum float64
	var velocityCount int

	for _, rep := range reps {
		if rep.Depth != nil {
			depthSum += *rep.Depth
			depthCount++
		}
		if rep.Velocity != nil {
			velocity := *rep.Velocity
			velocitySum += velocity
			velocityCount++
			if aggregates.MinVelocity == nil || velocity < *aggregates.MinVelocity {
				aggregates.MinVelocity = ptr(velocity)
			}
			if aggregates.MaxVelocity == nil || velocity > *aggregates.MaxVelocity {
				aggregates.MaxVelocity = ptr(velocity)
			}
		}
	}

	if depthCount > 0 {
		aggregates.AvgDepth = ptr(depthSum / float64(depthCount))
	}
	if velocityCount > 0 {
		aggregates.AvgVelocity = ptr(velocitySum / float64(velocityCount))
	}
	aggregates.FatigueDrop = fatigueDrop(reps)

	return aggregates
}

// fatigueDrop is the percentage decline from the first rep with a velocity
// reading to the slowest later rep. It needs at least two readings and a
// positive baseline.
func fatigueDrop(reps []models.Rep) *float64 {
	var first *float64
	var minLater *float64
	for _, rep := range reps {
		if rep.Velocity == nil {
			continue
		}
		if first == nil {
			first = rep.Velocity
			continue
		}
		if minLater == nil || *rep.Velocity < *minLater {
			minLater = rep.Velocity
		}
	}
	if first == nil || minLater == nil || *first <= 0 {
		return nil
	}
	return ptr((*first - *minLater) / *first * 100)
}

// SpeedScore computes the rep velocity from depth and ascent time. When
// either input is missing the caller's velocity, if any, stands.
func SpeedScore(depth, timeSeconds *float64) *float64 {
	if depth == nil || timeSeconds == nil || *timeSeconds <= 0 {
		return nil
	}
	return ptr(*depth / *timeSeconds)
}

// ClassifyDepth buckets a depth reading into a quality label. Nil depth
// stays unclassified.
func ClassifyDepth(depth *float64) *string {
	if depth == nil {
		return nil
	}
	switch {
	case *depth >= depthDeep:
		return ptrString("deep")
	case *depth >= depthParallel:
		return ptrString("parallel")
	case *depth >= depthHigh:
		return ptrString("high")
	default:
		return ptrString("shallow")
	}
}

func ptr(v float64) *float64 {
	return &v
}

func ptrString(v string) *string {
	return &v
}
