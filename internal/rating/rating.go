// Package rating isolates the rating-system formulas this service does not
// own. The matchmaking service computes ratings; we only fill gaps.
package rating

import "wc3stats/internal/domain"

// LowerBoundEstimator derives a conservative rating estimate from a rating
// and its deviation. The exact formula belongs to the external rating
// system, so it is pluggable rather than inlined.
type LowerBoundEstimator interface {
	LowerBound(rating, rd float64) float64
}

// ConservativeEstimator is the default estimator: a Glicko-style pessimistic
// bound a fixed number of deviations below the rating.
type ConservativeEstimator struct {
	Deviations float64
}

func NewConservativeEstimator() *ConservativeEstimator {
	return &ConservativeEstimator{Deviations: 2}
}

func (e *ConservativeEstimator) LowerBound(rating, rd float64) float64 {
	return rating - e.Deviations*rd
}

// FillLowerBound returns the Mmr with RatingLowerBound populated from the
// estimator when the producer omitted it. Producer-supplied values are never
// overridden.
func FillLowerBound(m domain.Mmr, est LowerBoundEstimator) domain.Mmr {
	if m.RatingLowerBound != 0 || est == nil {
		return m
	}
	m.RatingLowerBound = est.LowerBound(m.Rating, m.Rd)
	return m
}
