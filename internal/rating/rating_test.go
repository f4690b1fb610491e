package rating

import (
	"testing"
	"wc3stats/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestFillLowerBound(t *testing.T) {
	est := NewConservativeEstimator()

	filled := FillLowerBound(domain.Mmr{Rating: 1500, Rd: 100}, est)
	require.Equal(t, 1300.0, filled.RatingLowerBound)

	// producer-supplied bound wins
	kept := FillLowerBound(domain.Mmr{Rating: 1500, Rd: 100, RatingLowerBound: 1420}, est)
	require.Equal(t, 1420.0, kept.RatingLowerBound)

	// no estimator, no change
	none := FillLowerBound(domain.Mmr{Rating: 1500, Rd: 100}, nil)
	require.Zero(t, none.RatingLowerBound)
}
