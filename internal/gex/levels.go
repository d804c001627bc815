package gex

import (
	"math"
	"sort"

	"go.uber.org/zap"
)

const (
	// flipZonePct marks strikes whose |net GEX| is within this fraction of
	// the maximum as part of the flip zone.
	flipZonePct = 0.2
	// profileBandPct bounds the near-spot band for the concentration stat.
	profileBandPct = 0.05
	highGammaCount = 5
)

// LevelFinder locates structurally significant strikes in an exposure map.
type LevelFinder struct {
	// minGEXThreshold is the magnitude floor for wall candidacy. Strikes
	// below it never become a wall even when nothing else qualifies.
	minGEXThreshold float64
	logger          *zap.Logger
}

func NewLevelFinder(minGEXThreshold float64, logger *zap.Logger) *LevelFinder {
	return &LevelFinder{minGEXThreshold: minGEXThreshold, logger: logger}
}

// FindLevels derives walls, the zero-gamma flip point, the flip zone and
// the gamma profile. An empty exposure map returns zero-valued Levels
// with nil pointers; it never panics.
func (f *LevelFinder) FindLevels(exposure StrikeMap, spot float64) Levels {
	levels := Levels{}
	if len(exposure) == 0 {
		return levels
	}

	levels.CallWall = f.findWall(exposure, spot, true)
	levels.PutWall = f.findWall(exposure, spot, false)

	strikes := exposure.SortedStrikes()
	levels.ZeroGamma = findZeroGamma(strikes, exposure)
	levels.FlipZone = findFlipZone(strikes, exposure, spot)
	levels.HighGammaStrikes = topByNetGEX(exposure, highGammaCount)
	levels.Profile = gammaProfile(exposure, spot)

	return levels
}

// findWall picks the strike with maximal wall-side exposure magnitude on
// the given side of spot. Ties break toward the strike closer to spot so
// the result never depends on map iteration order.
func (f *LevelFinder) findWall(exposure StrikeMap, spot float64, callSide bool) *float64 {
	var (
		best    float64
		bestMag = -1.0
	)

	for strike, exp := range exposure {
		if callSide && strike <= spot {
			continue
		}
		if !callSide && strike >= spot {
			continue
		}

		mag := math.Abs(exp.CallGEX)
		if !callSide {
			mag = math.Abs(exp.PutGEX)
		}
		if mag < f.minGEXThreshold {
			continue
		}

		switch {
		case mag > bestMag:
			best, bestMag = strike, mag
		case mag == bestMag && math.Abs(strike-spot) < math.Abs(best-spot):
			best = strike
		}
	}

	if bestMag < 0 {
		return nil
	}
	return float64Ptr(best)
}

// findZeroGamma scans adjacent strike pairs for the first net-GEX sign
// change and linearly interpolates the crossing strike. Returns nil when
// the curve never crosses zero.
func findZeroGamma(strikes []float64, exposure StrikeMap) *float64 {
	for i := 0; i+1 < len(strikes); i++ {
		g0 := exposure[strikes[i]].NetGEX
		g1 := exposure[strikes[i+1]].NetGEX

		if g0 == 0 {
			return float64Ptr(strikes[i])
		}
		if g0*g1 >= 0 {
			continue
		}

		s0, s1 := strikes[i], strikes[i+1]
		flip := s0 + (0-g0)/(g1-g0)*(s1-s0)
		return float64Ptr(flip)
	}
	return nil
}

// findFlipZone brackets the strikes whose |net GEX| is within flipZonePct
// of the maximum observed magnitude.
func findFlipZone(strikes []float64, exposure StrikeMap, spot float64) *FlipZone {
	maxAbs := 0.0
	for _, exp := range exposure {
		if abs := math.Abs(exp.NetGEX); abs > maxAbs {
			maxAbs = abs
		}
	}
	if maxAbs == 0 {
		return nil
	}

	threshold := flipZonePct * maxAbs
	lower, upper := math.NaN(), math.NaN()
	for _, strike := range strikes {
		if math.Abs(exposure[strike].NetGEX) > threshold {
			continue
		}
		if math.IsNaN(lower) || strike < lower {
			lower = strike
		}
		if math.IsNaN(upper) || strike > upper {
			upper = strike
		}
	}
	if math.IsNaN(lower) {
		return nil
	}

	return &FlipZone{
		Lower:      lower,
		Upper:      upper,
		Width:      upper - lower,
		SpotInZone: lower <= spot && spot <= upper,
	}
}

func topByNetGEX(exposure StrikeMap, n int) []HighGammaStrike {
	all := make([]HighGammaStrike, 0, len(exposure))
	for strike, exp := range exposure {
		all = append(all, HighGammaStrike{
			Strike:       strike,
			NetGEX:       exp.NetGEX,
			DominantSide: dominantSide(exp),
		})
	}
	// Deterministic order: |net GEX| descending, strike ascending on ties.
	sort.Slice(all, func(i, j int) bool {
		ai, aj := math.Abs(all[i].NetGEX), math.Abs(all[j].NetGEX)
		if ai != aj {
			return ai > aj
		}
		return all[i].Strike < all[j].Strike
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// gammaProfile computes the GEX-magnitude-weighted skew and the near-spot
// concentration share.
func gammaProfile(exposure StrikeMap, spot float64) GammaProfile {
	profile := GammaProfile{}

	totalAbs := 0.0
	weightedStrike := 0.0
	nearSpot := 0.0

	for strike, exp := range exposure {
		abs := math.Abs(exp.NetGEX)
		totalAbs += abs
		weightedStrike += strike * abs
		if math.Abs(strike-spot)/spot <= profileBandPct {
			nearSpot += abs
		}
	}
	if totalAbs == 0 {
		return profile
	}

	profile.Skew = (weightedStrike/totalAbs - spot) / spot
	profile.Concentration = nearSpot / totalAbs
	return profile
}
