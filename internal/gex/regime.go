package gex

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// RegimeThresholds are the dollar-notional breakpoints for regime and
// magnitude classification. Bucket boundaries are inclusive of their
// lower threshold: |net GEX| equal to High classifies as "high".
type RegimeThresholds struct {
	// Negligible bounds the neutral band around zero.
	Negligible float64
	Moderate   float64
	High       float64
	Extreme    float64
}

// DefaultRegimeThresholds are tuned for index-scale notional exposure.
func DefaultRegimeThresholds() RegimeThresholds {
	return RegimeThresholds{
		Negligible: 1e6,
		Moderate:   500e6,
		High:       1e9,
		Extreme:    5e9,
	}
}

// RegimeAnalyzer interprets a calculated Result into a trading posture.
// Each call is independent: no state survives between analyses.
type RegimeAnalyzer struct {
	thresholds RegimeThresholds
	logger     *zap.Logger
}

func NewRegimeAnalyzer(thresholds RegimeThresholds, logger *zap.Logger) *RegimeAnalyzer {
	if thresholds.Moderate <= 0 {
		thresholds = DefaultRegimeThresholds()
	}
	return &RegimeAnalyzer{thresholds: thresholds, logger: logger}
}

// Analyze classifies regime, magnitude and directional bias, and derives
// the qualitative read, recommendations and risk flags.
func (a *RegimeAnalyzer) Analyze(result *Result, spot float64) RegimeAnalysis {
	regime := a.classifyRegime(result.NetGEX)
	magnitude := a.classifyMagnitude(result.NetGEX)
	bias := classifyBias(regime, result.Levels, spot)

	analysis := RegimeAnalysis{
		Regime:           regime,
		Magnitude:        magnitude,
		Bias:             bias,
		ExpectedBehavior: expectedBehavior(regime, magnitude, bias),
		Recommendations:  a.recommend(regime, magnitude, bias, result, spot),
		RiskMetrics:      a.riskMetrics(regime, result, spot),
		Confidence:       a.confidence(magnitude, result),
	}

	a.logger.Debug("regime analysis",
		zap.String("regime", string(regime)),
		zap.String("magnitude", string(magnitude)),
		zap.String("bias", string(bias)),
		zap.Float64("netGEX", result.NetGEX),
		zap.Float64("confidence", analysis.Confidence))

	return analysis
}

func (a *RegimeAnalyzer) classifyRegime(netGEX float64) Regime {
	if math.Abs(netGEX) < a.thresholds.Negligible {
		return RegimeNeutral
	}
	if netGEX > 0 {
		return RegimePositive
	}
	return RegimeNegative
}

func (a *RegimeAnalyzer) classifyMagnitude(netGEX float64) Magnitude {
	abs := math.Abs(netGEX)
	switch {
	case abs >= a.thresholds.Extreme:
		return MagnitudeExtreme
	case abs >= a.thresholds.High:
		return MagnitudeHigh
	case abs >= a.thresholds.Moderate:
		return MagnitudeModerate
	default:
		return MagnitudeLow
	}
}

// classifyBias positions spot inside the put-wall/call-wall range. A
// missing wall or a degenerate range yields a neutral bias.
func classifyBias(regime Regime, levels Levels, spot float64) Bias {
	if levels.CallWall == nil || levels.PutWall == nil {
		return BiasNeutral
	}
	span := *levels.CallWall - *levels.PutWall
	if span <= 0 {
		return BiasNeutral
	}
	position := (spot - *levels.PutWall) / span

	switch regime {
	case RegimePositive:
		switch {
		case position < 0.2:
			return BiasSupportTest
		case position > 0.8:
			return BiasResistanceTest
		default:
			return BiasRangeBound
		}
	case RegimeNegative:
		switch {
		case position < 0.3:
			return BiasBearish
		case position > 0.7:
			return BiasBullish
		default:
			return BiasVolatile
		}
	default:
		return BiasNeutral
	}
}

func expectedBehavior(regime Regime, magnitude Magnitude, bias Bias) ExpectedBehavior {
	var behavior ExpectedBehavior
	switch regime {
	case RegimePositive:
		behavior = ExpectedBehavior{
			Volatility:          "dampened",
			TrendStrength:       "weak",
			ReversalProbability: "high",
		}
		if magnitude == MagnitudeExtreme {
			behavior.Volatility = "heavily suppressed"
			behavior.ReversalProbability = "very high"
		}
	case RegimeNegative:
		behavior = ExpectedBehavior{
			Volatility:          "amplified",
			TrendStrength:       "strong",
			ReversalProbability: "low",
		}
		if magnitude == MagnitudeExtreme {
			behavior.Volatility = "explosive"
			behavior.TrendStrength = "very strong"
		}
	default:
		behavior = ExpectedBehavior{
			Volatility:          "normal",
			TrendStrength:       "undetermined",
			ReversalProbability: "moderate",
		}
	}
	behavior.Note = fmt.Sprintf("bias: %s", bias)
	return behavior
}

// recommend builds the ordered strategy list. Positive regimes favor
// premium selling, negative regimes favor directional structures;
// proximity to a wall adds a pinning note and extreme magnitude appends
// a sizing warning.
func (a *RegimeAnalyzer) recommend(regime Regime, magnitude Magnitude, bias Bias, result *Result, spot float64) []Recommendation {
	var recs []Recommendation

	switch regime {
	case RegimePositive:
		recs = append(recs, Recommendation{
			Strategy:   "iron_condor",
			Rationale:  "positive gamma dampens realized volatility; premium selling benefits from range-bound price action",
			Confidence: 0.7,
		})
		if bias == BiasRangeBound {
			recs = append(recs, Recommendation{
				Strategy:   "credit_spread",
				Rationale:  "spot mid-range between walls; short premium against either wall",
				Confidence: 0.6,
			})
		}
	case RegimeNegative:
		recs = append(recs, Recommendation{
			Strategy:   "directional_debit_spread",
			Rationale:  "negative gamma amplifies moves; defined-risk directional exposure captures trend extension",
			Confidence: 0.65,
		})
		if bias == BiasVolatile {
			recs = append(recs, Recommendation{
				Strategy:   "long_straddle",
				Rationale:  "spot mid-range in a negative gamma regime; breakout direction undetermined",
				Confidence: 0.55,
			})
		}
	default:
		recs = append(recs, Recommendation{
			Strategy:   "stand_aside",
			Rationale:  "net exposure below the negligible threshold; no structural edge",
			Confidence: 0.5,
		})
	}

	if wall := nearestWall(result.Levels, spot); wall != nil {
		recs = append(recs, Recommendation{
			Strategy:   "pin_watch",
			Rationale:  fmt.Sprintf("spot within 1%% of the %.2f wall; hedging flow may pin price into expiry", *wall),
			Confidence: 0.5,
		})
	}

	if magnitude == MagnitudeExtreme {
		recs = append(recs, Recommendation{
			Strategy:   "reduce_position_size",
			Rationale:  "extreme net exposure; dealer hedging can dominate flow and gap through levels",
			Confidence: 0.8,
		})
	}

	return recs
}

func nearestWall(levels Levels, spot float64) *float64 {
	const pinBandPct = 0.01
	var nearest *float64
	for _, wall := range []*float64{levels.CallWall, levels.PutWall} {
		if wall == nil {
			continue
		}
		if math.Abs(*wall-spot)/spot > pinBandPct {
			continue
		}
		if nearest == nil || math.Abs(*wall-spot) < math.Abs(*nearest-spot) {
			nearest = wall
		}
	}
	return nearest
}

func (a *RegimeAnalyzer) riskMetrics(regime Regime, result *Result, spot float64) RiskMetrics {
	metrics := RiskMetrics{
		GammaFlipRisk:           "low",
		VolatilityExpansionRisk: "low",
		GapRisk:                 "low",
		LiquidityRisk:           "low",
	}

	if result.Levels.ZeroGamma != nil {
		distance := math.Abs(*result.Levels.ZeroGamma-spot) / spot
		switch {
		case distance < 0.01:
			metrics.GammaFlipRisk = "high"
		case distance < 0.02:
			metrics.GammaFlipRisk = "moderate"
		}
	}

	if regime == RegimeNegative {
		metrics.VolatilityExpansionRisk = "high"
	} else if math.Abs(result.NetGEX) < a.thresholds.Moderate {
		metrics.VolatilityExpansionRisk = "moderate"
	}

	if regime == RegimeNegative && result.Distribution.Concentration > 0.3 {
		metrics.GapRisk = "elevated"
	}

	if result.Levels.FlipZone != nil && result.Levels.FlipZone.SpotInZone {
		metrics.LiquidityRisk = "moderate"
	}

	return metrics
}

// confidence starts at 0.5 and adds bonuses for magnitude, strike-count
// richness and resolved walls, capped at 1.0.
func (a *RegimeAnalyzer) confidence(magnitude Magnitude, result *Result) float64 {
	confidence := 0.5

	switch magnitude {
	case MagnitudeExtreme:
		confidence += 0.3
	case MagnitudeHigh:
		confidence += 0.2
	case MagnitudeModerate:
		confidence += 0.1
	}

	strikes := len(result.StrikeExposure)
	if strikes > 50 {
		confidence += 0.1
	} else if strikes > 20 {
		confidence += 0.05
	}

	if result.Levels.CallWall != nil && result.Levels.PutWall != nil {
		confidence += 0.1
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// CompareRegimes diffs two analyses. The change is significant when the
// regime itself flipped or the magnitude moved into or out of the
// {high, extreme} tier.
func CompareRegimes(prev, curr *RegimeAnalysis) RegimeDiff {
	diff := RegimeDiff{}
	if prev == nil || curr == nil {
		return diff
	}

	if prev.Regime != curr.Regime {
		diff.Changed = append(diff.Changed, "regime")
		diff.Significant = true
	}
	if prev.Magnitude != curr.Magnitude {
		diff.Changed = append(diff.Changed, "magnitude")
		if elevated(prev.Magnitude) != elevated(curr.Magnitude) {
			diff.Significant = true
		}
	}
	if prev.Bias != curr.Bias {
		diff.Changed = append(diff.Changed, "bias")
	}

	return diff
}

func elevated(m Magnitude) bool {
	return m == MagnitudeHigh || m == MagnitudeExtreme
}
