package gex

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"
)

// Regime describes the sign of aggregate dealer gamma exposure.
type Regime string

const (
	RegimePositive Regime = "positive"
	RegimeNegative Regime = "negative"
	RegimeNeutral  Regime = "neutral"
)

// Magnitude buckets |net GEX| against configured dollar-notional thresholds.
type Magnitude string

const (
	MagnitudeLow      Magnitude = "low"
	MagnitudeModerate Magnitude = "moderate"
	MagnitudeHigh     Magnitude = "high"
	MagnitudeExtreme  Magnitude = "extreme"
)

// Bias describes where spot sits inside the put-wall/call-wall range.
type Bias string

const (
	BiasSupportTest    Bias = "support_test"
	BiasResistanceTest Bias = "resistance_test"
	BiasRangeBound     Bias = "range_bound"
	BiasBearish        Bias = "bearish"
	BiasBullish        Bias = "bullish"
	BiasVolatile       Bias = "volatile"
	BiasNeutral        Bias = "neutral"
)

// OptionRecord is one strike row of an option chain snapshot.
// Gamma is per-contract; OI may be zero when unknown.
type OptionRecord struct {
	Strike    float64 `json:"strike"`
	DTE       int     `json:"dte"`
	CallGamma float64 `json:"call_gamma"`
	PutGamma  float64 `json:"put_gamma"`
	CallOI    float64 `json:"call_oi"`
	PutOI     float64 `json:"put_oi"`
}

// StrikeExposure is the signed dollar exposure derived for a single strike.
// NetGEX is always CallGEX + PutGEX.
type StrikeExposure struct {
	Strike  float64 `json:"strike"`
	CallGEX float64 `json:"call_gex"`
	PutGEX  float64 `json:"put_gex"`
	NetGEX  float64 `json:"net_gex"`
	CallOI  float64 `json:"call_oi"`
	PutOI   float64 `json:"put_oi"`
	DTE     int     `json:"dte"`
}

// StrikeMap holds per-strike exposure keyed by strike price.
type StrikeMap map[float64]StrikeExposure

// SortedStrikes returns the map keys in ascending order.
func (m StrikeMap) SortedStrikes() []float64 {
	strikes := make([]float64, 0, len(m))
	for s := range m {
		strikes = append(strikes, s)
	}
	sort.Float64s(strikes)
	return strikes
}

// MarshalJSON encodes the map with string strike keys so the structure is
// valid JSON (float keys are not), e.g. {"4500": {...}, "4525.5": {...}}.
func (m StrikeMap) MarshalJSON() ([]byte, error) {
	out := make(map[string]StrikeExposure, len(m))
	for strike, exp := range m {
		out[strconv.FormatFloat(strike, 'f', -1, 64)] = exp
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (m *StrikeMap) UnmarshalJSON(b []byte) error {
	raw := make(map[string]StrikeExposure)
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(StrikeMap, len(raw))
	for k, exp := range raw {
		strike, err := strconv.ParseFloat(k, 64)
		if err != nil {
			return err
		}
		out[strike] = exp
	}
	*m = out
	return nil
}

// HighGammaStrike is a strike carrying outsized net exposure, tagged with
// the side that dominates it.
type HighGammaStrike struct {
	Strike       float64 `json:"strike"`
	NetGEX       float64 `json:"net_gex"`
	DominantSide string  `json:"dominant_side"` // "call" or "put"
}

// FlipZone is the strike band where |net GEX| is small relative to the
// maximum observed exposure, i.e. where the gamma profile is flat enough
// for the flip point to wander.
type FlipZone struct {
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	Width      float64 `json:"width"`
	SpotInZone bool    `json:"spot_in_zone"`
}

// GammaProfile summarizes the shape of the exposure distribution around spot.
type GammaProfile struct {
	// Skew is the GEX-magnitude-weighted average strike minus spot,
	// normalized by spot. Positive means exposure is call-heavy above spot.
	Skew float64 `json:"skew"`
	// Concentration is the fraction of total |GEX| sitting within 5% of spot.
	Concentration float64 `json:"concentration"`
}

// Levels are the structurally significant strikes derived from the
// exposure map. Nil pointer fields mean "indeterminate", not an error.
type Levels struct {
	CallWall         *float64          `json:"call_wall"`
	PutWall          *float64          `json:"put_wall"`
	ZeroGamma        *float64          `json:"zero_gamma"`
	FlipZone         *FlipZone         `json:"flip_zone"`
	HighGammaStrikes []HighGammaStrike `json:"high_gamma_strikes"`
	Profile          GammaProfile      `json:"gamma_profile"`
}

// Distribution carries aggregate exposure statistics used by the level
// finder and regime analyzer.
type Distribution struct {
	// ATMGex sums |net GEX| for strikes within 2% of spot.
	ATMGex float64 `json:"atm_gex"`
	// OTMCallGEX / OTMPutGEX sum exposure above / below the ATM band.
	OTMCallGEX float64 `json:"otm_call_gex"`
	OTMPutGEX  float64 `json:"otm_put_gex"`
	// TopStrikes are the largest strikes by |net GEX|, descending.
	TopStrikes []HighGammaStrike `json:"top_strikes"`
	// Concentration is a Herfindahl index over |net GEX| shares: 0 with no
	// exposure, 1/N for N equal strikes, approaching 1 as one strike dominates.
	Concentration float64 `json:"concentration"`
}

// Result is the output of a single calculator pass over a chain snapshot.
type Result struct {
	NetGEX         float64      `json:"net_gex"`
	TotalCallGEX   float64      `json:"total_call_gex"`
	TotalPutGEX    float64      `json:"total_put_gex"`
	StrikeExposure StrikeMap    `json:"strike_exposure"`
	Regime         Regime       `json:"regime"`
	Levels         Levels       `json:"levels"`
	Distribution   Distribution `json:"distribution"`
	Timestamp      time.Time    `json:"timestamp"`
}

// ExpectedBehavior is the qualitative read of the current regime.
type ExpectedBehavior struct {
	Volatility          string `json:"volatility"`
	TrendStrength       string `json:"trend_strength"`
	ReversalProbability string `json:"reversal_probability"`
	Note                string `json:"note,omitempty"`
}

// Recommendation is a single strategy suggestion, ordered by relevance.
type Recommendation struct {
	Strategy   string  `json:"strategy"`
	Rationale  string  `json:"rationale"`
	Confidence float64 `json:"confidence"`
}

// RiskMetrics are qualitative risk flags derived from the exposure curve.
type RiskMetrics struct {
	GammaFlipRisk           string `json:"gamma_flip_risk"`
	VolatilityExpansionRisk string `json:"volatility_expansion_risk"`
	GapRisk                 string `json:"gap_risk"`
	LiquidityRisk           string `json:"liquidity_risk"`
}

// RegimeAnalysis is the interpreted trading posture for one Result.
type RegimeAnalysis struct {
	Regime           Regime           `json:"regime"`
	Magnitude        Magnitude        `json:"magnitude"`
	Bias             Bias             `json:"bias"`
	ExpectedBehavior ExpectedBehavior `json:"expected_behavior"`
	Recommendations  []Recommendation `json:"recommendations"`
	RiskMetrics      RiskMetrics      `json:"risk_metrics"`
	Confidence       float64          `json:"confidence"`
}

// RegimeDiff reports which fields changed between two analyses.
type RegimeDiff struct {
	Changed     []string `json:"changed"`
	Significant bool     `json:"significant"`
}

func float64Ptr(v float64) *float64 { return &v }
