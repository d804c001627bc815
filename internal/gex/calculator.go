package gex

import (
	"errors"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidSpot is returned when the caller passes a non-positive spot
// price. That is a broken collaborator, not a market condition, so it
// fails fast instead of being coerced.
var ErrInvalidSpot = errors.New("spot price must be positive")

const (
	// atmBandPct bounds the at-the-money band for distribution stats.
	atmBandPct = 0.02
	// topStrikeCount is how many strikes the distribution keeps by |net GEX|.
	topStrikeCount = 5
)

// CalculatorConfig controls sign conventions and scaling for one underlying.
type CalculatorConfig struct {
	// ContractMultiplier is the per-contract scaling for the underlying
	// class. Index options typically use a smaller multiplier than
	// equity/ETF options, so this is configured per symbol.
	ContractMultiplier float64
	// UseZeroDTEMultiplier enables same-day-expiry amplification.
	UseZeroDTEMultiplier bool
	// ZeroDTEMultiplier is applied only to records with dte == 0.
	ZeroDTEMultiplier float64
}

// Calculator converts a chain snapshot into per-strike and aggregate GEX.
//
// Sign convention: dealers are modeled net-short calls and net-long puts,
// so call exposure is negated and put exposure is kept positive.
type Calculator struct {
	cfg    CalculatorConfig
	logger *zap.Logger
}

func NewCalculator(cfg CalculatorConfig, logger *zap.Logger) *Calculator {
	if cfg.ContractMultiplier <= 0 {
		cfg.ContractMultiplier = 100
	}
	if cfg.ZeroDTEMultiplier <= 0 {
		cfg.ZeroDTEMultiplier = 1
	}
	return &Calculator{cfg: cfg, logger: logger}
}

// Calculate aggregates dealer gamma exposure across the chain.
//
// Malformed rows (non-positive strike, NaN/Inf gamma, negative OI) are
// skipped with a warning; they never abort the pass. An empty chain
// yields a well-formed zero-valued Result with a neutral regime.
func (c *Calculator) Calculate(spot float64, chain []OptionRecord) (*Result, error) {
	if spot <= 0 || math.IsNaN(spot) || math.IsInf(spot, 0) {
		return nil, ErrInvalidSpot
	}

	result := &Result{
		StrikeExposure: make(StrikeMap, len(chain)),
		Regime:         RegimeNeutral,
		Timestamp:      time.Now().UTC(),
	}

	for _, rec := range chain {
		if rec.Strike <= 0 {
			c.logger.Warn("skipping record with non-positive strike",
				zap.Float64("strike", rec.Strike))
			continue
		}
		if badFloat(rec.CallGamma) || badFloat(rec.PutGamma) {
			c.logger.Warn("skipping record with invalid gamma",
				zap.Float64("strike", rec.Strike),
				zap.Float64("callGamma", rec.CallGamma),
				zap.Float64("putGamma", rec.PutGamma))
			continue
		}
		if rec.CallOI < 0 || rec.PutOI < 0 || badFloat(rec.CallOI) || badFloat(rec.PutOI) {
			c.logger.Warn("skipping record with invalid open interest",
				zap.Float64("strike", rec.Strike),
				zap.Float64("callOI", rec.CallOI),
				zap.Float64("putOI", rec.PutOI))
			continue
		}

		multiplier := 1.0
		if rec.DTE == 0 && c.cfg.UseZeroDTEMultiplier {
			multiplier = c.cfg.ZeroDTEMultiplier
		}

		callGEX := -1 * rec.CallGamma * rec.CallOI * c.cfg.ContractMultiplier * spot * multiplier
		putGEX := rec.PutGamma * rec.PutOI * c.cfg.ContractMultiplier * spot * multiplier

		exp, exists := result.StrikeExposure[rec.Strike]
		if exists {
			// Chains split across expiries can repeat a strike; fold them.
			exp.CallGEX += callGEX
			exp.PutGEX += putGEX
			exp.CallOI += rec.CallOI
			exp.PutOI += rec.PutOI
			if rec.DTE < exp.DTE {
				exp.DTE = rec.DTE
			}
		} else {
			exp = StrikeExposure{
				Strike:  rec.Strike,
				CallGEX: callGEX,
				PutGEX:  putGEX,
				CallOI:  rec.CallOI,
				PutOI:   rec.PutOI,
				DTE:     rec.DTE,
			}
		}
		exp.NetGEX = exp.CallGEX + exp.PutGEX
		result.StrikeExposure[rec.Strike] = exp

		result.TotalCallGEX += callGEX
		result.TotalPutGEX += putGEX
	}

	result.NetGEX = result.TotalCallGEX + result.TotalPutGEX

	if result.NetGEX > 0 {
		result.Regime = RegimePositive
	} else if result.NetGEX < 0 {
		result.Regime = RegimeNegative
	}

	result.Distribution = c.distribution(spot, result.StrikeExposure)

	return result, nil
}

// distribution computes ATM/OTM band sums, top strikes and the Herfindahl
// concentration index over |net GEX| shares.
func (c *Calculator) distribution(spot float64, exposure StrikeMap) Distribution {
	dist := Distribution{}
	if len(exposure) == 0 {
		return dist
	}

	atmLower := spot * (1 - atmBandPct)
	atmUpper := spot * (1 + atmBandPct)

	totalAbs := 0.0
	all := make([]HighGammaStrike, 0, len(exposure))

	for strike, exp := range exposure {
		absNet := math.Abs(exp.NetGEX)
		totalAbs += absNet

		switch {
		case strike >= atmLower && strike <= atmUpper:
			dist.ATMGex += absNet
		case strike > atmUpper:
			dist.OTMCallGEX += exp.CallGEX
		default:
			dist.OTMPutGEX += exp.PutGEX
		}

		all = append(all, HighGammaStrike{
			Strike:       strike,
			NetGEX:       exp.NetGEX,
			DominantSide: dominantSide(exp),
		})
	}

	sort.Slice(all, func(i, j int) bool {
		ai, aj := math.Abs(all[i].NetGEX), math.Abs(all[j].NetGEX)
		if ai != aj {
			return ai > aj
		}
		return all[i].Strike < all[j].Strike
	})
	if len(all) > topStrikeCount {
		all = all[:topStrikeCount]
	}
	dist.TopStrikes = all

	if totalAbs > 0 {
		for _, exp := range exposure {
			share := math.Abs(exp.NetGEX) / totalAbs
			dist.Concentration += share * share
		}
	}

	return dist
}

func dominantSide(exp StrikeExposure) string {
	if math.Abs(exp.CallGEX) > math.Abs(exp.PutGEX) {
		return "call"
	}
	return "put"
}

func badFloat(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}
