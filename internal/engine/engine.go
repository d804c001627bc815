package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/gexlevels/internal/config"
	"github.com/dgnsrekt/gexlevels/internal/gex"
	"github.com/dgnsrekt/gexlevels/internal/provider"
)

// Analysis is the complete output for one symbol: the calculated
// exposure plus the interpreted regime. It serializes to the flat JSON
// contract consumed by scoring collaborators.
type Analysis struct {
	Symbol    string  `json:"symbol"`
	SpotPrice float64 `json:"spot_price"`
	*gex.Result
	RegimeAnalysis gex.RegimeAnalysis `json:"regime_analysis"`
}

// Engine sequences Calculator, LevelFinder and RegimeAnalyzer behind a
// single Analyze entry point, with a TTL cache keyed by (symbol, spot).
// The provider is injected at construction; the engine holds no other
// shared mutable state and is safe for concurrent use.
type Engine struct {
	cfg      config.EngineConfig
	provider provider.ChainProvider
	cache    *resultCache
	logger   *zap.Logger
}

func New(cfg config.EngineConfig, chains provider.ChainProvider, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		provider: chains,
		cache:    newResultCache(),
		logger:   logger,
	}
}

// Analyze fetches the current spot and chain for symbol and analyzes
// them. Results are cached per (symbol, spot-rounded-to-cents) for the
// configured TTL; the chain fetch is skipped entirely on a cache hit.
func (e *Engine) Analyze(ctx context.Context, symbol string) (*Analysis, error) {
	spot, err := e.provider.GetSpotPrice(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetching spot for %s: %w", symbol, err)
	}

	return e.cache.GetOrCompute(cacheKey(symbol, spot), e.cfg.CacheTTL(), func() (*Analysis, error) {
		snap, err := e.provider.GetOptionChain(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("fetching chain for %s: %w", symbol, err)
		}
		return e.AnalyzeChain(symbol, spot, snap.Chain)
	})
}

// AnalyzeChain runs the full pipeline on an already-fetched chain. It is
// the cache-free path used by push-mode callers and tests.
func (e *Engine) AnalyzeChain(symbol string, spot float64, chain []gex.OptionRecord) (*Analysis, error) {
	start := time.Now()

	calc := gex.NewCalculator(gex.CalculatorConfig{
		ContractMultiplier:   e.cfg.ContractMultiplier(symbol),
		UseZeroDTEMultiplier: e.cfg.UseZeroDTEMultiplier,
		ZeroDTEMultiplier:    e.cfg.ZeroDTEMultiplier,
	}, e.logger)

	result, err := calc.Calculate(spot, chain)
	if err != nil {
		return nil, fmt.Errorf("calculating exposure for %s: %w", symbol, err)
	}

	finder := gex.NewLevelFinder(e.cfg.MinGEXThreshold, e.logger)
	result.Levels = finder.FindLevels(result.StrikeExposure, spot)

	analyzer := gex.NewRegimeAnalyzer(gex.RegimeThresholds{
		Negligible: e.cfg.NegligibleGEX,
		Moderate:   e.cfg.RegimeThresholds.Moderate,
		High:       e.cfg.RegimeThresholds.High,
		Extreme:    e.cfg.RegimeThresholds.Extreme,
	}, e.logger)
	regime := analyzer.Analyze(result, spot)

	e.logger.Info("analysis complete",
		zap.String("symbol", symbol),
		zap.Float64("spot", spot),
		zap.Int("strikes", len(result.StrikeExposure)),
		zap.Float64("netGEX", result.NetGEX),
		zap.String("regime", string(regime.Regime)),
		zap.Duration("duration", time.Since(start)),
	)

	return &Analysis{
		Symbol:         symbol,
		SpotPrice:      spot,
		Result:         result,
		RegimeAnalysis: regime,
	}, nil
}

// Invalidate drops any cached result for symbol at the given spot.
func (e *Engine) Invalidate(symbol string, spot float64) {
	e.cache.Invalidate(cacheKey(symbol, spot))
}
