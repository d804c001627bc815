package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dgnsrekt/gexlevels/internal/engine"
	"github.com/dgnsrekt/gexlevels/internal/provider"
)

// Scanner fans a symbol list across a worker pool and runs one analysis
// per symbol. Failures are aggregated, never fatal to the batch.
type Scanner struct {
	engine  *engine.Engine
	workers int
	logger  *zap.Logger
}

// BatchResult summarizes one scan pass.
type BatchResult struct {
	Total    int
	Success  int
	NoData   int
	Failed   int
	Errors   []string
	Analyses map[string]*engine.Analysis
}

type symbolResult struct {
	symbol   string
	analysis *engine.Analysis
	noData   bool
	err      error
}

func NewScanner(eng *engine.Engine, workers int, logger *zap.Logger) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{engine: eng, workers: workers, logger: logger}
}

// Execute analyzes every symbol and collects the per-symbol outcomes.
func (s *Scanner) Execute(ctx context.Context, symbols []string) (*BatchResult, error) {
	result := &BatchResult{
		Total:    len(symbols),
		Analyses: make(map[string]*engine.Analysis, len(symbols)),
	}
	if len(symbols) == 0 {
		return result, nil
	}

	jobs := make(chan string, len(symbols))
	results := make(chan symbolResult, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, jobs, results)
		}()
	}

	go func() {
		for _, symbol := range symbols {
			select {
			case <-ctx.Done():
				return
			case jobs <- symbol:
			}
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		switch {
		case r.noData:
			result.NoData++
		case r.err != nil:
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", r.symbol, r.err))
		default:
			result.Success++
			result.Analyses[r.symbol] = r.analysis
		}
	}

	return result, nil
}

func (s *Scanner) worker(ctx context.Context, jobs <-chan string, results chan<- symbolResult) {
	for symbol := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r := s.analyzeOne(ctx, symbol)

		select {
		case <-ctx.Done():
			return
		case results <- r:
		}
	}
}

func (s *Scanner) analyzeOne(ctx context.Context, symbol string) symbolResult {
	s.logger.Debug("scanning", zap.String("symbol", symbol))

	analysis, err := s.engine.Analyze(ctx, symbol)
	if err != nil {
		if errors.Is(err, provider.ErrSymbolNotFound) || errors.Is(err, provider.ErrNoData) {
			s.logger.Debug("no chain data", zap.String("symbol", symbol))
			return symbolResult{symbol: symbol, noData: true}
		}
		s.logger.Warn("scan failed", zap.String("symbol", symbol), zap.Error(err))
		return symbolResult{symbol: symbol, err: err}
	}

	return symbolResult{symbol: symbol, analysis: analysis}
}
