package ws

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/gexlevels/internal/engine"
)

// Analyzer produces an analysis for one symbol. Satisfied by
// engine.Engine.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (*engine.Analysis, error)
}

// Streamer periodically pushes fresh analyses to subscribed clients.
type Streamer struct {
	hub      *Hub
	analyzer Analyzer
	interval time.Duration
	logger   *zap.Logger
}

func NewStreamer(hub *Hub, analyzer Analyzer, interval time.Duration, logger *zap.Logger) *Streamer {
	return &Streamer{
		hub:      hub,
		analyzer: analyzer,
		interval: interval,
		logger:   logger,
	}
}

// Run starts the streaming loop. Call in a goroutine.
// Returns when context is cancelled.
func (s *Streamer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("streamer started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("streamer stopping")
			return

		case <-ticker.C:
			s.broadcastAll(ctx)
		}
	}
}

// broadcastAll refreshes every symbol that has at least one subscriber.
func (s *Streamer) broadcastAll(ctx context.Context) {
	symbols := s.hub.SubscribedSymbols()
	if len(symbols) == 0 {
		return
	}

	for _, symbol := range symbols {
		analysis, err := s.analyzer.Analyze(ctx, symbol)
		if err != nil {
			s.logger.Debug("stream analysis failed",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
			continue
		}

		frame, err := s.hub.encoder.Encode(analysis)
		if err != nil {
			s.logger.Warn("encode analysis failed",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
			continue
		}
		s.hub.Broadcast(symbol, frame)
	}
}
