package provider

import (
	"context"
	"errors"
	"time"

	"github.com/dgnsrekt/gexlevels/internal/gex"
)

var (
	ErrSymbolNotFound = errors.New("no chain data for symbol")
	ErrNoData         = errors.New("chain data not available")
	ErrRateLimited    = errors.New("rate limited by upstream")
)

// ChainSnapshot is one point-in-time option chain for a symbol. The
// engine must never see partial/in-flight data; providers return a
// complete snapshot or an error.
type ChainSnapshot struct {
	Symbol    string             `json:"symbol"`
	SpotPrice float64            `json:"spot_price"`
	Timestamp time.Time          `json:"timestamp"`
	Chain     []gex.OptionRecord `json:"chain"`
}

// ChainProvider is the data-provider contract the engine depends on.
// Implementations are swappable by configuration: file-cache-backed,
// HTTP-backed, or a mock in tests.
type ChainProvider interface {
	GetOptionChain(ctx context.Context, symbol string) (*ChainSnapshot, error)
	GetSpotPrice(ctx context.Context, symbol string) (float64, error)
	Close() error
}
