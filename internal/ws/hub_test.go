package ws

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/gexlevels/internal/engine"
	"github.com/dgnsrekt/gexlevels/internal/gex"
)

func newTestClient(h *Hub) *Client {
	return &Client{
		hub:     h,
		send:    make(chan []byte, 4),
		connID:  "test-conn",
		symbols: make(map[string]bool),
		logger:  zap.NewNop(),
	}
}

func TestHubBroadcastToSubscriber(t *testing.T) {
	h, err := NewHub(zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	client := newTestClient(h)
	h.register <- client
	h.Subscribe(client, "SPX")

	h.Broadcast("SPX", []byte("payload"))

	select {
	case got := <-client.send:
		if string(got) != "payload" {
			t.Errorf("expected payload, got %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received broadcast")
	}
}

func TestHubBroadcastSkipsOtherSymbols(t *testing.T) {
	h, err := NewHub(zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	client := newTestClient(h)
	h.register <- client
	h.Subscribe(client, "SPX")

	h.Broadcast("NDX", []byte("other"))

	select {
	case got := <-client.send:
		t.Fatalf("client should not receive NDX payload, got %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnsubscribe(t *testing.T) {
	h, err := NewHub(zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	client := newTestClient(h)
	h.Subscribe(client, "SPX")
	h.Subscribe(client, "NDX")
	h.Unsubscribe(client, "SPX")

	symbols := h.SubscribedSymbols()
	if len(symbols) != 1 || symbols[0] != "NDX" {
		t.Errorf("expected only NDX subscribed, got %v", symbols)
	}
}

func TestEncoderRoundTrip(t *testing.T) {
	enc, err := NewEncoder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer enc.Close()

	frame, err := enc.Encode(map[string]string{"symbol": "SPX"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]string
	if err := Decode(frame, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded["symbol"] != "SPX" {
		t.Errorf("expected SPX, got %q", decoded["symbol"])
	}
}

type fakeAnalyzer struct {
	fail bool
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, symbol string) (*engine.Analysis, error) {
	if f.fail {
		return nil, errors.New("provider down")
	}
	return &engine.Analysis{
		Symbol:    symbol,
		SpotPrice: 4500,
		Result:    &gex.Result{NetGEX: 1e9, Regime: gex.RegimePositive},
	}, nil
}

func TestStreamerBroadcastAll(t *testing.T) {
	h, err := NewHub(zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	client := newTestClient(h)
	h.register <- client
	h.Subscribe(client, "SPX")

	s := NewStreamer(h, &fakeAnalyzer{}, time.Second, zap.NewNop())
	s.broadcastAll(ctx)

	select {
	case frame := <-client.send:
		var analysis engine.Analysis
		if err := Decode(frame, &analysis); err != nil {
			t.Fatalf("frame must decode: %v", err)
		}
		if analysis.Symbol != "SPX" {
			t.Errorf("expected SPX, got %q", analysis.Symbol)
		}
		if analysis.NetGEX != 1e9 {
			t.Errorf("expected net gex 1e9, got %v", analysis.NetGEX)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received analysis frame")
	}
}

func TestStreamerSkipsFailedSymbols(t *testing.T) {
	h, err := NewHub(zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	client := newTestClient(h)
	h.register <- client
	h.Subscribe(client, "SPX")

	s := NewStreamer(h, &fakeAnalyzer{fail: true}, time.Second, zap.NewNop())
	s.broadcastAll(ctx)

	select {
	case frame := <-client.send:
		t.Fatalf("failed analysis must not be broadcast, got %d bytes", len(frame))
	case <-time.After(50 * time.Millisecond):
	}
}
