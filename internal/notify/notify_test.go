package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/gexlevels/internal/config"
	"github.com/dgnsrekt/gexlevels/internal/gex"
	"github.com/dgnsrekt/gexlevels/internal/scan"
)

func TestSendRegimeChange(t *testing.T) {
	var gotTitle, gotPriority, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		gotPriority = r.Header.Get("Priority")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
	}))
	defer server.Close()

	client := NewClient(&config.NotifyConfig{
		Enabled:  true,
		Server:   server.URL,
		Topic:    "gex-alerts",
		Priority: "default",
		Tags:     "chart",
	}, zap.NewNop())

	prev := &gex.RegimeAnalysis{Regime: gex.RegimePositive, Magnitude: gex.MagnitudeModerate, Bias: gex.BiasRangeBound}
	curr := &gex.RegimeAnalysis{Regime: gex.RegimeNegative, Magnitude: gex.MagnitudeHigh, Bias: gex.BiasVolatile, Confidence: 0.8}
	diff := gex.CompareRegimes(prev, curr)

	if err := client.SendRegimeChange(context.Background(), "SPX", prev, curr, diff); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(gotTitle, "SPX") {
		t.Errorf("title should name the symbol, got %q", gotTitle)
	}
	if gotPriority != "high" {
		t.Errorf("significant change must go out high priority, got %q", gotPriority)
	}
	if !strings.Contains(gotBody, "positive") || !strings.Contains(gotBody, "negative") {
		t.Errorf("body should show both regimes, got %q", gotBody)
	}
}

func TestSendRegimeChange_DisabledIsNoop(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClient(&config.NotifyConfig{Enabled: false, Server: server.URL, Topic: "t"}, zap.NewNop())

	prev := &gex.RegimeAnalysis{Regime: gex.RegimePositive}
	curr := &gex.RegimeAnalysis{Regime: gex.RegimeNegative}
	if err := client.SendRegimeChange(context.Background(), "SPX", prev, curr, gex.RegimeDiff{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("disabled notifier must not hit the server")
	}
}

func TestSendScanFailure(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
	}))
	defer server.Close()

	client := NewClient(&config.NotifyConfig{
		Enabled: true,
		Server:  server.URL,
		Topic:   "gex-alerts",
	}, zap.NewNop())

	result := &scan.BatchResult{
		Total:   5,
		Success: 3,
		Failed:  2,
		Errors:  []string{"NDX: timeout", "RUT: connection reset"},
	}
	if err := client.SendScanFailure(context.Background(), result, 42*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotBody, "NDX: timeout") {
		t.Errorf("body should include collected errors, got %q", gotBody)
	}
}
