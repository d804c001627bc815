package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dgnsrekt/gexlevels/internal/engine"
	"github.com/dgnsrekt/gexlevels/internal/gex"
)

func sampleAnalysis(symbol string) *engine.Analysis {
	return &engine.Analysis{
		Symbol:    symbol,
		SpotPrice: 4500,
		Result: &gex.Result{
			NetGEX:         2e9,
			TotalCallGEX:   -1e9,
			TotalPutGEX:    3e9,
			StrikeExposure: gex.StrikeMap{4400: {Strike: 4400, PutGEX: 3e9, CallGEX: -1e9, NetGEX: 2e9}},
			Regime:         gex.RegimePositive,
		},
		RegimeAnalysis: gex.RegimeAnalysis{
			Regime:    gex.RegimePositive,
			Magnitude: gex.MagnitudeHigh,
			Bias:      gex.BiasRangeBound,
		},
	}
}

func TestStore_WriteReadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	if err := store.Write("2026-08-28", sampleAnalysis("SPX")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := store.Read("2026-08-28", "spx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Symbol != "SPX" || loaded.NetGEX != 2e9 {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
	if loaded.RegimeAnalysis.Magnitude != gex.MagnitudeHigh {
		t.Errorf("regime analysis lost in round trip: %+v", loaded.RegimeAnalysis)
	}
	exp, ok := loaded.StrikeExposure[4400]
	if !ok {
		t.Fatal("strike exposure lost in round trip")
	}
	if exp.NetGEX != 2e9 {
		t.Errorf("unexpected strike exposure: %+v", exp)
	}
}

func TestStore_WriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	if err := store.Write("2026-08-28", sampleAnalysis("SPX")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "2026-08-28"))
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestStore_Symbols(t *testing.T) {
	store := NewStore(t.TempDir())

	for _, symbol := range []string{"SPX", "QQQ"} {
		if err := store.Write("2026-08-28", sampleAnalysis(symbol)); err != nil {
			t.Fatal(err)
		}
	}

	symbols, err := store.Symbols("2026-08-28")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "QQQ" || symbols[1] != "SPX" {
		t.Errorf("unexpected symbols: %v", symbols)
	}

	// Missing date directory is not an error.
	none, err := store.Symbols("1999-01-01")
	if err != nil || none != nil {
		t.Errorf("missing date must yield nil, nil; got %v, %v", none, err)
	}
}
