package provider

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/gexlevels/internal/gex"
)

func writeSnapshotFile(t *testing.T, dir, name string, snaps ...ChainSnapshot) {
	t.Helper()
	var out []byte
	for _, s := range snaps {
		line, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("marshal snapshot: %v", err)
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	if err := os.WriteFile(filepath.Join(dir, name), out, 0o644); err != nil {
		t.Fatalf("write snapshot file: %v", err)
	}
}

func TestFileProvider_LoadsLatestSnapshot(t *testing.T) {
	root := t.TempDir()
	dateDir := filepath.Join(root, "2026-08-27")
	if err := os.MkdirAll(dateDir, 0o750); err != nil {
		t.Fatal(err)
	}

	stale := ChainSnapshot{
		Symbol:    "SPX",
		SpotPrice: 4480,
		Timestamp: time.Date(2026, 8, 27, 14, 0, 0, 0, time.UTC),
	}
	fresh := ChainSnapshot{
		Symbol:    "SPX",
		SpotPrice: 4500,
		Timestamp: time.Date(2026, 8, 27, 15, 0, 0, 0, time.UTC),
		Chain: []gex.OptionRecord{
			{Strike: 4400, DTE: 1, PutGamma: 0.02, PutOI: 100},
		},
	}
	writeSnapshotFile(t, dateDir, "SPX.jsonl", stale, fresh)

	p, err := NewFileProvider(root, "2026-08-27", zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	snap, err := p.GetOptionChain(context.Background(), "spx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.SpotPrice != 4500 {
		t.Errorf("expected the last line to win, got spot %v", snap.SpotPrice)
	}

	spot, err := p.GetSpotPrice(context.Background(), "SPX")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spot != 4500 {
		t.Errorf("expected spot 4500, got %v", spot)
	}
}

func TestFileProvider_UnknownSymbol(t *testing.T) {
	root := t.TempDir()
	dateDir := filepath.Join(root, "2026-08-27")
	if err := os.MkdirAll(dateDir, 0o750); err != nil {
		t.Fatal(err)
	}
	writeSnapshotFile(t, dateDir, "SPX.jsonl", ChainSnapshot{Symbol: "SPX", SpotPrice: 4500})

	p, err := NewFileProvider(root, "2026-08-27", zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	if _, err := p.GetOptionChain(context.Background(), "NDX"); !errors.Is(err, ErrSymbolNotFound) {
		t.Errorf("expected ErrSymbolNotFound, got %v", err)
	}
}

func TestFileProvider_DetectsLatestDate(t *testing.T) {
	root := t.TempDir()
	for _, date := range []string{"2026-08-25", "2026-08-27"} {
		dir := filepath.Join(root, date)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatal(err)
		}
		writeSnapshotFile(t, dir, "SPX.jsonl", ChainSnapshot{Symbol: "SPX", SpotPrice: 4500})
	}

	p, err := NewFileProvider(root, "latest", zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	if symbols := p.Symbols(); len(symbols) != 1 || symbols[0] != "SPX" {
		t.Errorf("unexpected symbols: %v", symbols)
	}
}

func TestFileProvider_SkipsMalformedLines(t *testing.T) {
	root := t.TempDir()
	dateDir := filepath.Join(root, "2026-08-27")
	if err := os.MkdirAll(dateDir, 0o750); err != nil {
		t.Fatal(err)
	}

	good, _ := json.Marshal(ChainSnapshot{Symbol: "SPX", SpotPrice: 4500})
	content := append(good, '\n')
	content = append(content, []byte("{not json}\n")...)
	if err := os.WriteFile(filepath.Join(dateDir, "SPX.jsonl"), content, 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := NewFileProvider(root, "2026-08-27", zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	snap, err := p.GetOptionChain(context.Background(), "SPX")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.SpotPrice != 4500 {
		t.Errorf("expected the good line to survive, got %v", snap.SpotPrice)
	}
}
