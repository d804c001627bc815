package provider

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

// FileProvider serves chain snapshots from a date-partitioned directory:
// data/{date}/{SYMBOL}.jsonl, one snapshot per line, last line newest.
// Plain, gzip (.jsonl.gz) and zstd (.jsonl.zst) files are supported.
type FileProvider struct {
	mu        sync.RWMutex
	snapshots map[string]*ChainSnapshot // key: upper-cased symbol
	logger    *zap.Logger
}

// NewFileProvider loads every snapshot file under dataDir/date into
// memory. Unreadable files are skipped with a warning so one corrupt
// symbol does not take down the rest.
func NewFileProvider(dataDir, date string, logger *zap.Logger) (*FileProvider, error) {
	if date == "" || date == "latest" {
		detected, err := detectLatestDate(dataDir)
		if err != nil {
			return nil, fmt.Errorf("detecting latest date in %s: %w", dataDir, err)
		}
		date = detected
	}

	p := &FileProvider{
		snapshots: make(map[string]*ChainSnapshot),
		logger:    logger,
	}

	dateDir := filepath.Join(dataDir, date)
	entries, err := os.ReadDir(dateDir)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		symbol, ok := snapshotSymbol(name)
		if !ok {
			continue
		}

		snap, err := p.loadLatest(filepath.Join(dateDir, name))
		if err != nil {
			logger.Warn("failed to load snapshot file",
				zap.String("file", name), zap.Error(err))
			continue
		}
		if snap.Symbol == "" {
			snap.Symbol = symbol
		}
		p.snapshots[symbol] = snap
		logger.Info("loaded chain snapshot",
			zap.String("symbol", symbol),
			zap.Float64("spot", snap.SpotPrice),
			zap.Int("strikes", len(snap.Chain)),
		)
	}

	if len(p.snapshots) == 0 {
		return nil, fmt.Errorf("no snapshot files found in %s", dateDir)
	}
	return p, nil
}

// snapshotSymbol extracts the symbol from SPX.jsonl / SPX.jsonl.gz /
// SPX.jsonl.zst, rejecting other extensions.
func snapshotSymbol(name string) (string, bool) {
	for _, suffix := range []string{".jsonl.zst", ".jsonl.gz", ".jsonl"} {
		if strings.HasSuffix(name, suffix) {
			return strings.ToUpper(strings.TrimSuffix(name, suffix)), true
		}
	}
	return "", false
}

// loadLatest scans the JSONL stream and keeps the last decodable line.
func (p *FileProvider) loadLatest(path string) (*ChainSnapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader, closer, err := decompressed(path, file)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		defer closer()
	}

	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)

	var latest *ChainSnapshot
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var snap ChainSnapshot
		if err := json.Unmarshal(line, &snap); err != nil {
			p.logger.Warn("skipping malformed snapshot line",
				zap.String("file", filepath.Base(path)),
				zap.Int("line", lineNum),
				zap.Error(err))
			continue
		}
		latest = &snap
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, fmt.Errorf("no decodable snapshots in %s", path)
	}
	return latest, nil
}

func decompressed(path string, file *os.File) (io.Reader, func(), error) {
	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, nil, err
		}
		return gz, func() { gz.Close() }, nil
	case strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(file)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	default:
		return file, nil, nil
	}
}

func (p *FileProvider) GetOptionChain(ctx context.Context, symbol string) (*ChainSnapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	snap, ok := p.snapshots[strings.ToUpper(symbol)]
	if !ok {
		return nil, ErrSymbolNotFound
	}
	return snap, nil
}

func (p *FileProvider) GetSpotPrice(ctx context.Context, symbol string) (float64, error) {
	snap, err := p.GetOptionChain(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if snap.SpotPrice <= 0 {
		return 0, ErrNoData
	}
	return snap.SpotPrice, nil
}

// Symbols returns the loaded symbols in sorted order.
func (p *FileProvider) Symbols() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	symbols := make([]string, 0, len(p.snapshots))
	for s := range p.snapshots {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

func (p *FileProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = nil
	return nil
}

// detectLatestDate scans dataDir for YYYY-MM-DD folders and returns the
// most recent non-empty one.
func detectLatestDate(dataDir string) (string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return "", fmt.Errorf("reading data directory: %w", err)
	}

	var dates []string
	for _, entry := range entries {
		if !entry.IsDir() || !isDateDir(entry.Name()) {
			continue
		}
		sub, err := os.ReadDir(filepath.Join(dataDir, entry.Name()))
		if err == nil && len(sub) > 0 {
			dates = append(dates, entry.Name())
		}
	}
	if len(dates) == 0 {
		return "", fmt.Errorf("no date folders found in %s", dataDir)
	}

	// YYYY-MM-DD sorts lexicographically; newest last.
	sort.Strings(dates)
	return dates[len(dates)-1], nil
}

func isDateDir(name string) bool {
	if len(name) != 10 || name[4] != '-' || name[7] != '-' {
		return false
	}
	for i, r := range name {
		if i == 4 || i == 7 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
