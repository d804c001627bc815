package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dgnsrekt/gexlevels/internal/engine"
)

// Store persists completed analyses as JSON under a date-partitioned
// directory: out/{date}/{SYMBOL}.json. Writes go through a temp file and
// rename so readers never see a half-written result.
type Store struct {
	baseDir string
}

func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) path(date, symbol string) string {
	return filepath.Join(s.baseDir, date, strings.ToUpper(symbol)+".json")
}

// Write persists one analysis atomically.
func (s *Store) Write(date string, analysis *engine.Analysis) error {
	dest := s.path(date, analysis.Symbol)
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	data, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding analysis: %w", err)
	}

	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("promoting snapshot: %w", err)
	}
	return nil
}

// Read loads a previously written analysis, e.g. for regime comparison
// across daemon runs.
func (s *Store) Read(date, symbol string) (*engine.Analysis, error) {
	data, err := os.ReadFile(s.path(date, symbol))
	if err != nil {
		return nil, err
	}
	var analysis engine.Analysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, fmt.Errorf("decoding analysis: %w", err)
	}
	return &analysis, nil
}

// Symbols lists the symbols written for a date, sorted.
func (s *Store) Symbols(date string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, date))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		symbols = append(symbols, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(symbols)
	return symbols, nil
}
