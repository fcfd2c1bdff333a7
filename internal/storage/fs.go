package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentprobe/internal/trace"
)

const (
	baselinesDir = "baselines"
	tracesDir    = "traces"
	jsonExt      = ".json"
)

// FSStore persists baselines and traces as JSON files under a root
// directory, one file per record.
type FSStore struct {
	root   string
	logger *zap.Logger
	mu     sync.RWMutex
}

// NewFSStore creates the store and its subdirectories.
func NewFSStore(root string, logger *zap.Logger) (*FSStore, error) {
	if root == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, sub := range []string{baselinesDir, tracesDir} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0750); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}
	return &FSStore{root: root, logger: logger}, nil
}

// Save implements BaselineStore.
func (s *FSStore) Save(_ context.Context, baseline *Baseline) error {
	if baseline == nil {
		return fmt.Errorf("baseline is required")
	}
	if err := validateName("baseline", baseline.Name); err != nil {
		return err
	}
	if baseline.CreatedAt.IsZero() {
		baseline.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeJSON(s.baselinePath(baseline.Name), baseline); err != nil {
		return fmt.Errorf("save baseline %q: %w", baseline.Name, err)
	}
	s.logger.Debug("baseline saved",
		zap.String("name", baseline.Name),
		zap.Int("results", len(baseline.Results)),
	)
	return nil
}

// Load implements BaselineStore.
func (s *FSStore) Load(_ context.Context, name string) (*Baseline, error) {
	if err := validateName("baseline", name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.baselinePath(name))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("baseline %q: %w", name, ErrBaselineNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load baseline %q: %w", name, err)
	}

	var baseline Baseline
	if err := json.Unmarshal(data, &baseline); err != nil {
		return nil, fmt.Errorf("decode baseline %q: %w", name, err)
	}
	return &baseline, nil
}

// Exists implements BaselineStore.
func (s *FSStore) Exists(_ context.Context, name string) (bool, error) {
	if err := validateName("baseline", name); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.baselinePath(name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat baseline %q: %w", name, err)
	}
	return true, nil
}

// List implements BaselineStore.
func (s *FSStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listJSONNames(filepath.Join(s.root, baselinesDir))
}

// Delete implements BaselineStore.
func (s *FSStore) Delete(_ context.Context, name string) error {
	if err := validateName("baseline", name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.baselinePath(name))
	if os.IsNotExist(err) {
		return fmt.Errorf("baseline %q: %w", name, ErrBaselineNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete baseline %q: %w", name, err)
	}
	s.logger.Debug("baseline deleted", zap.String("name", name))
	return nil
}

// SaveTrace implements TraceStore.
func (s *FSStore) SaveTrace(_ context.Context, tr *trace.Trace) error {
	if tr == nil {
		return fmt.Errorf("trace is required")
	}
	if err := validateName("trace", tr.TraceID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeJSON(s.tracePath(tr.TraceID), tr); err != nil {
		return fmt.Errorf("save trace %q: %w", tr.TraceID, err)
	}
	return nil
}

// GetTrace implements TraceStore.
func (s *FSStore) GetTrace(_ context.Context, traceID string) (*trace.Trace, error) {
	if err := validateName("trace", traceID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.tracePath(traceID))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("trace %q: %w", traceID, ErrTraceNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load trace %q: %w", traceID, err)
	}

	var tr trace.Trace
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("decode trace %q: %w", traceID, err)
	}
	return &tr, nil
}

// ListTraces implements TraceStore.
func (s *FSStore) ListTraces(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listJSONNames(filepath.Join(s.root, tracesDir))
}

// DeleteTrace implements TraceStore.
func (s *FSStore) DeleteTrace(_ context.Context, traceID string) error {
	if err := validateName("trace", traceID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.tracePath(traceID))
	if os.IsNotExist(err) {
		return fmt.Errorf("trace %q: %w", traceID, ErrTraceNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete trace %q: %w", traceID, err)
	}
	return nil
}

// Close implements Store. The filesystem backend holds no resources.
func (s *FSStore) Close() error { return nil }

func (s *FSStore) baselinePath(name string) string {
	return filepath.Join(s.root, baselinesDir, name+jsonExt)
}

func (s *FSStore) tracePath(traceID string) string {
	return filepath.Join(s.root, tracesDir, traceID+jsonExt)
}

// writeJSON writes via a temp file and rename so readers never observe
// a partially written record.
func (s *FSStore) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func listJSONNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read storage directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), jsonExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), jsonExt))
	}
	sort.Strings(names)
	return names, nil
}
