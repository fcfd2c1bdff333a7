package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentprobe/internal/trace"
)

const instrumentationName = "github.com/fyrsmithlabs/agentprobe/internal/storage"

const (
	baselineKeyPrefix = "baseline/"
	traceKeyPrefix    = "trace/"
)

// BadgerConfig configures the embedded BadgerDB backend.
type BadgerConfig struct {
	// Path is the directory for database files. Ignored when InMemory
	// is true.
	Path string

	// InMemory keeps all data in RAM, useful for testing.
	InMemory bool

	// SyncWrites flushes every write to disk before returning.
	SyncWrites bool
}

// DefaultBadgerConfig returns production defaults.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{Path: path, SyncWrites: true}
}

// InMemoryBadgerConfig returns a configuration for tests.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// BadgerStore persists baselines and traces in an embedded BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	logger *zap.Logger

	tracer      oteltrace.Tracer
	meter       metric.Meter
	saveCounter metric.Int64Counter
	loadCounter metric.Int64Counter

	mu     sync.RWMutex
	closed bool
}

// NewBadgerStore opens the database and prepares telemetry.
func NewBadgerStore(cfg BadgerConfig, logger *zap.Logger) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithLogger(&badgerZapLogger{logger: logger.Named("badger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}
	s.initMetrics()
	return s, nil
}

func (s *BadgerStore) initMetrics() {
	var err error

	s.saveCounter, err = s.meter.Int64Counter(
		"agentprobe.storage.saves_total",
		metric.WithDescription("Total number of records saved"),
		metric.WithUnit("{save}"),
	)
	if err != nil {
		s.logger.Warn("failed to create save counter", zap.Error(err))
	}

	s.loadCounter, err = s.meter.Int64Counter(
		"agentprobe.storage.loads_total",
		metric.WithDescription("Total number of records loaded"),
		metric.WithUnit("{load}"),
	)
	if err != nil {
		s.logger.Warn("failed to create load counter", zap.Error(err))
	}
}

// Save implements BaselineStore.
func (s *BadgerStore) Save(ctx context.Context, baseline *Baseline) error {
	ctx, span := s.tracer.Start(ctx, "storage.save_baseline")
	defer span.End()

	if baseline == nil {
		return fmt.Errorf("baseline is required")
	}
	if err := validateName("baseline", baseline.Name); err != nil {
		return err
	}
	if baseline.CreatedAt.IsZero() {
		baseline.CreatedAt = time.Now().UTC()
	}
	span.SetAttributes(attribute.String("baseline", baseline.Name))

	if err := s.setJSON(baselineKeyPrefix+baseline.Name, baseline); err != nil {
		span.RecordError(err)
		return fmt.Errorf("save baseline %q: %w", baseline.Name, err)
	}
	if s.saveCounter != nil {
		s.saveCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "baseline")))
	}
	return nil
}

// Load implements BaselineStore.
func (s *BadgerStore) Load(ctx context.Context, name string) (*Baseline, error) {
	ctx, span := s.tracer.Start(ctx, "storage.load_baseline")
	defer span.End()

	if err := validateName("baseline", name); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("baseline", name))

	var baseline Baseline
	if err := s.getJSON(baselineKeyPrefix+name, &baseline); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("baseline %q: %w", name, ErrBaselineNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("load baseline %q: %w", name, err)
	}
	if s.loadCounter != nil {
		s.loadCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "baseline")))
	}
	return &baseline, nil
}

// Exists implements BaselineStore.
func (s *BadgerStore) Exists(_ context.Context, name string) (bool, error) {
	if err := validateName("baseline", name); err != nil {
		return false, err
	}
	return s.hasKey(baselineKeyPrefix + name)
}

// List implements BaselineStore.
func (s *BadgerStore) List(_ context.Context) ([]string, error) {
	return s.listKeys(baselineKeyPrefix)
}

// Delete implements BaselineStore.
func (s *BadgerStore) Delete(_ context.Context, name string) error {
	if err := validateName("baseline", name); err != nil {
		return err
	}
	if err := s.deleteKey(baselineKeyPrefix + name); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("baseline %q: %w", name, ErrBaselineNotFound)
		}
		return fmt.Errorf("delete baseline %q: %w", name, err)
	}
	return nil
}

// SaveTrace implements TraceStore.
func (s *BadgerStore) SaveTrace(ctx context.Context, tr *trace.Trace) error {
	ctx, span := s.tracer.Start(ctx, "storage.save_trace")
	defer span.End()

	if tr == nil {
		return fmt.Errorf("trace is required")
	}
	if err := validateName("trace", tr.TraceID); err != nil {
		return err
	}
	span.SetAttributes(attribute.String("trace_id", tr.TraceID))

	if err := s.setJSON(traceKeyPrefix+tr.TraceID, tr); err != nil {
		span.RecordError(err)
		return fmt.Errorf("save trace %q: %w", tr.TraceID, err)
	}
	if s.saveCounter != nil {
		s.saveCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "trace")))
	}
	return nil
}

// GetTrace implements TraceStore.
func (s *BadgerStore) GetTrace(ctx context.Context, traceID string) (*trace.Trace, error) {
	ctx, span := s.tracer.Start(ctx, "storage.get_trace")
	defer span.End()

	if err := validateName("trace", traceID); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("trace_id", traceID))

	var tr trace.Trace
	if err := s.getJSON(traceKeyPrefix+traceID, &tr); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("trace %q: %w", traceID, ErrTraceNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("load trace %q: %w", traceID, err)
	}
	if s.loadCounter != nil {
		s.loadCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "trace")))
	}
	return &tr, nil
}

// ListTraces implements TraceStore.
func (s *BadgerStore) ListTraces(_ context.Context) ([]string, error) {
	return s.listKeys(traceKeyPrefix)
}

// DeleteTrace implements TraceStore.
func (s *BadgerStore) DeleteTrace(_ context.Context, traceID string) error {
	if err := validateName("trace", traceID); err != nil {
		return err
	}
	if err := s.deleteKey(traceKeyPrefix + traceID); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("trace %q: %w", traceID, ErrTraceNotFound)
		}
		return fmt.Errorf("delete trace %q: %w", traceID, err)
	}
	return nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *BadgerStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New("store is closed")
	}
	return nil
}

func (s *BadgerStore) setJSON(key string, v any) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *BadgerStore) getJSON(key string, v any) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(data []byte) error {
			return json.Unmarshal(data, v)
		})
	})
}

func (s *BadgerStore) hasKey(key string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *BadgerStore) deleteKey(key string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err != nil {
			return err
		}
		return txn.Delete([]byte(key))
	})
}

func (s *BadgerStore) listKeys(prefix string) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			names = append(names, key[len(prefix):])
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// badgerZapLogger adapts zap to BadgerDB's Logger interface.
type badgerZapLogger struct {
	logger *zap.Logger
}

func (l *badgerZapLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerZapLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerZapLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerZapLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
