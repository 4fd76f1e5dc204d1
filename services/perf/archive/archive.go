// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package archive persists benchmark results across runs.
//
// Snapshots are stored in BadgerDB under
//
//	snapshot/<label>/<unix-nano, zero padded>
//
// so that a prefix scan returns one label's snapshots in recording order.
// Values are YAML documents; YAML keeps the NaN standard deviation of a
// single-sample result and the +Inf throughput of a zero-time trial.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/perfbench/services/perf/history"
	"github.com/AleutianAI/perfbench/services/perf/stats"
)

const keyPrefix = "snapshot/"

var (
	// ErrInvalidLabel indicates an empty label or one containing '/'.
	ErrInvalidLabel = errors.New("invalid snapshot label")

	// ErrNilResult indicates Save was called without a result.
	ErrNilResult = errors.New("result must not be nil")

	// ErrNoSnapshots indicates a label without any saved snapshot.
	ErrNoSnapshots = errors.New("no snapshots for label")
)

// Snapshot is the stored form of a history.Result.
type Snapshot struct {
	Label               string      `yaml:"label"`
	Reference           string      `yaml:"reference"`
	RecordedAt          time.Time   `yaml:"recorded_at"`
	Samples             int         `yaml:"samples"`
	ExecutionTime       stats.Stats `yaml:"execution_time_ms"`
	OperationsPerSecond stats.Stats `yaml:"operations_per_second"`
	UsedMemory          stats.Stats `yaml:"used_memory_mb"`
	Errors              []string    `yaml:"errors,omitempty"`
}

// NewSnapshot converts res. Errors are kept as messages.
func NewSnapshot(label string, res *history.Result, at time.Time) Snapshot {
	s := Snapshot{
		Label:               label,
		Reference:           res.Reference,
		RecordedAt:          at.UTC(),
		Samples:             res.Samples(),
		ExecutionTime:       res.ExecutionTime,
		OperationsPerSecond: res.OperationsPerSecond,
		UsedMemory:          res.UsedMemory,
	}
	for _, err := range res.Errors() {
		s.Errors = append(s.Errors, err.Error())
	}
	return s
}

// Archive saves and lists snapshots.
//
// Thread Safety: Safe for concurrent use.
type Archive struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

// New returns an Archive over db.
func New(db *DB, logger *slog.Logger) *Archive {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archive{db: db, logger: logger, now: time.Now}
}

// Save stores res under label.
//
// Description:
//
//	Stamps the snapshot with the current time. When another snapshot of
//	the same label already holds that nanosecond the stamp is moved
//	forward until the key is free.
//
// Outputs:
//   - Snapshot: What was stored.
//   - error: ErrInvalidLabel, ErrNilResult, or a storage error.
func (a *Archive) Save(ctx context.Context, label string, res *history.Result) (Snapshot, error) {
	if err := validateLabel(label); err != nil {
		return Snapshot{}, err
	}
	if res == nil {
		return Snapshot{}, ErrNilResult
	}

	at := a.now()
	var snap Snapshot
	err := a.db.update(ctx, func(txn *badger.Txn) error {
		for {
			_, err := txn.Get(snapshotKey(label, at))
			if errors.Is(err, badger.ErrKeyNotFound) {
				break
			}
			if err != nil {
				return err
			}
			at = at.Add(time.Nanosecond)
		}

		snap = NewSnapshot(label, res, at)
		data, err := yaml.Marshal(snap)
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		return txn.Set(snapshotKey(label, at), data)
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("save snapshot %s: %w", label, err)
	}

	a.logger.Debug("snapshot saved",
		slog.String("label", label),
		slog.String("reference", snap.Reference),
		slog.Int("samples", snap.Samples),
	)
	return snap, nil
}

// List returns the snapshots of label, oldest first.
//
// An unknown label yields an empty slice.
func (a *Archive) List(ctx context.Context, label string) ([]Snapshot, error) {
	if err := validateLabel(label); err != nil {
		return nil, err
	}

	var out []Snapshot
	prefix := []byte(keyPrefix + label + "/")
	err := a.db.view(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var snap Snapshot
			if err := it.Item().Value(func(val []byte) error {
				return yaml.Unmarshal(val, &snap)
			}); err != nil {
				return fmt.Errorf("decode snapshot %s: %w", it.Item().Key(), err)
			}
			out = append(out, snap)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Latest returns the most recent snapshot of label.
func (a *Archive) Latest(ctx context.Context, label string) (Snapshot, error) {
	snaps, err := a.List(ctx, label)
	if err != nil {
		return Snapshot{}, err
	}
	if len(snaps) == 0 {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNoSnapshots, label)
	}
	return snaps[len(snaps)-1], nil
}

// Labels returns every label with at least one snapshot, sorted.
func (a *Archive) Labels(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	prefix := []byte(keyPrefix)
	err := a.db.view(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rest := strings.TrimPrefix(string(it.Item().Key()), keyPrefix)
			if label, _, ok := strings.Cut(rest, "/"); ok {
				seen[label] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(seen))
	for label := range seen {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels, nil
}

func snapshotKey(label string, at time.Time) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d", keyPrefix, label, at.UnixNano()))
}

func validateLabel(label string) error {
	if label == "" || strings.Contains(label, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	return nil
}
