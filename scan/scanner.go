// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package scan enumerates candidate documents under a set of labelled source locations.
//
// The scanner is read-only and lazy: directory listings happen as the returned
// sequence is consumed. Labels are visited in sorted order and entries within a
// location in filename order, so a run over an unchanged tree always yields the
// same sequence.
package scan

import (
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/poiesic/docimport/core"
)

// Scanner walks label→directory mappings and yields supported documents.
type Scanner struct {
	locations map[string]string
	logger    *slog.Logger
}

// New creates a Scanner over the given label→directory mapping.
// A nil logger uses slog.Default().
func New(locations map[string]string, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	copied := make(map[string]string, len(locations))
	for label, dir := range locations {
		copied[label] = dir
	}
	return &Scanner{
		locations: copied,
		logger:    logger.With("component", "scanner"),
	}
}

// Labels returns the configured labels in scan order.
func (s *Scanner) Labels() []string {
	labels := make([]string, 0, len(s.locations))
	for label := range s.locations {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Scan returns the candidate sequence. Each call restarts the walk.
func (s *Scanner) Scan() iter.Seq[core.SourceItem] {
	return func(yield func(core.SourceItem) bool) {
		for _, label := range s.Labels() {
			if !s.scanLocation(label, s.locations[label], yield) {
				return
			}
		}
	}
}

// scanLocation yields items for one label. It returns false if the consumer stopped.
func (s *Scanner) scanLocation(label, dir string, yield func(core.SourceItem) bool) bool {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("source location not found", "label", label, "path", dir)
		} else {
			s.logger.Warn("source location unreadable", "label", label, "path", dir, "error", err)
		}
		return true
	}
	if !info.IsDir() {
		s.logger.Warn("source location is not a directory", "label", label, "path", dir)
		return true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Warn("failed to list source location", "label", label, "path", dir, "error", err)
		return true
	}

	for _, entry := range entries {
		format, ok := core.FormatFromExt(filepath.Ext(entry.Name()))
		if !ok {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		// Stat follows symlinks; anything that isn't a regular file is skipped.
		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		if !yield(core.SourceItem{Path: path, Label: label, Format: format}) {
			return false
		}
	}
	return true
}

// Collect materializes the full candidate sequence.
func (s *Scanner) Collect() []core.SourceItem {
	return slices.Collect(s.Scan())
}

// Breakdown counts candidates per label.
func Breakdown(items []core.SourceItem) map[string]int {
	counts := make(map[string]int)
	for _, item := range items {
		counts[item.Label]++
	}
	return counts
}
