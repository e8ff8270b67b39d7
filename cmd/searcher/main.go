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


package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/docimport/core"
	"github.com/poiesic/docimport/storage/badger"
)

var (
	dbPath = flag.String("db", "./docimport-data", "badger store written by docimport")
	limit  = flag.Int("n", 5, "maximum number of hits")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

// findRecords returns records whose title or body contains query, ignoring case.
func findRecords(records []*core.Record, query string, limit int) []*core.Record {
	query = strings.ToLower(query)
	var hits []*core.Record
	for _, r := range records {
		if limit > 0 && len(hits) == limit {
			break
		}
		if strings.Contains(strings.ToLower(r.Title), query) || strings.Contains(strings.ToLower(r.Body), query) {
			hits = append(hits, r)
		}
	}
	return hits
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func main() {
	flag.Parse()

	store, err := badger.Open(*dbPath, slog.Default())
	if err != nil {
		panic(err)
	}
	defer store.Close()

	ctx := context.Background()
	records, err := store.Records(ctx)
	if err != nil {
		panic(err)
	}

	query := "grace"
	if flag.NArg() > 0 {
		query = strings.Join(flag.Args(), " ")
	}
	results := findRecords(records, query, *limit)

	fmt.Printf("Found %d hits in %d records\n", len(results), len(records))
	for i, hit := range results {
		fmt.Printf("%d: '%s' [%s] %s (%016x)\n", i, hit.Title, hit.Label, firstLine(hit.Body), hit.Checksum)
	}
}
