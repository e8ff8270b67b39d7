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


// Package storage defines the destination boundary for docimport.
//
// A Destination receives batches of records and persists each batch as a
// single unit: either every record in the batch becomes visible or none does.
// Four implementations live in sub-packages:
//
//   - badger: embedded BadgerDB store, one transaction per batch
//   - postgres: direct bulk write over database/sql, one transaction per batch
//   - api: one HTTP request per record against the application's REST API
//   - script: stages SQL statements and executes them with psql at Finalize
//
// # Constructor Return Type Pattern
//
// Public constructors return concrete types so callers can reach
// backend-specific read-back helpers (Records, Count, EditCount) in tests. The
// pipeline itself only ever depends on the Destination interface.
//
// # Usage
//
//	dest, err := badger.Open("/path/to/db", slog.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dest.Close()
//
// Use in tests with in-memory storage:
//
//	dest, err := badger.OpenMemory()
//
// # Insert-or-ignore
//
// Records are keyed by their identifier. A record whose identifier already
// exists is ignored rather than treated as an error, and is reported in
// CommitResult.Ignored.
//
// # Thread Safety
//
// Destinations must tolerate Commit being called from one goroutine while Ping
// or read-back helpers run on others. The pipeline never issues two Commits
// concurrently.
package storage
