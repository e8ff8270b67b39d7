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


// Package extract turns source documents into plain text.
//
// Each supported format has a Decoder. Legacy .doc files are decoded by the
// external antiword tool, invoked through a CommandRunner so tests can stub it.
// .docx files are decoded in-process by reading word/document.xml from the
// OOXML archive.
//
// The Extractor dispatches by format and never returns an error: every failure
// is folded into a core.ExtractionResult carrying a ReasonCode. Start-up
// preconditions (such as antiword being installed) are verified separately via
// Check so that their absence can abort a run before any item is processed.
package extract
