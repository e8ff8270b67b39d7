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


package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	documentPart  = "word/document.xml"
)

// DocxDecoder extracts body paragraph text from .docx archives.
// Table cells, headers, footers and text boxes are not included.
type DocxDecoder struct{}

// NewDocxDecoder creates a DocxDecoder.
func NewDocxDecoder() *DocxDecoder {
	return &DocxDecoder{}
}

// Decode opens the archive at path and returns its paragraph text.
func (d *DocxDecoder) Decode(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()
	return decodeArchive(&zr.Reader)
}

// DecodeReader decodes an archive held in r.
func (d *DocxDecoder) DecodeReader(r io.ReaderAt, size int64) (string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	return decodeArchive(zr)
}

func decodeArchive(zr *zip.Reader) (string, error) {
	for _, f := range zr.File {
		if f.Name != documentPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", documentPart, err)
		}
		defer rc.Close()
		paragraphs, err := bodyParagraphs(rc)
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", documentPart, err)
		}
		return strings.Join(paragraphs, "\n"), nil
	}
	return "", ErrNoDocumentPart
}

// bodyParagraphs streams document.xml and returns the text of each w:p that is
// a direct child of w:body.
func bodyParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		stack      []string
		paragraphs []string
		current    strings.Builder
		inPara     bool
		paraDepth  int
		inText     bool
		skipDepth  int // >0 while inside a nested text box
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			local := t.Name.Local
			isWord := t.Name.Space == wordNamespace
			if isWord && local == "p" && !inPara && len(stack) > 0 && stack[len(stack)-1] == "body" {
				inPara = true
				paraDepth = len(stack)
				current.Reset()
			} else if inPara && isWord && local == "txbxContent" {
				skipDepth++
			} else if inPara && skipDepth == 0 && isWord {
				switch local {
				case "t":
					inText = true
				case "tab":
					current.WriteByte('\t')
				case "br", "cr":
					current.WriteByte('\n')
				}
			}
			if isWord {
				stack = append(stack, local)
			} else {
				stack = append(stack, "")
			}

		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if t.Name.Space != wordNamespace || !inPara {
				continue
			}
			switch {
			case t.Name.Local == "txbxContent" && skipDepth > 0:
				skipDepth--
			case t.Name.Local == "t":
				inText = false
			case t.Name.Local == "p" && len(stack) == paraDepth:
				paragraphs = append(paragraphs, current.String())
				inPara = false
			}

		case xml.CharData:
			if inPara && inText && skipDepth == 0 {
				current.Write(t)
			}
		}
	}
	return paragraphs, nil
}
