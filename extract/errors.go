package extract

import "errors"

var (
	// ErrDecoderUnavailable indicates a decoder's external tool is missing.
	ErrDecoderUnavailable = errors.New("decoder unavailable")

	// ErrUnsupportedFormat indicates no decoder is registered for a format.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrDecodeTimeout indicates a decode exceeded its time bound.
	ErrDecodeTimeout = errors.New("decode timed out")

	// ErrNoDocumentPart indicates a .docx archive without word/document.xml.
	ErrNoDocumentPart = errors.New("document part not found")
)
