package profile

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"ats-backend/internal/extract"
)

// MaxDocumentBytes is the upload ceiling for resume documents.
const MaxDocumentBytes = 5 << 20

// MimePDF is the only accepted document type.
const MimePDF = "application/pdf"

// Document is an uploaded resume file held in memory.
type Document struct {
	FileName    string
	ContentType string
	Data        []byte
}

// CheckDocument enforces the upload policy without extracting anything:
// non-empty, at most MaxDocumentBytes, and a PDF by both declared type and
// content.
func CheckDocument(size int64, contentType string, head []byte) error {
	if size <= 0 {
		return invalid("file", "document is empty")
	}
	if size > MaxDocumentBytes {
		return invalid("file", "document exceeds %d MB", MaxDocumentBytes>>20)
	}
	declared := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if declared != "" && declared != MimePDF && declared != "application/octet-stream" {
		return invalid("file", "unsupported document type %q, only PDF is accepted", declared)
	}
	if sniffed := http.DetectContentType(head); sniffed != MimePDF {
		return invalid("file", "document is not a PDF")
	}
	return nil
}

// FromDocument validates an uploaded document, extracts its text and segments
// it into sections.
func FromDocument(ctx context.Context, doc Document) (Input, error) {
	if err := CheckDocument(int64(len(doc.Data)), doc.ContentType, doc.Data); err != nil {
		return Input{}, err
	}
	text, err := extract.PDFText(ctx, doc.Data)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Input{}, err
		}
		return Input{}, invalid("file", "document text could not be extracted")
	}
	return FromExtractedText(text)
}

// FromExtractedText segments text already extracted from a stored document.
func FromExtractedText(text string) (Input, error) {
	if strings.TrimSpace(text) == "" {
		return Input{}, invalid("file", "document has no extractable text")
	}
	return NewInput(SourceDocument, Segment(text)), nil
}

// FromFields maps caller-labelled pasted text onto sections. Labels are matched
// case-insensitively against section names and common aliases; blank values
// are treated as absent.
func FromFields(fields map[string]string) (Input, error) {
	values := make(map[SectionName]*Value, SectionCount)
	for label, raw := range fields {
		name, ok := LookupSection(label)
		if !ok {
			return Input{}, invalid(label, "unknown section")
		}
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		if values[name] != nil {
			return Input{}, invalid(label, "section %s given more than once", name)
		}
		switch name {
		case Skills:
			values[name] = ListValue(splitSkills(text))
		case Followers:
			n, ok := parseCount(text)
			if !ok {
				return Input{}, invalid(label, "followers must be a whole number")
			}
			values[name] = CountValue(n)
		default:
			values[name] = TextValue(text)
		}
	}
	return NewInput(SourceText, values), nil
}

// parseCount accepts "1234", "1,234" and "500+".
func parseCount(s string) (int, bool) {
	s = strings.TrimSuffix(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), "+")
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
