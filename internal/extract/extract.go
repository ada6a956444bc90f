package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"ats-backend/internal/shared/storage/object"
	"ats-backend/internal/shared/telemetry"
)

// ErrNotPDF is returned for payloads without a PDF header.
var ErrNotPDF = errors.New("not a pdf document")

const extractedSuffix = ".extracted.txt"

// TextKey is the storage key of the derived text copy for a stored PDF.
func TextKey(fileKey string) string {
	return fileKey + extractedSuffix
}

// PDFText returns the plain text of an in-memory PDF, one line per text row.
func PDFText(ctx context.Context, data []byte) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) {
		return "", ErrNotPDF
	}
	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("read pdf: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		for _, row := range rows {
			var line strings.Builder
			for _, word := range row.Content {
				line.WriteString(word.S)
			}
			b.WriteString(strings.TrimRight(line.String(), " "))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// StoredPDFText extracts text from a stored PDF and keeps a derived
// .extracted.txt copy next to it. A cached copy is reused on later calls.
func StoredPDFText(ctx context.Context, store object.ObjectStore, fileKey string) (string, error) {
	if cached, ok := readCached(ctx, store, TextKey(fileKey)); ok {
		return cached, nil
	}

	body, err := store.Open(ctx, fileKey)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s: %w", fileKey, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s: read: %w", fileKey, err)
	}

	text, err := PDFText(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s: %w", fileKey, err)
	}

	if _, err := store.SaveWithKey(ctx, TextKey(fileKey), "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		telemetry.ErrorContext(ctx, "extract.cache_write_failed", map[string]any{"key": fileKey, "error": err.Error()})
	}
	return text, nil
}

func readCached(ctx context.Context, store object.ObjectStore, key string) (string, bool) {
	rc, err := store.Open(ctx, key)
	if err != nil {
		return "", false
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil || len(raw) == 0 {
		return "", false
	}
	return string(raw), true
}
