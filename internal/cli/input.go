package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ats-backend/internal/analyses"
	"ats-backend/internal/profile"
)

type inputKind int

const (
	kindText inputKind = iota
	kindPDF
	kindPayload
)

// inputFile is a resume or profile read from disk. The kind follows the
// extension: .pdf, .json (third-party profile payload), anything else is
// plain text.
type inputFile struct {
	name string
	kind inputKind
	data []byte
}

func readInput(path string) (inputFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return inputFile{}, err
	}
	f := inputFile{name: filepath.Base(path), data: data}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		f.kind = kindPDF
	case ".json":
		f.kind = kindPayload
	default:
		f.kind = kindText
	}
	return f, nil
}

func (f inputFile) payload() (profile.ThirdPartyProfile, error) {
	var p profile.ThirdPartyProfile
	if err := json.Unmarshal(f.data, &p); err != nil {
		return p, fmt.Errorf("decode %s: %w", f.name, err)
	}
	return p, nil
}

// normalize turns the file into the canonical profile record.
func (f inputFile) normalize(ctx context.Context) (profile.Input, error) {
	switch f.kind {
	case kindPDF:
		return profile.FromDocument(ctx, profile.Document{FileName: f.name, ContentType: profile.MimePDF, Data: f.data})
	case kindPayload:
		p, err := f.payload()
		if err != nil {
			return profile.Input{}, err
		}
		return profile.FromPayload(p)
	default:
		return profile.FromExtractedText(string(f.data))
	}
}

// submission maps the file onto a pipeline submission. Plain text goes
// through the document path, served by textSource.
func (f inputFile) submission(userID string) (analyses.Submission, analyses.DocumentSource, error) {
	sub := analyses.Submission{UserID: userID}
	switch f.kind {
	case kindPDF:
		sub.Document = &profile.Document{FileName: f.name, ContentType: profile.MimePDF, Data: f.data}
		return sub, nil, nil
	case kindPayload:
		p, err := f.payload()
		if err != nil {
			return sub, nil, err
		}
		sub.Payload = &p
		return sub, nil, nil
	default:
		sub.DocumentID = f.name
		return sub, textSource{id: f.name, text: string(f.data)}, nil
	}
}

type textSource struct {
	id   string
	text string
}

func (s textSource) Text(_ context.Context, _, documentID string) (string, error) {
	if documentID != s.id {
		return "", analyses.ErrNotFound
	}
	return s.text, nil
}
