package documents

import "time"

// Document is an uploaded PDF owned by a user. The file itself lives in the
// object store under StorageKey; SHA256 is the hex digest of its bytes.
type Document struct {
	ID               string
	UserID           string
	FileName         string
	MimeType         string
	SizeBytes        int64
	SHA256           string
	StorageProvider  string
	StorageKey       string
	ExtractedTextKey string
	ExtractedAt      *time.Time
	CreatedAt        time.Time
}

// TextCached reports whether extracted text has already been written next to
// the original.
func (d Document) TextCached() bool {
	return d.ExtractedTextKey != "" && d.ExtractedAt != nil
}
