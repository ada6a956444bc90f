package documents

import "time"

// DocumentResponse is the API view of a Document. Storage keys stay internal.
type DocumentResponse struct {
	DocumentID  string     `json:"documentId"`
	FileName    string     `json:"fileName"`
	MimeType    string     `json:"mimeType"`
	SizeBytes   int64      `json:"sizeBytes"`
	SHA256      string     `json:"sha256,omitempty"`
	UploadedAt  time.Time  `json:"uploadedAt"`
	ExtractedAt *time.Time `json:"extractedAt,omitempty"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		DocumentID:  doc.ID,
		FileName:    doc.FileName,
		MimeType:    doc.MimeType,
		SizeBytes:   doc.SizeBytes,
		SHA256:      doc.SHA256,
		UploadedAt:  doc.CreatedAt,
		ExtractedAt: doc.ExtractedAt,
	}
}
