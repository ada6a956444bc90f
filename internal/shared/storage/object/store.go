package object

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"ats-backend/internal/shared/util"
)

// ErrInvalidKey is returned for keys that escape the store root.
var ErrInvalidKey = errors.New("invalid storage key")

// Object describes a stored upload.
type Object struct {
	Key         string
	Size        int64
	ContentType string
}

// ObjectStore saves uploaded documents and the text derived from them.
type ObjectStore interface {
	// Save stores r under a fresh key in the owner's namespace.
	Save(ctx context.Context, ownerID, fileName string, r io.Reader) (Object, error)
	// SaveWithKey writes r at a caller-chosen key, replacing any previous copy.
	SaveWithKey(ctx context.Context, key, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// NewKey builds "<owner hash>/<random>_<file name>". Owner ids never appear in
// keys verbatim.
func NewKey(ownerID, fileName string) (string, error) {
	name, err := util.SafeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	return path.Join(util.OwnerDir(ownerID), randomID()+"_"+name), nil
}

// CleanKey rejects absolute keys and keys that climb out of the root.
func CleanKey(key string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(key, "\\", "/"))
	if clean == "." || strings.HasPrefix(clean, "/") || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidKey
	}
	return clean, nil
}

// Sniff detects the content type from the first 512 bytes and returns a
// reader that still yields the whole body.
func Sniff(r io.Reader) (string, io.Reader, error) {
	var head [512]byte
	n, err := io.ReadFull(r, head[:])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("read head: %w", err)
	}
	return http.DetectContentType(head[:n]), io.MultiReader(bytes.NewReader(head[:n]), r), nil
}

// CountingReader counts bytes read through it.
type CountingReader struct {
	R io.Reader
	N int64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	c.N += int64(n)
	return n, err
}

func randomID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
