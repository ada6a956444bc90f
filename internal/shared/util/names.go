package util

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path"
	"strings"
	"unicode"
)

const maxFileNameLength = 120

var ErrInvalidFileName = errors.New("invalid file name")

// OwnerDir maps a user id ("google:123", "guest:abc") to a stable hex
// directory name.
func OwnerDir(ownerID string) string {
	sum := sha256.Sum256([]byte(ownerID))
	return hex.EncodeToString(sum[:])
}

// SafeFileName reduces an uploaded file name to its base name with
// separators and control characters replaced. Long names are cut from the
// front of the stem so the extension survives.
func SafeFileName(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	name = path.Base(name)
	if name == "." || name == "/" || name == "" {
		return "", ErrInvalidFileName
	}
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == '/' {
			return '_'
		}
		return r
	}, name)
	if len(name) > maxFileNameLength {
		ext := path.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		stem := strings.TrimSuffix(name, ext)
		name = stem[:maxFileNameLength-len(ext)] + ext
	}
	return name, nil
}
