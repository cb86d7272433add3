package util

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path"
	"regexp"
	"strings"
	"unicode"
)

const (
	ownerKeyLen     = 32
	maxFileNameRune = 120
)

var (
	ErrInvalidFileName = errors.New("invalid file name")

	slugUnsafe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// OwnerKey maps a user or guest id to a stable hex prefix for object keys, so
// raw identities never appear in storage paths.
func OwnerKey(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])[:ownerKeyLen]
}

// SanitizeFileName flattens path separators, drops control characters and
// caps the length while keeping the extension. Traversal and empty names are
// rejected.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, strings.TrimSpace(name))
	if strings.Trim(s, "_ ") == "" {
		return "", ErrInvalidFileName
	}

	runes := []rune(s)
	if len(runes) <= maxFileNameRune {
		return s, nil
	}
	ext := []rune(path.Ext(s))
	if len(ext) >= maxFileNameRune {
		ext = nil
	}
	return string(runes[:maxFileNameRune-len(ext)]) + string(ext), nil
}

// Slug reduces s to a download-safe token: runs of other characters become a
// single dash. An empty result yields fallback.
func Slug(s, fallback string) string {
	out := strings.Trim(slugUnsafe.ReplaceAllString(strings.TrimSpace(s), "-"), "-")
	if out == "" {
		return fallback
	}
	return out
}
