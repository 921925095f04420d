// Package checksum verifies the integrity of downloaded files against an
// expected SHA-256 digest.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/cwillem/addonstore/pkg/errors"
)

// FileSHA256 computes the hex-encoded SHA-256 digest of the full content of
// the file at path. The file is streamed, never loaded into memory at once.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open for checksum")
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrap(err, "hashing")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FileMatches reports whether the SHA-256 digest of the file at path equals
// wantHex. The comparison is case-insensitive; surrounding whitespace in
// wantHex is ignored.
func FileMatches(path, wantHex string) (bool, error) {
	got, err := FileSHA256(path)
	if err != nil {
		return false, err
	}
	return got == normalizeHex(wantHex), nil
}

// Sum256Hex returns the hex-encoded SHA-256 digest of data. Used for
// certificate fingerprints and tests.
func Sum256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func normalizeHex(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
