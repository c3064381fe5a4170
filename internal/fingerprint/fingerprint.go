// Package fingerprint computes the cheap change-detection digest used by
// the indexer: a hash of the first 4 KB of file content plus the decimal
// file size. It is a change signal, not a cryptographic identity; two
// files sharing prefix and size produce the same digest.
package fingerprint

import (
	"crypto/md5" //nolint:gosec // change-detection digest, not a security boundary
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
)

// PrefixSize is the number of leading bytes hashed from each file.
const PrefixSize = 4096

// Compute returns the hex-encoded fingerprint of the file at path.
// Files smaller than PrefixSize hash only the bytes present.
func Compute(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	h := md5.New() //nolint:gosec // see package comment
	if _, err := io.CopyN(h, f, PrefixSize); err != nil && err != io.EOF {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	h.Write([]byte(strconv.FormatInt(info.Size(), 10)))

	return hex.EncodeToString(h.Sum(nil)), nil
}
