package ingest

import (
	"encoding/hex"
	"io"

	"github.com/zeebo/blake3"
)

// Digest computes the hex-encoded BLAKE3 digest of everything in r. The
// digest is the content's identity for dedup purposes; it is not used as an
// integrity signature, so accidental-collision resistance is all that is
// asked of it.
func Digest(r io.Reader) (string, error) {
	h := blake3.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
