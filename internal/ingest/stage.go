package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// StagedUpload is a handle to a not-yet-committed upload sitting in the
// staging directory. It is either discarded (bytes removed) on rejection or
// consumed into canonical storage on commit, never both.
type StagedUpload struct {
	Path string
	Size int64

	discarded bool
}

// Stager spools request bodies into uniquely named files under a local
// staging directory, enforcing a hard byte ceiling while copying.
type Stager struct {
	dir      string
	maxBytes int64
}

// NewStager returns a Stager writing to dir with the given size ceiling.
// An empty dir falls back to the OS temp directory.
func NewStager(dir string, maxBytes int64) *Stager {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Stager{dir: dir, maxBytes: maxBytes}
}

// Stage copies r into a new staging file. It reads at most maxBytes+1 bytes:
// the input is never buffered unbounded, and anything past the ceiling
// surfaces as ErrInputTooLarge with the partial file already removed.
func (s *Stager) Stage(ctx context.Context, r io.Reader) (*StagedUpload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.CreateTemp(s.dir, "stage-*.bin")
	if err != nil {
		return nil, StorageError("create staging file", err)
	}

	n, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return nil, StorageError("write staging file", err)
	}
	if n > s.maxBytes {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("%w (limit %d bytes)", ErrInputTooLarge, s.maxBytes)
	}

	return &StagedUpload{Path: f.Name(), Size: n}, nil
}

// Open returns a reader over the staged bytes. Callers may open the file
// multiple times; each reader is independent.
func (u *StagedUpload) Open() (io.ReadCloser, error) {
	return os.Open(u.Path)
}

// Head reads up to n leading bytes of the staged file for signature
// inspection.
func (u *StagedUpload) Head(n int) ([]byte, error) {
	f, err := os.Open(u.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:read], nil
}

// Discard removes the staged bytes. It is idempotent: repeated calls and an
// already-missing file both return nil.
func (u *StagedUpload) Discard() error {
	if u.discarded {
		return nil
	}
	u.discarded = true
	if err := os.Remove(u.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
