// Package fileinfo computes checksum and size metadata for files, used by
// the placement service's bit-identical reuse detection.
package fileinfo

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/gabriel-vasile/mimetype"
)

// Info groups size and checksum for a single file.
type Info struct {
	Size      int64
	SHA256Hex string
	Mimetype  string
}

// FromFile computes size and SHA-256 for filename, streaming rather than
// reading the whole file into memory (PDFs placed by this system can be
// large scans).
func FromFile(filename string) (Info, error) {
	f, err := os.Open(filename)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	mtype, err := mimetype.DetectFile(filename)
	if err != nil {
		return Info{}, err
	}

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Size:      n,
		SHA256Hex: hex.EncodeToString(h.Sum(nil)),
		Mimetype:  mtype.String(),
	}, nil
}

// IdenticalContent reports whether two files are byte-identical: same size
// and same SHA-256 digest. Size is compared first since it is cheap and a
// mismatch rules out identity without hashing.
func IdenticalContent(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	if ai.Size() != bi.Size() {
		return false, nil
	}
	infoA, err := FromFile(a)
	if err != nil {
		return false, err
	}
	infoB, err := FromFile(b)
	if err != nil {
		return false, err
	}
	return infoA.SHA256Hex == infoB.SHA256Hex, nil
}
