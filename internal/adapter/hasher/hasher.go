package hasher

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/minio/highwayhash"

	"dupindex/internal/domain"
)

const defaultBufferSize = 1 << 20

// highwayKey is fixed so fingerprints are comparable across runs.
var highwayKey = []byte{
	0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
	0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F,
	0xF0, 0xE0, 0xD0, 0xC0, 0xB0, 0xA0, 0x90, 0x80,
	0x70, 0x60, 0x50, 0x40, 0x30, 0x20, 0x10, 0x00,
}

// Algorithm names a content hash.
type Algorithm struct {
	Name    string
	NewFunc func() hash.Hash
}

var algorithms = map[string]Algorithm{
	"md5":    {Name: "md5", NewFunc: md5.New},
	"sha1":   {Name: "sha1", NewFunc: sha1.New},
	"sha256": {Name: "sha256", NewFunc: sha256.New},
	"sha512": {Name: "sha512", NewFunc: sha512.New},
	"highwayhash": {Name: "highwayhash", NewFunc: func() hash.Hash {
		h, err := highwayhash.New(highwayKey)
		if err != nil {
			// only fails for a key that is not 32 bytes
			panic(err)
		}
		return h
	}},
}

// GetAlgorithm returns the algorithm registered under name.
func GetAlgorithm(name string) (Algorithm, error) {
	algo, ok := algorithms[strings.ToLower(name)]
	if !ok {
		return Algorithm{}, fmt.Errorf("%w: %s", domain.ErrUnknownAlgorithm, name)
	}
	return algo, nil
}

// Algorithms lists the registered algorithm names in sorted order.
func Algorithms() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Hasher fingerprints the full content of a file. Every call allocates its
// own hash state, so a Hasher may be shared between goroutines.
type Hasher struct {
	algo       Algorithm
	bufferSize int
}

func New(name string, bufferSize int) (*Hasher, error) {
	algo, err := GetAlgorithm(name)
	if err != nil {
		return nil, err
	}
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Hasher{algo: algo, bufferSize: bufferSize}, nil
}

// Name returns the algorithm name used as the fingerprint prefix.
func (h *Hasher) Name() string {
	return h.algo.Name
}

// Fingerprint returns "<algorithm>:<hex digest>" of the file content.
// The context is checked between buffer reads.
func (h *Hasher) Fingerprint(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	sum, err := h.sum(ctx, file)
	if err != nil {
		return "", err
	}
	return h.algo.Name + ":" + hex.EncodeToString(sum), nil
}

// Sum hashes r and returns the fingerprint string.
func (h *Hasher) Sum(ctx context.Context, r io.Reader) (string, error) {
	sum, err := h.sum(ctx, r)
	if err != nil {
		return "", err
	}
	return h.algo.Name + ":" + hex.EncodeToString(sum), nil
}

func (h *Hasher) sum(ctx context.Context, r io.Reader) ([]byte, error) {
	hw := h.algo.NewFunc()
	buf := make([]byte, h.bufferSize)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := r.Read(buf)
		if n > 0 {
			hw.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	return hw.Sum(nil), nil
}
