// Package resultcache persists recognition results so repeated requests for
// the same source are served without running OCR again. Results are keyed by
// source URL or, for uploaded bytes, by content digest.
package resultcache

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/nats-io/nats.go/jetstream"
)

type ResultMetadata = map[string]string

// CachedResult contains pointers to metadata, the serialized recognition
// result and the key it is stored under
type CachedResult struct {
	Key      *string
	Metadata *map[string]string
	Payload  []byte
}

type Cache interface {
	GetMetadata(key string) (ResultMetadata, error)
	StreamResult(key string, w io.Writer) error
	Save(res CachedResult) (*jetstream.ObjectInfo, error)
}

// Digest returns the content-addressed cache key for data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

type NopCache struct{}

func (c *NopCache) GetMetadata(key string) (ResultMetadata, error) {
	return nil, nil
}

func (c *NopCache) StreamResult(key string, w io.Writer) error {
	return nil
}

func (c *NopCache) Save(res CachedResult) (*jetstream.ObjectInfo, error) {
	return &jetstream.ObjectInfo{}, nil
}
