// Package artifacts defines the contract's view of the off-ledger blob
// store. Binary artifacts (PDFs, photos, signature images) never enter the
// ledger; callers resolve them to stable content identifiers first and store
// only the identifier on the record.
package artifacts

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// RefPrefix tags content identifiers produced by this package.
const RefPrefix = "b2:"

// Resolver converts uploaded binary content into a stable content
// identifier. Implemented by the external blob store; the contract only
// consumes the identifiers.
type Resolver interface {
	Resolve(ctx context.Context, content io.Reader) (string, error)
}

// ContentID derives the content identifier for the given bytes.
func ContentID(data []byte) string {
	sum := blake2b.Sum256(data)
	return RefPrefix + hex.EncodeToString(sum[:])
}

// IsRef reports whether value looks like a content identifier produced here.
func IsRef(value string) bool {
	if !strings.HasPrefix(value, RefPrefix) {
		return false
	}
	digest := strings.TrimPrefix(value, RefPrefix)
	if len(digest) != hex.EncodedLen(blake2b.Size256) {
		return false
	}
	_, err := hex.DecodeString(digest)
	return err == nil
}

// HashResolver is a Resolver that addresses content by its blake2b digest
// without persisting it. Used in tests and by callers that store blobs
// elsewhere.
type HashResolver struct{}

func (HashResolver) Resolve(ctx context.Context, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("reading artifact content: %w", err)
	}
	return ContentID(data), nil
}
