// Package codec produces the canonical byte form of ledger records.
//
// Every replica must compute identical bytes for identical logical state, so
// the encoding is compact JSON with struct fields in declaration order and
// map keys sorted. Records must round-trip through Marshal/Unmarshal without
// loss.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/digitalcampus/ijazah-ledger/pkg/enums"
)

// Marshal returns the canonical serialized form of v.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("canonical marshal: %w", err)
	}
	// Encoder appends a newline; canonical form has none.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Unmarshal decodes canonical bytes into dest.
func Unmarshal(data []byte, dest any) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("canonical unmarshal: %w", err)
	}
	return nil
}

type envelope struct {
	Kind string `json:"kind"`
}

// Kind peeks the discriminator field of a serialized record without decoding
// the full value.
func Kind(data []byte) (enums.RecordKind, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("peeking record kind: %w", err)
	}
	kind, err := enums.ParseRecordKind(env.Kind)
	if err != nil {
		return "", err
	}
	return kind, nil
}
