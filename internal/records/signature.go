package records

import (
	"time"

	"github.com/digitalcampus/ijazah-ledger/pkg/codec"
	"github.com/digitalcampus/ijazah-ledger/pkg/enums"
	pkgerrors "github.com/digitalcampus/ijazah-ledger/pkg/errors"
)

// Signature is the ledger record for one signing authority's signature
// image. At most one signature is active at any committed state; Owner is
// set at creation and never changes.
type Signature struct {
	ID          string           `json:"id" validate:"required"`
	Kind        enums.RecordKind `json:"kind"`
	ArtifactRef string           `json:"artifact_ref"`
	Owner       string           `json:"owner" validate:"required"`
	IsActive    bool             `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the mandatory fields. ArtifactRef is checked separately so
// its absence surfaces as a missing-artifact failure rather than a plain
// validation failure.
func (s *Signature) Validate() error {
	return validateStruct(s)
}

// Touch refreshes the mutation timestamp.
func (s *Signature) Touch(now time.Time) {
	s.UpdatedAt = now
}

// DecodeSignature decodes canonical bytes into a signature, rejecting values
// of any other kind.
func DecodeSignature(data []byte) (*Signature, error) {
	kind, err := codec.Kind(data)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding stored record")
	}
	if kind != enums.RecordKindSignature {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "record is a %s, not a signature", kind)
	}
	var sig Signature
	if err := codec.Unmarshal(data, &sig); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding signature record")
	}
	return &sig, nil
}
