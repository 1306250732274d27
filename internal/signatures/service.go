package signatures

import (
	"context"
	"fmt"
	"time"

	"github.com/digitalcampus/ijazah-ledger/internal/records"
	"github.com/digitalcampus/ijazah-ledger/pkg/enums"
	pkgerrors "github.com/digitalcampus/ijazah-ledger/pkg/errors"
)

// Service enforces the signature lifecycle and the global invariant that at
// most one signature is active at any committed state. Every method runs
// inside the single ledger transaction the service was constructed for.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*records.Signature, error)
	Read(ctx context.Context, id string) (*records.Signature, error)
	// GetAll returns every signature in key order. A non-nil error
	// aggregates per-record decode failures the caller should log; the
	// returned slice is valid regardless.
	GetAll(ctx context.Context) ([]records.Signature, error)
	Update(ctx context.Context, id string, input UpdateInput) (*records.Signature, error)
	SetActive(ctx context.Context, id string) (*records.Signature, error)
	GetActive(ctx context.Context) (*records.Signature, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	repo Repository
	now  time.Time
}

// NewService wires a signature activation service for one transaction. The
// timestamp comes from the transaction submission boundary.
func NewService(repo Repository, now time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("signature repository required")
	}
	return &service{repo: repo, now: now.UTC()}, nil
}

// CreateInput carries the caller-supplied fields for a new signature.
type CreateInput struct {
	ID          string `json:"id"`
	ArtifactRef string `json:"artifact_ref"`
	Owner       string `json:"owner"`
	IsActive    bool   `json:"is_active"`
}

// UpdateInput carries a partial overwrite. Owner is immutable and therefore
// absent. Setting IsActive true behaves as SetActive to preserve the
// single-active invariant.
type UpdateInput struct {
	ArtifactRef *string `json:"artifact_ref"`
	IsActive    *bool   `json:"is_active"`
}

func (s *service) Create(ctx context.Context, input CreateInput) (*records.Signature, error) {
	sig := &records.Signature{
		ID:          input.ID,
		Kind:        enums.RecordKindSignature,
		ArtifactRef: input.ArtifactRef,
		Owner:       input.Owner,
		IsActive:    false,
		CreatedAt:   s.now,
		UpdatedAt:   s.now,
	}

	if err := sig.Validate(); err != nil {
		return nil, err
	}
	if sig.ArtifactRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeMissingArtifact, "signature artifact reference is required")
	}

	taken, err := s.repo.ExistsAnyKind(ctx, sig.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, pkgerrors.Newf(pkgerrors.CodeAlreadyExists, "record %q already exists", sig.ID)
	}

	if err := s.repo.Put(ctx, sig); err != nil {
		return nil, err
	}
	if input.IsActive {
		return s.SetActive(ctx, sig.ID)
	}
	return sig, nil
}

func (s *service) Read(ctx context.Context, id string) (*records.Signature, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) GetAll(ctx context.Context) ([]records.Signature, error) {
	return s.repo.List(ctx)
}

func (s *service) Update(ctx context.Context, id string, input UpdateInput) (*records.Signature, error) {
	sig, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.ArtifactRef != nil {
		if *input.ArtifactRef == "" {
			return nil, pkgerrors.New(pkgerrors.CodeMissingArtifact, "signature artifact reference is required")
		}
		sig.ArtifactRef = *input.ArtifactRef
	}

	if input.IsActive != nil && *input.IsActive {
		// Activation is never a plain field write.
		sig.Touch(s.now)
		if err := s.repo.Put(ctx, sig); err != nil {
			return nil, err
		}
		return s.SetActive(ctx, id)
	}
	if input.IsActive != nil {
		sig.IsActive = false
	}

	sig.Touch(s.now)
	if err := s.repo.Put(ctx, sig); err != nil {
		return nil, err
	}
	return sig, nil
}

func (s *service) SetActive(ctx context.Context, id string) (*records.Signature, error) {
	target, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	all, warnings := s.repo.List(ctx)
	if warnings != nil {
		// A record that cannot be decoded might be the active one; flipping
		// blind would risk two active signatures at commit.
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, warnings, "cannot verify single-active invariant")
	}

	// Deactivate every other active signature, then activate the target,
	// all within this transaction. List order is key order, so the write
	// sequence is identical on every replica.
	for i := range all {
		other := all[i]
		if other.ID == target.ID || !other.IsActive {
			continue
		}
		other.IsActive = false
		other.Touch(s.now)
		if err := s.repo.Put(ctx, &other); err != nil {
			return nil, err
		}
	}

	target.IsActive = true
	target.Touch(s.now)
	if err := s.repo.Put(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

func (s *service) GetActive(ctx context.Context) (*records.Signature, error) {
	all, warnings := s.repo.List(ctx)
	for i := range all {
		if all[i].IsActive {
			return &all[i], nil
		}
	}
	if warnings != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, warnings, "scan failed while looking for the active signature")
	}
	return nil, pkgerrors.New(pkgerrors.CodeNoActiveSignature, "no active signature")
}

func (s *service) Delete(ctx context.Context, id string) error {
	// Deleting the active signature is allowed and leaves zero active;
	// promotion of a replacement is a caller concern.
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
