package signatures

import (
	"context"
	"fmt"

	"github.com/digitalcampus/ijazah-ledger/internal/records"
	"github.com/digitalcampus/ijazah-ledger/pkg/codec"
	"github.com/digitalcampus/ijazah-ledger/pkg/enums"
	pkgerrors "github.com/digitalcampus/ijazah-ledger/pkg/errors"
	"github.com/digitalcampus/ijazah-ledger/pkg/statestore"
	"go.uber.org/multierr"
)

// Repository manages signature records inside one ledger transaction.
type Repository interface {
	// ExistsAnyKind reports whether id is taken by a record of either kind;
	// the keyspace is shared with certificates.
	ExistsAnyKind(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (*records.Signature, error)
	Put(ctx context.Context, sig *records.Signature) error
	Delete(ctx context.Context, id string) error
	// List returns every signature in key order. Records that fail to
	// decode are skipped and aggregated into the returned error; the slice
	// is valid either way.
	List(ctx context.Context) ([]records.Signature, error)
}

type repository struct {
	tx *statestore.Transaction
}

// NewRepository returns a repository bound to the provided transaction.
func NewRepository(tx *statestore.Transaction) Repository {
	return &repository{tx: tx}
}

func (r *repository) ExistsAnyKind(ctx context.Context, id string) (bool, error) {
	return r.tx.Exists(ctx, id)
}

func (r *repository) Get(ctx context.Context, id string) (*records.Signature, error) {
	value, found, err := r.tx.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "signature %q not found", id)
	}
	sig, err := records.DecodeSignature(value)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "signature %q not found", id)
		}
		return nil, err
	}
	return sig, nil
}

func (r *repository) Put(ctx context.Context, sig *records.Signature) error {
	value, err := codec.Marshal(sig)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding signature record")
	}
	return r.tx.Put(ctx, sig.ID, value)
}

func (r *repository) Delete(ctx context.Context, id string) error {
	return r.tx.Delete(ctx, id)
}

func (r *repository) List(ctx context.Context) ([]records.Signature, error) {
	iter, err := r.tx.RangeScan(ctx, "", "")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "scanning world state")
	}
	defer iter.Close()

	var sigs []records.Signature
	var warnings error
	for {
		kv, ok, err := iter.Next()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "scanning world state")
		}
		if !ok {
			break
		}
		kind, err := codec.Kind(kv.Value)
		if err != nil {
			warnings = multierr.Append(warnings, fmt.Errorf("record %q: %w", kv.Key, err))
			continue
		}
		if kind != enums.RecordKindSignature {
			continue
		}
		var sig records.Signature
		if err := codec.Unmarshal(kv.Value, &sig); err != nil {
			warnings = multierr.Append(warnings, fmt.Errorf("record %q: %w", kv.Key, err))
			continue
		}
		sigs = append(sigs, sig)
	}
	return sigs, warnings
}
