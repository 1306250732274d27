package certificates

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

// Repository manages certificate records inside one ledger transaction.
type Repository interface {
	// ExistsAnyKind reports whether id is taken by a record of either kind;
	// the keyspace is shared with signatures.
	ExistsAnyKind(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (*records.Certificate, error)
	Put(ctx context.Context, cert *records.Certificate) error
	Delete(ctx context.Context, id string) error
	// List returns every certificate in key order. Records that fail to
	// decode are skipped and aggregated into the returned error; the slice
	// is valid either way.
	List(ctx context.Context) ([]records.Certificate, error)
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

func (r *repository) Get(ctx context.Context, id string) (*records.Certificate, error) {
	value, found, err := r.tx.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "certificate %q not found", id)
	}
	cert, err := records.DecodeCertificate(value)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "certificate %q not found", id)
		}
		return nil, err
	}
	return cert, nil
}

func (r *repository) Put(ctx context.Context, cert *records.Certificate) error {
	value, err := codec.Marshal(cert)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding certificate record")
	}
	return r.tx.Put(ctx, cert.ID, value)
}

func (r *repository) Delete(ctx context.Context, id string) error {
	return r.tx.Delete(ctx, id)
}

func (r *repository) List(ctx context.Context) ([]records.Certificate, error) {
	iter, err := r.tx.RangeScan(ctx, "", "")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "scanning world state")
	}
	defer iter.Close()

	var certs []records.Certificate
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
		if kind != enums.RecordKindCertificate {
			continue
		}
		var cert records.Certificate
		if err := codec.Unmarshal(kv.Value, &cert); err != nil {
			warnings = multierr.Append(warnings, fmt.Errorf("record %q: %w", kv.Key, err))
			continue
		}
		certs = append(certs, cert)
	}
	return certs, warnings
}
