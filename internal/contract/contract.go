// Package contract is the transaction entrypoint of the ledger core. The
// external request layer submits one named operation per transaction along
// with a TxContext carrying the platform-assigned transaction id and
// timestamp; the contract stages all writes on a single statestore
// transaction and commits them atomically, or discards everything on any
// failure.
package contract

import (
	"context"
	"fmt"
	"time"

	"github.com/digitalcampus/ijazah-ledger/internal/certificates"
	"github.com/digitalcampus/ijazah-ledger/internal/signatures"
	"github.com/digitalcampus/ijazah-ledger/pkg/codec"
	pkgerrors "github.com/digitalcampus/ijazah-ledger/pkg/errors"
	"github.com/digitalcampus/ijazah-ledger/pkg/logger"
	"github.com/digitalcampus/ijazah-ledger/pkg/metrics"
	"github.com/digitalcampus/ijazah-ledger/pkg/statestore"
	"github.com/google/uuid"
)

// Operation names the ledger transactions the contract accepts.
type Operation string

const (
	OpCreateCertificate        Operation = "CreateCertificate"
	OpReadCertificate          Operation = "ReadCertificate"
	OpUpdateCertificate        Operation = "UpdateCertificate"
	OpGetAllCertificates       Operation = "GetAllCertificates"
	OpGetCertificatesByStatus  Operation = "GetCertificatesByStatus"
	OpUpdateCertificateStatus  Operation = "UpdateCertificateStatus"
	OpApproveCertificate       Operation = "ApproveCertificate"
	OpRejectCertificate        Operation = "RejectCertificate"
	OpActivateCertificate      Operation = "ActivateCertificate"
	OpBulkApproveCertificates  Operation = "BulkApproveCertificates"
	OpDeleteCertificate        Operation = "DeleteCertificate"
	OpCreateSignature          Operation = "CreateSignature"
	OpReadSignature            Operation = "ReadSignature"
	OpGetAllSignatures         Operation = "GetAllSignatures"
	OpUpdateSignature          Operation = "UpdateSignature"
	OpSetActiveSignature       Operation = "SetActiveSignature"
	OpGetActiveSignature       Operation = "GetActiveSignature"
	OpDeleteSignature          Operation = "DeleteSignature"
)

// TxContext carries the deterministic inputs assigned by the transaction
// submission facility. The contract never reads the wall clock or generates
// identifiers itself.
type TxContext struct {
	TxID      string
	Timestamp time.Time
}

// NewTxContext builds a TxContext at the submission boundary. This is the
// only place the module touches the clock or randomness; it must never be
// called from inside an operation.
func NewTxContext() TxContext {
	return TxContext{
		TxID:      uuid.NewString(),
		Timestamp: time.Now().UTC(),
	}
}

// Contract executes named operations against a world-state backend.
type Contract struct {
	backend statestore.Backend
	logg    *logger.Logger
	metrics *metrics.TransactionMetrics
}

// New wires a contract over the provided backend. Logger and metrics are
// optional.
func New(backend statestore.Backend, logg *logger.Logger, txMetrics *metrics.TransactionMetrics) (*Contract, error) {
	if backend == nil {
		return nil, fmt.Errorf("state backend required")
	}
	return &Contract{backend: backend, logg: logg, metrics: txMetrics}, nil
}

// Invoke runs one operation as one transaction. On success it returns the
// canonical serialized result and commits the staged write-set; on any
// failure it discards the write-set and returns the typed error untouched.
func (c *Contract) Invoke(ctx context.Context, txc TxContext, op Operation, payload []byte) ([]byte, error) {
	started := time.Now()
	if c.logg != nil {
		ctx = c.logg.WithFields(ctx, map[string]any{
			"tx_id":     txc.TxID,
			"operation": string(op),
		})
	}

	tx := statestore.NewTransaction(c.backend)
	result, err := c.dispatch(ctx, tx, txc, op, payload)
	if err != nil {
		tx.Discard()
		c.metrics.IncAbort(string(op), string(pkgerrors.As(err).Code()))
		if c.logg != nil {
			c.logg.Error(ctx, "transaction aborted", err)
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		c.metrics.IncAbort(string(op), string(pkgerrors.CodeInternal))
		if c.logg != nil {
			c.logg.Error(ctx, "transaction commit failed", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "committing transaction")
	}

	c.metrics.IncCommit(string(op))
	c.metrics.ObserveDuration(string(op), time.Since(started))
	if c.logg != nil {
		c.logg.Info(ctx, "transaction committed")
	}
	return result, nil
}

func (c *Contract) dispatch(ctx context.Context, tx *statestore.Transaction, txc TxContext, op Operation, payload []byte) ([]byte, error) {
	certRepo := certificates.NewRepository(tx)
	sigRepo := signatures.NewRepository(tx)

	certSvc, err := certificates.NewService(certRepo, sigRepo, txc.Timestamp)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "wiring certificate service")
	}
	sigSvc, err := signatures.NewService(sigRepo, txc.Timestamp)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "wiring signature service")
	}

	switch op {
	case OpCreateCertificate:
		var input certificates.CreateInput
		if err := decodePayload(payload, &input); err != nil {
			return nil, err
		}
		cert, err := certSvc.Create(ctx, input)
		if err != nil {
			return nil, err
		}
		return codec.Marshal(cert)

	case OpReadCertificate:
		var input idPayload
		if err := decodePayload(payload, &input); err != nil {
			return nil, err
		}
		cert, err := certSvc.Read(ctx, input.ID)
		if err != nil {
			return nil, err
		}
		return codec.Marshal(cert)

	case OpUpdateCertificate:
		var input updateCertificatePayload
		if err := decodePayload(payload, &input); err != nil {
			return nil, err
		}
		cert, err := certSvc.Update(ctx, input.ID, input.Fields)
		if err != nil {
			return nil, err
		}
		return codec.Marshal(cert)

	case OpGetAllCertificates:
		certs, warnings := certSvc.GetAll(ctx)
		if pkgerrors.As(warnings) != nil {
			return nil, warnings
		}
		c.logScanWarnings(ctx, warnings)
		return codec.Marshal(certs)

	case OpGetCertificatesByStatus:
		var input statusPayload
		if err := decodePayload(payload, &input); err != nil {
			return nil, err
		}
		status, err := parseStatus(input.Status)
		if err != nil {
			return nil, err
		}
		certs, warnings := certSvc.GetByStatus(ctx, status)
		if pkgerrors.As(warnings) != nil {
			return nil, warnings
		}
		c.logScanWarnings(ctx, warnings)
		return codec.Marshal(certs)

	case OpUpdateCertificateStatus:
		var input updateStatusPayload
		if err := decodePayload(payload, &input); err != nil {
			return nil, err
		}
		status, err := parseStatus(input.Status)
		if err != nil {
			return nil, err
		}
		cert, err := certSvc.UpdateStatus(ctx, input.ID, status)
		if err != nil {
			return nil, err
		}
		return codec.Marshal(cert)

	case OpApproveCertificate:
		var input approvePayload
		if err := decodePayload(payload, &input); err != nil {
			return nil, err
		}
		cert, err := certSvc.Approve(ctx, input.ID, input.SignatureID)
		if err != nil {
			return nil, err
		}
		return codec.Marshal(cert)

	case OpRejectCertificate:
		var input rejectPayload
		if err := decodePayload(payload, &input); err != nil {
			return nil, err
		}
		cert, err := certSvc.Reject(ctx, input.ID, input.Reason)
		if err != nil {
			return nil, err
		}
		return codec.Marshal(cert)

	case OpActivateCertificate:
		var input idPayload
		if err := decodePayload(payload, &input); err != nil {
			return nil, err
		}
		cert, err := certSvc.Activate(ctx, input.ID)
		if err != nil {
			return nil, err
		}
		return codec.Marshal(cert)

	case OpBulkApproveCertificates:
		var input bulkApprovePayload
		if err := decodePayload(payload, &input); err != nil {
			return nil, err
		}
		certs, err := certSvc.BulkApprove(ctx, input.IDs, input.SignatureID)
		if err != nil {
			return nil, err
		}
		return codec.Marshal(certs)

	case OpDeleteCertificate:
		var input idPayload
		if err := decodePayload(payload, &input); err != nil {
			return nil, err
		}
		if err := certSvc.Delete(ctx, input.ID); err != nil {
			return nil, err
		}
		return codec.Marshal(deletedPayload{ID: input.ID, Deleted: true})

	case OpCreateSignature:
		var input signatures.CreateInput
		if err := decodePayload(payload, &input); err != nil {
			return nil, err
		}
		sig, err := sigSvc.Create(ctx, input)
		if err != nil {
			return nil, err
		}
		return codec.Marshal(sig)

	case OpReadSignature:
		var input idPayload
		if err := decodePayload(payload, &input); err != nil {
			return nil, err
		}
		sig, err := sigSvc.Read(ctx, input.ID)
		if err != nil {
			return nil, err
		}
		return codec.Marshal(sig)

	case OpGetAllSignatures:
		sigs, warnings := sigSvc.GetAll(ctx)
		if pkgerrors.As(warnings) != nil {
			return nil, warnings
		}
		c.logScanWarnings(ctx, warnings)
		return codec.Marshal(sigs)

	case OpUpdateSignature:
		var input updateSignaturePayload
		if err := decodePayload(payload, &input); err != nil {
			return nil, err
		}
		sig, err := sigSvc.Update(ctx, input.ID, input.Fields)
		if err != nil {
			return nil, err
		}
		return codec.Marshal(sig)

	case OpSetActiveSignature:
		var input idPayload
		if err := decodePayload(payload, &input); err != nil {
			return nil, err
		}
		sig, err := sigSvc.SetActive(ctx, input.ID)
		if err != nil {
			return nil, err
		}
		return codec.Marshal(sig)

	case OpGetActiveSignature:
		sig, err := sigSvc.GetActive(ctx)
		if err != nil {
			return nil, err
		}
		return codec.Marshal(sig)

	case OpDeleteSignature:
		var input idPayload
		if err := decodePayload(payload, &input); err != nil {
			return nil, err
		}
		if err := sigSvc.Delete(ctx, input.ID); err != nil {
			return nil, err
		}
		return codec.Marshal(deletedPayload{ID: input.ID, Deleted: true})
	}

	return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown operation %q", op)
}

// logScanWarnings surfaces per-record decode failures from full scans; they
// never abort the transaction.
func (c *Contract) logScanWarnings(ctx context.Context, warnings error) {
	if warnings == nil || c.logg == nil {
		return
	}
	c.logg.Warn(c.logg.WithField(ctx, "scan_errors", warnings.Error()), "skipped undecodable records during scan")
}
