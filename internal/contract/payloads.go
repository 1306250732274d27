package contract

import (
	"bytes"
	"encoding/json"

	"github.com/digitalcampus/ijazah-ledger/internal/certificates"
	"github.com/digitalcampus/ijazah-ledger/internal/signatures"
	"github.com/digitalcampus/ijazah-ledger/pkg/enums"
	pkgerrors "github.com/digitalcampus/ijazah-ledger/pkg/errors"
)

type idPayload struct {
	ID string `json:"id"`
}

type statusPayload struct {
	Status string `json:"status"`
}

type updateStatusPayload struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type approvePayload struct {
	ID          string `json:"id"`
	SignatureID string `json:"signature_id"`
}

type rejectPayload struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type bulkApprovePayload struct {
	IDs         []string `json:"ids"`
	SignatureID string   `json:"signature_id"`
}

type updateCertificatePayload struct {
	ID     string                   `json:"id"`
	Fields certificates.UpdateInput `json:"fields"`
}

type updateSignaturePayload struct {
	ID     string                 `json:"id"`
	Fields signatures.UpdateInput `json:"fields"`
}

type deletedPayload struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func decodePayload(payload []byte, dest any) error {
	if len(bytes.TrimSpace(payload)) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "payload is required")
	}
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payload").
			WithDetails(map[string]any{"error": err.Error()})
	}
	return nil
}

func parseStatus(value string) (enums.CertificateStatus, error) {
	status, err := enums.ParseCertificateStatus(value)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid certificate status")
	}
	return status, nil
}
