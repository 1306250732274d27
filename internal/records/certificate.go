package records

import (
	"time"

	"github.com/digitalcampus/ijazah-ledger/pkg/codec"
	"github.com/digitalcampus/ijazah-ledger/pkg/enums"
	pkgerrors "github.com/digitalcampus/ijazah-ledger/pkg/errors"
)

// Certificate is the authoritative ledger record for one issued ijazah.
// IDs are caller-supplied and shared with signatures in a single keyspace;
// the Kind field discriminates the two on scans.
type Certificate struct {
	ID   string           `json:"id" validate:"required"`
	Kind enums.RecordKind `json:"kind"`

	Name                      string `json:"name" validate:"required"`
	NationalID                string `json:"national_id" validate:"required"`
	BirthPlace                string `json:"birth_place" validate:"required"`
	BirthDate                 string `json:"birth_date" validate:"required"`
	StudyProgram              string `json:"study_program" validate:"required"`
	Faculty                   string `json:"faculty" validate:"required"`
	AdmissionYear             string `json:"admission_year" validate:"required"`
	StudentNumber             string `json:"student_number" validate:"required"`
	GraduationDate            string `json:"graduation_date" validate:"required"`
	Degree                    string `json:"degree" validate:"required"`
	Accreditation             string `json:"accreditation,omitempty"`
	AccreditationDecision     string `json:"accreditation_decision,omitempty"`
	IssuePlace                string `json:"issue_place" validate:"required"`
	IssueDate                 string `json:"issue_date" validate:"required"`
	DocumentNumber            string `json:"document_number" validate:"required"`
	NationalCertificateNumber string `json:"national_certificate_number" validate:"required"`

	PhotoRef               string `json:"photo_ref,omitempty"`
	CertificateArtifactRef string `json:"certificate_artifact_ref,omitempty"`
	SignatureRef           string `json:"signature_ref,omitempty"`

	Status          enums.CertificateStatus `json:"status"`
	RejectionReason string                  `json:"rejection_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the mandatory student fields.
func (c *Certificate) Validate() error {
	return validateStruct(c)
}

// Touch refreshes the mutation timestamp.
func (c *Certificate) Touch(now time.Time) {
	c.UpdatedAt = now
}

// DecodeCertificate decodes canonical bytes into a certificate, rejecting
// values of any other kind.
func DecodeCertificate(data []byte) (*Certificate, error) {
	kind, err := codec.Kind(data)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding stored record")
	}
	if kind != enums.RecordKindCertificate {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "record is a %s, not a certificate", kind)
	}
	var cert Certificate
	if err := codec.Unmarshal(data, &cert); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding certificate record")
	}
	return &cert, nil
}
