package certificates

import (
	"context"
	"fmt"
	"time"

	"github.com/digitalcampus/ijazah-ledger/internal/records"
	"github.com/digitalcampus/ijazah-ledger/pkg/enums"
	pkgerrors "github.com/digitalcampus/ijazah-ledger/pkg/errors"
	"go.uber.org/multierr"
)

// SignatureReader resolves signature records referenced during approval.
// Implemented by the signatures repository; kept narrow to avoid coupling
// the two managers.
type SignatureReader interface {
	Get(ctx context.Context, id string) (*records.Signature, error)
}

// Service enforces the certificate approval lifecycle. Every method runs
// inside the single ledger transaction the service was constructed for, with
// the transaction timestamp injected at construction.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*records.Certificate, error)
	Read(ctx context.Context, id string) (*records.Certificate, error)
	Update(ctx context.Context, id string, input UpdateInput) (*records.Certificate, error)
	// GetAll returns every certificate in key order. A non-nil error
	// aggregates per-record decode failures the caller should log; the
	// returned slice is valid regardless.
	GetAll(ctx context.Context) ([]records.Certificate, error)
	GetByStatus(ctx context.Context, status enums.CertificateStatus) ([]records.Certificate, error)
	UpdateStatus(ctx context.Context, id string, status enums.CertificateStatus) (*records.Certificate, error)
	Approve(ctx context.Context, id, signatureID string) (*records.Certificate, error)
	Reject(ctx context.Context, id, reason string) (*records.Certificate, error)
	Activate(ctx context.Context, id string) (*records.Certificate, error)
	BulkApprove(ctx context.Context, ids []string, signatureID string) ([]records.Certificate, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	repo       Repository
	signatures SignatureReader
	now        time.Time
}

// NewService wires a certificate lifecycle service for one transaction. The
// timestamp comes from the transaction submission boundary; the service
// never reads the wall clock itself.
func NewService(repo Repository, signatures SignatureReader, now time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("certificate repository required")
	}
	if signatures == nil {
		return nil, fmt.Errorf("signature reader required")
	}
	return &service{repo: repo, signatures: signatures, now: now.UTC()}, nil
}

// CreateInput carries the caller-supplied fields for a new certificate.
type CreateInput struct {
	ID                        string `json:"id"`
	Name                      string `json:"name"`
	NationalID                string `json:"national_id"`
	BirthPlace                string `json:"birth_place"`
	BirthDate                 string `json:"birth_date"`
	StudyProgram              string `json:"study_program"`
	Faculty                   string `json:"faculty"`
	AdmissionYear             string `json:"admission_year"`
	StudentNumber             string `json:"student_number"`
	GraduationDate            string `json:"graduation_date"`
	Degree                    string `json:"degree"`
	Accreditation             string `json:"accreditation"`
	AccreditationDecision     string `json:"accreditation_decision"`
	IssuePlace                string `json:"issue_place"`
	IssueDate                 string `json:"issue_date"`
	DocumentNumber            string `json:"document_number"`
	NationalCertificateNumber string `json:"national_certificate_number"`
	PhotoRef                  string `json:"photo_ref"`
	CertificateArtifactRef    string `json:"certificate_artifact_ref"`
}

// UpdateInput carries a partial overwrite; nil fields keep their prior
// values. Status is never changed through Update.
type UpdateInput struct {
	Name                      *string `json:"name"`
	NationalID                *string `json:"national_id"`
	BirthPlace                *string `json:"birth_place"`
	BirthDate                 *string `json:"birth_date"`
	StudyProgram              *string `json:"study_program"`
	Faculty                   *string `json:"faculty"`
	AdmissionYear             *string `json:"admission_year"`
	StudentNumber             *string `json:"student_number"`
	GraduationDate            *string `json:"graduation_date"`
	Degree                    *string `json:"degree"`
	Accreditation             *string `json:"accreditation"`
	AccreditationDecision     *string `json:"accreditation_decision"`
	IssuePlace                *string `json:"issue_place"`
	IssueDate                 *string `json:"issue_date"`
	DocumentNumber            *string `json:"document_number"`
	NationalCertificateNumber *string `json:"national_certificate_number"`
	PhotoRef                  *string `json:"photo_ref"`
	CertificateArtifactRef    *string `json:"certificate_artifact_ref"`
	SignatureRef              *string `json:"signature_ref"`
}

func (s *service) Create(ctx context.Context, input CreateInput) (*records.Certificate, error) {
	cert := &records.Certificate{
		ID:                        input.ID,
		Kind:                      enums.RecordKindCertificate,
		Name:                      input.Name,
		NationalID:                input.NationalID,
		BirthPlace:                input.BirthPlace,
		BirthDate:                 input.BirthDate,
		StudyProgram:              input.StudyProgram,
		Faculty:                   input.Faculty,
		AdmissionYear:             input.AdmissionYear,
		StudentNumber:             input.StudentNumber,
		GraduationDate:            input.GraduationDate,
		Degree:                    input.Degree,
		Accreditation:             input.Accreditation,
		AccreditationDecision:     input.AccreditationDecision,
		IssuePlace:                input.IssuePlace,
		IssueDate:                 input.IssueDate,
		DocumentNumber:            input.DocumentNumber,
		NationalCertificateNumber: input.NationalCertificateNumber,
		PhotoRef:                  input.PhotoRef,
		CertificateArtifactRef:    input.CertificateArtifactRef,
		Status:                    enums.CertificateStatusPendingApproval,
		CreatedAt:                 s.now,
		UpdatedAt:                 s.now,
	}

	if err := cert.Validate(); err != nil {
		return nil, err
	}
	if cert.PhotoRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeMissingArtifact, "photo artifact reference is required")
	}

	taken, err := s.repo.ExistsAnyKind(ctx, cert.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, pkgerrors.Newf(pkgerrors.CodeAlreadyExists, "record %q already exists", cert.ID)
	}

	if err := s.repo.Put(ctx, cert); err != nil {
		return nil, err
	}
	return cert, nil
}

func (s *service) Read(ctx context.Context, id string) (*records.Certificate, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) Update(ctx context.Context, id string, input UpdateInput) (*records.Certificate, error) {
	cert, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&cert.Name, input.Name)
	apply(&cert.NationalID, input.NationalID)
	apply(&cert.BirthPlace, input.BirthPlace)
	apply(&cert.BirthDate, input.BirthDate)
	apply(&cert.StudyProgram, input.StudyProgram)
	apply(&cert.Faculty, input.Faculty)
	apply(&cert.AdmissionYear, input.AdmissionYear)
	apply(&cert.StudentNumber, input.StudentNumber)
	apply(&cert.GraduationDate, input.GraduationDate)
	apply(&cert.Degree, input.Degree)
	apply(&cert.Accreditation, input.Accreditation)
	apply(&cert.AccreditationDecision, input.AccreditationDecision)
	apply(&cert.IssuePlace, input.IssuePlace)
	apply(&cert.IssueDate, input.IssueDate)
	apply(&cert.DocumentNumber, input.DocumentNumber)
	apply(&cert.NationalCertificateNumber, input.NationalCertificateNumber)
	apply(&cert.PhotoRef, input.PhotoRef)
	apply(&cert.CertificateArtifactRef, input.CertificateArtifactRef)
	apply(&cert.SignatureRef, input.SignatureRef)

	if err := cert.Validate(); err != nil {
		return nil, err
	}
	cert.Touch(s.now)

	if err := s.repo.Put(ctx, cert); err != nil {
		return nil, err
	}
	return cert, nil
}

func (s *service) GetAll(ctx context.Context) ([]records.Certificate, error) {
	return s.repo.List(ctx)
}

func (s *service) GetByStatus(ctx context.Context, status enums.CertificateStatus) ([]records.Certificate, error) {
	if !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid certificate status %q", status)
	}
	all, warnings := s.repo.List(ctx)
	filtered := make([]records.Certificate, 0, len(all))
	for _, cert := range all {
		if cert.Status == status {
			filtered = append(filtered, cert)
		}
	}
	return filtered, warnings
}

func (s *service) UpdateStatus(ctx context.Context, id string, status enums.CertificateStatus) (*records.Certificate, error) {
	cert, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid certificate status %q", status)
	}
	if !cert.Status.CanTransitionTo(status) {
		return nil, pkgerrors.Newf(pkgerrors.CodeInvalidTransition, "cannot move certificate %q from %s to %s", id, cert.Status, status).
			WithDetails(map[string]string{"from": cert.Status.String(), "to": status.String()})
	}
	if status == enums.CertificateStatusApproved && cert.SignatureRef == "" {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "certificate %q has no signature reference attached", id)
	}

	cert.Status = status
	cert.Touch(s.now)

	if err := s.repo.Put(ctx, cert); err != nil {
		return nil, err
	}
	return cert, nil
}

func (s *service) Approve(ctx context.Context, id, signatureID string) (*records.Certificate, error) {
	cert, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.approveOne(ctx, cert, signatureID); err != nil {
		return nil, err
	}
	if err := s.repo.Put(ctx, cert); err != nil {
		return nil, err
	}
	return cert, nil
}

// approveOne validates and mutates cert in place without writing it, so
// BulkApprove can stage the whole batch before flushing.
func (s *service) approveOne(ctx context.Context, cert *records.Certificate, signatureID string) error {
	if _, err := s.signatures.Get(ctx, signatureID); err != nil {
		return err
	}
	if !cert.Status.CanTransitionTo(enums.CertificateStatusApproved) {
		return pkgerrors.Newf(pkgerrors.CodeInvalidTransition, "cannot move certificate %q from %s to %s",
			cert.ID, cert.Status, enums.CertificateStatusApproved).
			WithDetails(map[string]string{"from": cert.Status.String(), "to": enums.CertificateStatusApproved.String()})
	}
	cert.SignatureRef = signatureID
	cert.Status = enums.CertificateStatusApproved
	cert.Touch(s.now)
	return nil
}

func (s *service) Reject(ctx context.Context, id, reason string) (*records.Certificate, error) {
	cert, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cert.Status.CanTransitionTo(enums.CertificateStatusRejected) {
		return nil, pkgerrors.Newf(pkgerrors.CodeInvalidTransition, "cannot move certificate %q from %s to %s",
			id, cert.Status, enums.CertificateStatusRejected).
			WithDetails(map[string]string{"from": cert.Status.String(), "to": enums.CertificateStatusRejected.String()})
	}

	cert.Status = enums.CertificateStatusRejected
	cert.RejectionReason = reason
	cert.Touch(s.now)

	if err := s.repo.Put(ctx, cert); err != nil {
		return nil, err
	}
	return cert, nil
}

func (s *service) Activate(ctx context.Context, id string) (*records.Certificate, error) {
	return s.UpdateStatus(ctx, id, enums.CertificateStatusActive)
}

func (s *service) BulkApprove(ctx context.Context, ids []string, signatureID string) ([]records.Certificate, error) {
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one certificate id is required")
	}

	// Validation phase: every certificate is checked and mutated in memory
	// before anything is written. Any failure rejects the whole batch.
	staged := make([]*records.Certificate, 0, len(ids))
	var failures error
	details := map[string]string{}
	for _, id := range ids {
		cert, err := s.repo.Get(ctx, id)
		if err == nil {
			err = s.approveOne(ctx, cert, signatureID)
		}
		if err != nil {
			failures = multierr.Append(failures, fmt.Errorf("certificate %q: %w", id, err))
			details[id] = err.Error()
			continue
		}
		staged = append(staged, cert)
	}
	if failures != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeBatchRejected, failures,
			fmt.Sprintf("bulk approval rejected, %d of %d certificates failed validation", len(details), len(ids))).
			WithDetails(details)
	}

	// Flush phase: the batch validated as a whole, write it all.
	approved := make([]records.Certificate, 0, len(staged))
	for _, cert := range staged {
		if err := s.repo.Put(ctx, cert); err != nil {
			return nil, err
		}
		approved = append(approved, *cert)
	}
	return approved, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
