package enums

import "fmt"

// CertificateStatus captures the certificate approval lifecycle.
type CertificateStatus string

const (
	CertificateStatusDraft           CertificateStatus = "draft"
	CertificateStatusPendingApproval CertificateStatus = "pending_approval"
	CertificateStatusApproved        CertificateStatus = "approved"
	CertificateStatusRejected        CertificateStatus = "rejected"
	CertificateStatusActive          CertificateStatus = "active"
	CertificateStatusRevoked         CertificateStatus = "revoked"
)

var validCertificateStatuses = []CertificateStatus{
	CertificateStatusDraft,
	CertificateStatusPendingApproval,
	CertificateStatusApproved,
	CertificateStatusRejected,
	CertificateStatusActive,
	CertificateStatusRevoked,
}

// allowedTransitions holds the only status edges the ledger accepts.
// Rejected and Revoked are terminal; draft never reaches the ledger.
var allowedTransitions = map[CertificateStatus][]CertificateStatus{
	CertificateStatusPendingApproval: {CertificateStatusApproved, CertificateStatusRejected},
	CertificateStatusApproved:        {CertificateStatusActive},
	CertificateStatusActive:          {CertificateStatusRevoked},
}

// String implements fmt.Stringer.
func (s CertificateStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CertificateStatus.
func (s CertificateStatus) IsValid() bool {
	for _, candidate := range validCertificateStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the edge (s, next) is allowed.
func (s CertificateStatus) CanTransitionTo(next CertificateStatus) bool {
	for _, candidate := range allowedTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseCertificateStatus converts raw input into a CertificateStatus.
func ParseCertificateStatus(value string) (CertificateStatus, error) {
	for _, candidate := range validCertificateStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid certificate status %q", value)
}
