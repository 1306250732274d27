package certificates

import (
	"context"
	"testing"
	"time"

	"github.com/digitalcampus/ijazah-ledger/internal/records"
	"github.com/digitalcampus/ijazah-ledger/internal/signatures"
	"github.com/digitalcampus/ijazah-ledger/pkg/enums"
	pkgerrors "github.com/digitalcampus/ijazah-ledger/pkg/errors"
	"github.com/digitalcampus/ijazah-ledger/pkg/statestore"
)

var baseTime = time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

func createInput(id string) CreateInput {
	return CreateInput{
		ID:                        id,
		Name:                      "Siti Rahmawati",
		NationalID:                "3275014403990002",
		BirthPlace:                "Bandung",
		BirthDate:                 "1999-03-04",
		StudyProgram:              "Informatika",
		Faculty:                   "Fakultas Teknik",
		AdmissionYear:             "2017",
		StudentNumber:             "1177050001",
		GraduationDate:            "2021-08-15",
		Degree:                    "S.Kom",
		IssuePlace:                "Bandung",
		IssueDate:                 "2021-09-01",
		DocumentNumber:            "UN/IJZ/2021/0001",
		NationalCertificateNumber: "86201/2021/0001",
		PhotoRef:                  "b2:abc123",
	}
}

// runTx executes fn against a fresh transaction over backend, committing on
// success and discarding on error, the way the contract layer does.
func runTx(t *testing.T, backend statestore.Backend, now time.Time, fn func(ctx context.Context, svc Service) error) error {
	t.Helper()
	tx := statestore.NewTransaction(backend)
	svc, err := NewService(NewRepository(tx), signatures.NewRepository(tx), now)
	if err != nil {
		t.Fatalf("wiring service: %v", err)
	}
	if err := fn(context.Background(), svc); err != nil {
		tx.Discard()
		return err
	}
	if err := tx.Commit(context.Background()); err != nil {
		t.Fatalf("commit error: %v", err)
	}
	return nil
}

func seedSignature(t *testing.T, backend statestore.Backend, id string) {
	t.Helper()
	tx := statestore.NewTransaction(backend)
	repo := signatures.NewRepository(tx)
	sig := &records.Signature{
		ID:          id,
		Kind:        enums.RecordKindSignature,
		ArtifactRef: "b2:sigart",
		Owner:       "rektor",
		CreatedAt:   baseTime,
		UpdatedAt:   baseTime,
	}
	if err := repo.Put(context.Background(), sig); err != nil {
		t.Fatalf("seeding signature: %v", err)
	}
	if err := tx.Commit(context.Background()); err != nil {
		t.Fatalf("commit error: %v", err)
	}
}

func TestCreateAndRead(t *testing.T) {
	backend := statestore.NewMemory()

	err := runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		_, err := svc.Create(ctx, createInput("cert-1"))
		return err
	})
	if err != nil {
		t.Fatalf("create error: %v", err)
	}

	var got *records.Certificate
	err = runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		var err error
		got, err = svc.Read(ctx, "cert-1")
		return err
	})
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if got.Status != enums.CertificateStatusPendingApproval {
		t.Fatalf("expected pending_approval, got %s", got.Status)
	}
	if got.Kind != enums.RecordKindCertificate {
		t.Fatalf("expected certificate kind, got %s", got.Kind)
	}
	if !got.CreatedAt.Equal(baseTime) || !got.UpdatedAt.Equal(baseTime) {
		t.Fatalf("unexpected timestamps: %v / %v", got.CreatedAt, got.UpdatedAt)
	}
}

func TestCreateRequiresPhoto(t *testing.T) {
	backend := statestore.NewMemory()
	input := createInput("cert-1")
	input.PhotoRef = ""

	err := runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		_, err := svc.Create(ctx, input)
		return err
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeMissingArtifact) {
		t.Fatalf("expected MISSING_ARTIFACT, got %v", err)
	}
	if backend.Len() != 0 {
		t.Fatal("failed create must not write state")
	}
}

func TestCreateRejectsTakenID(t *testing.T) {
	backend := statestore.NewMemory()
	seedSignature(t, backend, "shared-id")

	// The keyspace is shared, so a signature id blocks a certificate too.
	err := runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		_, err := svc.Create(ctx, createInput("shared-id"))
		return err
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeAlreadyExists) {
		t.Fatalf("expected ALREADY_EXISTS across kinds, got %v", err)
	}

	if err := runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		_, err := svc.Create(ctx, createInput("cert-1"))
		return err
	}); err != nil {
		t.Fatalf("create error: %v", err)
	}
	err = runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		_, err := svc.Create(ctx, createInput("cert-1"))
		return err
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeAlreadyExists) {
		t.Fatalf("expected ALREADY_EXISTS for duplicate certificate, got %v", err)
	}
}

func TestUpdateAppliesOnlyProvidedFields(t *testing.T) {
	backend := statestore.NewMemory()
	if err := runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		_, err := svc.Create(ctx, createInput("cert-1"))
		return err
	}); err != nil {
		t.Fatalf("create error: %v", err)
	}

	later := baseTime.Add(time.Hour)
	newName := "Siti R. Dewi"
	var updated *records.Certificate
	err := runTx(t, backend, later, func(ctx context.Context, svc Service) error {
		var err error
		updated, err = svc.Update(ctx, "cert-1", UpdateInput{Name: &newName})
		return err
	})
	if err != nil {
		t.Fatalf("update error: %v", err)
	}
	if updated.Name != newName {
		t.Fatalf("name not applied: %q", updated.Name)
	}
	if updated.Faculty != "Fakultas Teknik" {
		t.Fatalf("untouched field changed: %q", updated.Faculty)
	}
	if updated.Status != enums.CertificateStatusPendingApproval {
		t.Fatalf("update must never change status, got %s", updated.Status)
	}
	if !updated.CreatedAt.Equal(baseTime) || !updated.UpdatedAt.Equal(later) {
		t.Fatalf("unexpected timestamps: %v / %v", updated.CreatedAt, updated.UpdatedAt)
	}

	empty := ""
	err = runTx(t, backend, later, func(ctx context.Context, svc Service) error {
		_, err := svc.Update(ctx, "cert-1", UpdateInput{Name: &empty})
		return err
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error clearing a required field, got %v", err)
	}
}

func TestUpdateStatusRejectsIllegalEdge(t *testing.T) {
	backend := statestore.NewMemory()
	if err := runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		_, err := svc.Create(ctx, createInput("cert-1"))
		return err
	}); err != nil {
		t.Fatalf("create error: %v", err)
	}

	err := runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		_, err := svc.Activate(ctx, "cert-1")
		return err
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected INVALID_TRANSITION, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok || details["from"] != "pending_approval" || details["to"] != "active" {
		t.Fatalf("expected transition details, got %v", pkgerrors.As(err).Details())
	}

	err = runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		_, err := svc.UpdateStatus(ctx, "cert-1", enums.CertificateStatus("archived"))
		return err
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
}

func TestApproveRequiresExistingSignature(t *testing.T) {
	backend := statestore.NewMemory()
	if err := runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		_, err := svc.Create(ctx, createInput("cert-1"))
		return err
	}); err != nil {
		t.Fatalf("create error: %v", err)
	}

	err := runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		_, err := svc.Approve(ctx, "cert-1", "sig-missing")
		return err
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND for missing signature, got %v", err)
	}

	seedSignature(t, backend, "sig-1")
	var approved *records.Certificate
	err = runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		var err error
		approved, err = svc.Approve(ctx, "cert-1", "sig-1")
		return err
	})
	if err != nil {
		t.Fatalf("approve error: %v", err)
	}
	if approved.Status != enums.CertificateStatusApproved || approved.SignatureRef != "sig-1" {
		t.Fatalf("unexpected approval result: %s / %q", approved.Status, approved.SignatureRef)
	}

	// Already approved, the edge is gone.
	err = runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		_, err := svc.Approve(ctx, "cert-1", "sig-1")
		return err
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected INVALID_TRANSITION on re-approval, got %v", err)
	}
}

func TestUpdateStatusApprovedNeedsSignatureRef(t *testing.T) {
	backend := statestore.NewMemory()
	if err := runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		_, err := svc.Create(ctx, createInput("cert-1"))
		return err
	}); err != nil {
		t.Fatalf("create error: %v", err)
	}

	err := runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		_, err := svc.UpdateStatus(ctx, "cert-1", enums.CertificateStatusApproved)
		return err
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error without signature ref, got %v", err)
	}
}

func TestReject(t *testing.T) {
	backend := statestore.NewMemory()
	if err := runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		_, err := svc.Create(ctx, createInput("cert-1"))
		return err
	}); err != nil {
		t.Fatalf("create error: %v", err)
	}

	var rejected *records.Certificate
	err := runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		var err error
		rejected, err = svc.Reject(ctx, "cert-1", "photo does not match student records")
		return err
	})
	if err != nil {
		t.Fatalf("reject error: %v", err)
	}
	if rejected.Status != enums.CertificateStatusRejected {
		t.Fatalf("expected rejected status, got %s", rejected.Status)
	}
	if rejected.RejectionReason != "photo does not match student records" {
		t.Fatalf("reason not stored: %q", rejected.RejectionReason)
	}

	// Rejected is terminal.
	err = runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		_, err := svc.Reject(ctx, "cert-1", "again")
		return err
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition) {
		t.Fatalf("expected INVALID_TRANSITION, got %v", err)
	}
}

func TestFullLifecycle(t *testing.T) {
	backend := statestore.NewMemory()
	seedSignature(t, backend, "sig-1")

	steps := []func(ctx context.Context, svc Service) error{
		func(ctx context.Context, svc Service) error {
			_, err := svc.Create(ctx, createInput("cert-1"))
			return err
		},
		func(ctx context.Context, svc Service) error {
			_, err := svc.Approve(ctx, "cert-1", "sig-1")
			return err
		},
		func(ctx context.Context, svc Service) error {
			cert, err := svc.Activate(ctx, "cert-1")
			if err != nil {
				return err
			}
			if cert.Status != enums.CertificateStatusActive {
				t.Fatalf("expected active, got %s", cert.Status)
			}
			return nil
		},
		func(ctx context.Context, svc Service) error {
			_, err := svc.UpdateStatus(ctx, "cert-1", enums.CertificateStatusRevoked)
			return err
		},
	}
	for i, step := range steps {
		if err := runTx(t, backend, baseTime.Add(time.Duration(i)*time.Minute), step); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	if err := runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		return svc.Delete(ctx, "cert-1")
	}); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	err := runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		_, err := svc.Read(ctx, "cert-1")
		return err
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND after delete, got %v", err)
	}
}

func TestBulkApproveAllOrNothing(t *testing.T) {
	backend := statestore.NewMemory()
	seedSignature(t, backend, "sig-1")
	for _, id := range []string{"cert-1", "cert-2", "cert-3"} {
		if err := runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
			_, err := svc.Create(ctx, createInput(id))
			return err
		}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	// cert-2 leaves the approvable state.
	if err := runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		_, err := svc.Reject(ctx, "cert-2", "incomplete transcript")
		return err
	}); err != nil {
		t.Fatalf("reject error: %v", err)
	}

	err := runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		_, err := svc.BulkApprove(ctx, []string{"cert-1", "cert-2", "cert-3"}, "sig-1")
		return err
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeBatchRejected) {
		t.Fatalf("expected BATCH_REJECTED, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok || len(details) != 1 {
		t.Fatalf("expected one failing id in details, got %v", pkgerrors.As(err).Details())
	}
	if _, present := details["cert-2"]; !present {
		t.Fatalf("expected cert-2 in details, got %v", details)
	}

	// Nothing from the failed batch may have been written.
	err = runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		cert, err := svc.Read(ctx, "cert-1")
		if err != nil {
			return err
		}
		if cert.Status != enums.CertificateStatusPendingApproval {
			t.Fatalf("cert-1 mutated by rejected batch: %s", cert.Status)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("read error: %v", err)
	}

	var approved []records.Certificate
	err = runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		var err error
		approved, err = svc.BulkApprove(ctx, []string{"cert-1", "cert-3"}, "sig-1")
		return err
	})
	if err != nil {
		t.Fatalf("bulk approve error: %v", err)
	}
	if len(approved) != 2 {
		t.Fatalf("expected 2 approved, got %d", len(approved))
	}
	for _, cert := range approved {
		if cert.Status != enums.CertificateStatusApproved || cert.SignatureRef != "sig-1" {
			t.Fatalf("unexpected result for %s: %s / %q", cert.ID, cert.Status, cert.SignatureRef)
		}
	}

	err = runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		_, err := svc.BulkApprove(ctx, nil, "sig-1")
		return err
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty batch, got %v", err)
	}
}

func TestGetByStatus(t *testing.T) {
	backend := statestore.NewMemory()
	seedSignature(t, backend, "sig-1")
	for _, id := range []string{"cert-1", "cert-2"} {
		if err := runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
			_, err := svc.Create(ctx, createInput(id))
			return err
		}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if err := runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		_, err := svc.Approve(ctx, "cert-2", "sig-1")
		return err
	}); err != nil {
		t.Fatalf("approve error: %v", err)
	}

	err := runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		pending, err := svc.GetByStatus(ctx, enums.CertificateStatusPendingApproval)
		if err != nil {
			return err
		}
		if len(pending) != 1 || pending[0].ID != "cert-1" {
			t.Fatalf("unexpected pending set: %+v", pending)
		}
		approved, err := svc.GetByStatus(ctx, enums.CertificateStatusApproved)
		if err != nil {
			return err
		}
		if len(approved) != 1 || approved[0].ID != "cert-2" {
			t.Fatalf("unexpected approved set: %+v", approved)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("query error: %v", err)
	}

	err = runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
		_, err := svc.GetByStatus(ctx, enums.CertificateStatus("archived"))
		return err
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
}

func TestGetAllSkipsUndecodableRecords(t *testing.T) {
	backend := statestore.NewMemory()
	seedSignature(t, backend, "sig-1")
	for _, id := range []string{"cert-1", "cert-2"} {
		if err := runTx(t, backend, baseTime, func(ctx context.Context, svc Service) error {
			_, err := svc.Create(ctx, createInput(id))
			return err
		}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if err := backend.Put(context.Background(), "corrupt-1", []byte("not json")); err != nil {
		t.Fatalf("seeding corrupt record: %v", err)
	}

	tx := statestore.NewTransaction(backend)
	svc, err := NewService(NewRepository(tx), signatures.NewRepository(tx), baseTime)
	if err != nil {
		t.Fatalf("wiring service: %v", err)
	}
	certs, warnings := svc.GetAll(context.Background())
	tx.Discard()

	if len(certs) != 2 {
		t.Fatalf("expected 2 certificates despite corrupt record, got %d", len(certs))
	}
	if certs[0].ID != "cert-1" || certs[1].ID != "cert-2" {
		t.Fatalf("unexpected key order: %s, %s", certs[0].ID, certs[1].ID)
	}
	if warnings == nil {
		t.Fatal("expected aggregated decode warnings")
	}
	if pkgerrors.As(warnings) != nil {
		t.Fatalf("decode warnings must not be typed fatal errors: %v", warnings)
	}
}
