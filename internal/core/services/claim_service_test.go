package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"cmcs-claims/internal/adapters/persistence/models"
	"cmcs-claims/internal/core/domain"
	"cmcs-claims/internal/pkg/logger"
	"cmcs-claims/internal/pkg/pagination"

	"github.com/shopspring/decimal"
)

type claimFixture struct {
	svc    *ClaimService
	users  *fakeUserRepo
	claims *fakeClaimRepo
	docs   *fakeDocs
	john   *models.User
	now    time.Time
}

func newClaimFixture(t *testing.T) *claimFixture {
	t.Helper()
	users := newFakeUserRepo()
	claims := newFakeClaimRepo()
	docs := newFakeDocs()

	svc := NewClaimService(claims, claims, users, docs, decimal.NewFromInt(180), logger.Discard())
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return &claimFixture{
		svc:    svc,
		users:  users,
		claims: claims,
		docs:   docs,
		john:   users.add(lecturer("John", "Doe", "DOEJO123", 50)),
		now:    now,
	}
}

func (f *claimFixture) submit(t *testing.T, hours string) *models.Claim {
	t.Helper()
	claim, err := f.svc.Submit(context.Background(), actorFor(f.john), &SubmitClaimInput{
		Month:       "2025-03",
		HoursWorked: decimal.RequireFromString(hours),
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	return claim
}

func TestSubmit_JohnDoeScenario(t *testing.T) {
	f := newClaimFixture(t)

	claim := f.submit(t, "10")

	if !claim.Total.Equal(decimal.RequireFromString("500.00")) {
		t.Errorf("Total = %s, want 500.00", claim.Total)
	}
	if claim.Status != domain.StatusPending {
		t.Errorf("Status = %s, want Pending", claim.Status)
	}
	if claim.ActionBy != "" || claim.ActionDate != nil {
		t.Errorf("action fields should be empty, got %q / %v", claim.ActionBy, claim.ActionDate)
	}
	if claim.LecturerID != "DOEJO123" || claim.LecturerName != "John Doe" {
		t.Errorf("identity = %s / %s", claim.LecturerID, claim.LecturerName)
	}
	if !claim.HourlyRate.Equal(decimal.NewFromInt(50)) {
		t.Errorf("HourlyRate = %s, want 50", claim.HourlyRate)
	}
	if claim.DocumentPath != "" {
		t.Errorf("DocumentPath = %q, want empty", claim.DocumentPath)
	}
	if !claim.SubmittedAt.Equal(f.now) {
		t.Errorf("SubmittedAt = %v, want %v", claim.SubmittedAt, f.now)
	}

	events, _ := f.claims.ListByClaimID(context.Background(), claim.ID)
	if len(events) != 1 || events[0].Action != domain.ActionSubmit || events[0].ToStatus != domain.StatusPending {
		t.Errorf("expected one submit event, got %+v", events)
	}
}

func TestSubmit_TotalIsExact(t *testing.T) {
	f := newClaimFixture(t)
	rates := []string{"0.01", "37.5", "199.99", "1000"}
	hours := []string{"0.1", "1", "12.25", "180", "99.99"}

	for _, r := range rates {
		u := f.users.add(lecturer("Rate", "Case", "CASRA"+r, 0))
		u.HourlyRate = decimal.RequireFromString(r)
		_ = f.users.Update(context.Background(), u)

		for _, h := range hours {
			claim, err := f.svc.Submit(context.Background(), actorFor(u), &SubmitClaimInput{
				Month:       "2025-03",
				HoursWorked: decimal.RequireFromString(h),
			})
			if err != nil {
				t.Fatalf("Submit(%s x %s) error = %v", h, r, err)
			}
			want := decimal.RequireFromString(h).Mul(decimal.RequireFromString(r)).Round(2)
			if !claim.Total.Equal(want) {
				t.Errorf("Total(%s x %s) = %s, want %s", h, r, claim.Total, want)
			}
		}
	}
}

func TestSubmit_ValidationFailures(t *testing.T) {
	f := newClaimFixture(t)

	tests := []struct {
		name      string
		input     SubmitClaimInput
		wantField string
		wantMsg   string
	}{
		{"over monthly limit", SubmitClaimInput{Month: "2025-03", HoursWorked: decimal.NewFromInt(181)}, "hours_worked", "cannot exceed 180 hours per month"},
		{"far over limit", SubmitClaimInput{Month: "2025-03", HoursWorked: decimal.NewFromInt(1500)}, "hours_worked", "cannot exceed 1000"},
		{"zero hours", SubmitClaimInput{Month: "2025-03"}, "hours_worked", "required"},
		{"too small", SubmitClaimInput{Month: "2025-03", HoursWorked: decimal.RequireFromString("0.05")}, "hours_worked", "at least 0.1"},
		{"too precise", SubmitClaimInput{Month: "2025-03", HoursWorked: decimal.RequireFromString("1.234")}, "hours_worked", "decimal places"},
		{"missing month", SubmitClaimInput{HoursWorked: decimal.NewFromInt(5)}, "month", "required"},
		{"bad month", SubmitClaimInput{Month: "03/2025", HoursWorked: decimal.NewFromInt(5)}, "month", "YYYY-MM"},
		{"long notes", SubmitClaimInput{Month: "2025-03", HoursWorked: decimal.NewFromInt(5), Notes: strings.Repeat("n", 501)}, "notes", "500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := tt.input
			_, err := f.svc.Submit(context.Background(), actorFor(f.john), &input)

			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Submit() error = %v, want ValidationError", err)
			}
			if errors.Is(err, domain.ErrPolicyViolation) {
				t.Error("validation failure must not look like a policy violation")
			}
			found := false
			for _, fe := range verr.Fields {
				if fe.Field == tt.wantField && strings.Contains(fe.Message, tt.wantMsg) {
					found = true
				}
			}
			if !found {
				t.Errorf("fields = %+v, want %s containing %q", verr.Fields, tt.wantField, tt.wantMsg)
			}
			if verr.Input == nil {
				t.Error("validation error should carry the rejected input")
			}
		})
	}

	if n := len(f.claims.claims); n != 0 {
		t.Errorf("no claim should be stored, got %d", n)
	}
}

func TestSubmit_OnlyLecturers(t *testing.T) {
	f := newClaimFixture(t)

	for _, role := range []domain.Role{domain.RoleHR, domain.RoleCoordinator, domain.RoleManager} {
		_, err := f.svc.Submit(context.Background(), staff(role), &SubmitClaimInput{
			Month:       "2025-03",
			HoursWorked: decimal.NewFromInt(5),
		})
		if !errors.Is(err, domain.ErrPolicyViolation) {
			t.Errorf("%s Submit() error = %v, want policy violation", role, err)
		}
	}
}

func TestSubmit_StoresDocument(t *testing.T) {
	f := newClaimFixture(t)

	claim, err := f.svc.Submit(context.Background(), actorFor(f.john), &SubmitClaimInput{
		Month:       "2025-03",
		HoursWorked: decimal.NewFromInt(5),
		Document:    &DocumentUpload{Name: "timesheet.pdf", Size: 7, Content: strings.NewReader("content")},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if claim.DocumentPath == "" || !strings.HasSuffix(claim.DocumentPath, "_timesheet.pdf") {
		t.Errorf("DocumentPath = %q", claim.DocumentPath)
	}

	rc, name, err := f.svc.OpenDocument(context.Background(), actorFor(f.john), claim.ID)
	if err != nil {
		t.Fatalf("OpenDocument() error = %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "content" || name != "timesheet.pdf" {
		t.Errorf("document = %q (%s)", data, name)
	}
}

func TestSubmit_EmptyDocumentIgnored(t *testing.T) {
	f := newClaimFixture(t)

	claim, err := f.svc.Submit(context.Background(), actorFor(f.john), &SubmitClaimInput{
		Month:       "2025-03",
		HoursWorked: decimal.NewFromInt(5),
		Document:    &DocumentUpload{Name: "empty.pdf", Size: 0, Content: strings.NewReader("")},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if claim.DocumentPath != "" {
		t.Errorf("DocumentPath = %q, want empty", claim.DocumentPath)
	}
	if len(f.docs.files) != 0 {
		t.Error("no document should be stored")
	}
}

func TestSubmit_PersistenceFailureRemovesUpload(t *testing.T) {
	f := newClaimFixture(t)
	f.claims.createErr = errStoreDown

	_, err := f.svc.Submit(context.Background(), actorFor(f.john), &SubmitClaimInput{
		Month:       "2025-03",
		HoursWorked: decimal.NewFromInt(5),
		Document:    &DocumentUpload{Name: "proof.pdf", Size: 4, Content: strings.NewReader("data")},
	})

	var perr *domain.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("Submit() error = %v, want PersistenceError", err)
	}
	if len(f.docs.files) != 0 || len(f.docs.removed) != 1 {
		t.Errorf("upload should be removed, files=%d removed=%v", len(f.docs.files), f.docs.removed)
	}
}

func TestSubmit_DocumentStoreFailure(t *testing.T) {
	f := newClaimFixture(t)
	f.docs.saveErr = errStoreDown

	_, err := f.svc.Submit(context.Background(), actorFor(f.john), &SubmitClaimInput{
		Month:       "2025-03",
		HoursWorked: decimal.NewFromInt(5),
		Document:    &DocumentUpload{Name: "proof.pdf", Size: 4, Content: strings.NewReader("data")},
	})

	var perr *domain.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("Submit() error = %v, want PersistenceError", err)
	}
	if len(f.claims.claims) != 0 {
		t.Error("no claim should be stored")
	}
}

func TestApprove_CoordinatorThenManager(t *testing.T) {
	f := newClaimFixture(t)
	claim := f.submit(t, "10")

	approved, err := f.svc.Approve(context.Background(), staff(domain.RoleCoordinator), claim.ID)
	if err != nil {
		t.Fatalf("coordinator Approve() error = %v", err)
	}
	if approved.Status != domain.StatusApprovedByCoordinator {
		t.Errorf("Status = %s, want ApprovedByCoordinator", approved.Status)
	}
	if approved.ActionBy != "Coordinator" {
		t.Errorf("ActionBy = %q, want Coordinator", approved.ActionBy)
	}
	if approved.ActionDate == nil || !approved.ActionDate.Equal(f.now) {
		t.Errorf("ActionDate = %v, want %v", approved.ActionDate, f.now)
	}

	final, err := f.svc.Approve(context.Background(), staff(domain.RoleManager), claim.ID)
	if err != nil {
		t.Fatalf("manager Approve() error = %v", err)
	}
	if final.Status != domain.StatusApprovedByManager || final.ActionBy != "Manager" {
		t.Errorf("final = %s / %s", final.Status, final.ActionBy)
	}

	stored, _ := f.claims.GetByID(context.Background(), claim.ID)
	if stored.Status != domain.StatusApprovedByManager {
		t.Errorf("stored status = %s", stored.Status)
	}

	events, _ := f.svc.History(context.Background(), actorFor(f.john), claim.ID)
	if len(events) != 3 {
		t.Fatalf("history length = %d, want 3", len(events))
	}
	if events[1].ActorRole != domain.RoleCoordinator || events[2].FromStatus != domain.StatusApprovedByCoordinator {
		t.Errorf("unexpected history %+v %+v", events[1], events[2])
	}
}

func TestApprove_ManagerCannotSkipCoordinator(t *testing.T) {
	f := newClaimFixture(t)
	claim := f.submit(t, "10")

	_, err := f.svc.Approve(context.Background(), staff(domain.RoleManager), claim.ID)
	if !errors.Is(err, domain.ErrPolicyViolation) {
		t.Fatalf("Approve() error = %v, want policy violation", err)
	}

	stored, _ := f.claims.GetByID(context.Background(), claim.ID)
	if stored.Status != domain.StatusPending || stored.ActionBy != "" {
		t.Errorf("claim changed: %s / %q", stored.Status, stored.ActionBy)
	}
}

func TestReview_TerminalClaimsNeverChange(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()

	rejected := f.submit(t, "5")
	if _, err := f.svc.Reject(ctx, staff(domain.RoleCoordinator), rejected.ID); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}

	for _, role := range domain.Roles {
		if _, err := f.svc.Approve(ctx, staff(role), rejected.ID); !errors.Is(err, domain.ErrPolicyViolation) {
			t.Errorf("%s Approve() on rejected claim error = %v", role, err)
		}
		if _, err := f.svc.Reject(ctx, staff(role), rejected.ID); !errors.Is(err, domain.ErrPolicyViolation) {
			t.Errorf("%s Reject() on rejected claim error = %v", role, err)
		}
	}

	stored, _ := f.claims.GetByID(ctx, rejected.ID)
	if stored.Status != domain.StatusRejectedByCoordinator {
		t.Errorf("status = %s, want RejectedByCoordinator", stored.Status)
	}
}

func TestReview_ConcurrentChangeIsPolicyViolation(t *testing.T) {
	f := newClaimFixture(t)
	claim := f.submit(t, "10")

	// another coordinator wins the race between read and write
	f.claims.beforeWrite = func(c *models.Claim) {
		c.Status = domain.StatusRejectedByCoordinator
	}

	_, err := f.svc.Approve(context.Background(), staff(domain.RoleCoordinator), claim.ID)
	if !errors.Is(err, domain.ErrPolicyViolation) {
		t.Fatalf("Approve() error = %v, want policy violation", err)
	}

	stored, _ := f.claims.GetByID(context.Background(), claim.ID)
	if stored.Status != domain.StatusRejectedByCoordinator {
		t.Errorf("losing write must not overwrite, status = %s", stored.Status)
	}
}

func TestReview_MissingClaim(t *testing.T) {
	f := newClaimFixture(t)

	_, err := f.svc.Approve(context.Background(), staff(domain.RoleCoordinator), 404)
	if !errors.Is(err, ErrClaimNotFound) || !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Approve() error = %v, want ErrClaimNotFound", err)
	}
}

func TestDelete_PendingOnly(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()

	pending := f.submit(t, "5")
	if err := f.svc.Delete(ctx, actorFor(f.john), pending.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := f.claims.GetByID(ctx, pending.ID); err == nil {
		t.Error("pending claim should be removed")
	}

	// second delete is NotFound, not a crash
	if err := f.svc.Delete(ctx, actorFor(f.john), pending.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want not found", err)
	}

	approved := f.submit(t, "5")
	if _, err := f.svc.Approve(ctx, staff(domain.RoleCoordinator), approved.ID); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if err := f.svc.Delete(ctx, staff(domain.RoleHR), approved.ID); !errors.Is(err, domain.ErrPolicyViolation) {
		t.Errorf("Delete() approved claim error = %v, want policy violation", err)
	}
	if _, err := f.claims.GetByID(ctx, approved.ID); err != nil {
		t.Error("non-pending claim must not be removed")
	}
}

func TestDelete_Ownership(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()
	jane := f.users.add(lecturer("Jane", "Roe", "ROEJA456", 60))

	claim := f.submit(t, "5")

	if err := f.svc.Delete(ctx, actorFor(jane), claim.ID); !errors.Is(err, domain.ErrPolicyViolation) {
		t.Errorf("other lecturer Delete() error = %v, want policy violation", err)
	}
	if err := f.svc.Delete(ctx, staff(domain.RoleCoordinator), claim.ID); !errors.Is(err, domain.ErrPolicyViolation) {
		t.Errorf("coordinator Delete() error = %v, want policy violation", err)
	}
	if err := f.svc.Delete(ctx, staff(domain.RoleHR), claim.ID); err != nil {
		t.Errorf("HR Delete() error = %v", err)
	}

	// history outlives the claim for HR
	events, err := f.svc.History(ctx, staff(domain.RoleHR), claim.ID)
	if err != nil || len(events) != 2 || events[1].Action != domain.ActionDelete {
		t.Errorf("History() = %+v, %v", events, err)
	}
}

func TestListAndGet_Visibility(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()
	jane := f.users.add(lecturer("Jane", "Roe", "ROEJA456", 60))

	johns := f.submit(t, "5")
	if _, err := f.svc.Submit(ctx, actorFor(jane), &SubmitClaimInput{Month: "2025-04", HoursWorked: decimal.NewFromInt(3)}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	own, total, err := f.svc.List(ctx, actorFor(f.john), &ListClaimsInput{Page: pagination.New(1, 10)})
	if err != nil || total != 1 || own[0].LecturerID != "DOEJO123" {
		t.Errorf("lecturer List() = %d claims, %v", total, err)
	}

	_, total, _ = f.svc.List(ctx, staff(domain.RoleHR), &ListClaimsInput{Page: pagination.New(1, 10)})
	if total != 2 {
		t.Errorf("HR List() total = %d, want 2", total)
	}

	_, total, _ = f.svc.List(ctx, staff(domain.RoleHR), &ListClaimsInput{Month: "2025-04"})
	if total != 1 {
		t.Errorf("HR List(month) total = %d, want 1", total)
	}

	if _, err := f.svc.Get(ctx, actorFor(jane), johns.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("other lecturer Get() error = %v, want forbidden", err)
	}
	if _, err := f.svc.Get(ctx, staff(domain.RoleManager), johns.ID); err != nil {
		t.Errorf("manager Get() error = %v", err)
	}
}

func TestQueue(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()

	a := f.submit(t, "1")
	f.submit(t, "2")
	if _, err := f.svc.Approve(ctx, staff(domain.RoleCoordinator), a.ID); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	_, pending, _ := f.svc.Queue(ctx, domain.RoleCoordinator, nil)
	_, managerQueue, _ := f.svc.Queue(ctx, domain.RoleManager, nil)
	if pending != 1 || managerQueue != 1 {
		t.Errorf("queues = %d / %d, want 1 / 1", pending, managerQueue)
	}

	if _, _, err := f.svc.Queue(ctx, domain.RoleLecturer, nil); err == nil {
		t.Error("lecturers have no review queue")
	}
}

func TestOriginalDocumentName(t *testing.T) {
	tests := map[string]string{
		"0b9f_report.pdf":     "report.pdf",
		"uuid_with_under.pdf": "with_under.pdf",
		"plain.pdf":           "plain.pdf",
	}
	for in, want := range tests {
		if got := OriginalDocumentName(in); got != want {
			t.Errorf("OriginalDocumentName(%q) = %q, want %q", in, got, want)
		}
	}
}
