package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/quickstash/internal/common"
	"github.com/dmitrijs2005/quickstash/internal/server/models"
)

func newInvitationServiceForTest(t *testing.T) (*InvitationService, *fakeRepoManager, *fakeMailer, sqlmock.Sqlmock) {
	t.Helper()

	db, mock := newSQLMockDB(t)
	t.Cleanup(func() { db.Close() })

	rm := newFakeRepoManager()
	mailer := newFakeMailer()
	svc := NewInvitationService(db, rm, mailer, testLogger(), "https://app.example.com")

	return svc, rm, mailer, mock
}

func strptr(s string) *string { return &s }

func TestInvitationServiceResolveOwner(t *testing.T) {
	svc, _, _, _ := newInvitationServiceForTest(t)

	file := &models.File{ID: "file1", UserID: "user1"}
	access, err := svc.Resolve(context.Background(), nil, file, &models.User{ID: "user1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if access.Decision != AccessOwner {
		t.Errorf("expected owner decision, got %v", access.Decision)
	}
	if !access.Allows(models.PrivilegeFull) {
		t.Errorf("expected owner to hold full privilege")
	}
}

func TestInvitationServiceResolveInvited(t *testing.T) {
	tests := []struct {
		name      string
		granted   models.Privilege
		required  models.Privilege
		wantAllow bool
	}{
		{"exact level", models.PrivilegeEdit, models.PrivilegeEdit, true},
		{"higher level", models.PrivilegeFull, models.PrivilegeReadOnly, true},
		{"insufficient level", models.PrivilegeReadOnly, models.PrivilegeEdit, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, rm, _, _ := newInvitationServiceForTest(t)
			file := &models.File{ID: "file1", UserID: "user1"}
			rm.invitations.byKey[inviteeKey("file1", strptr("user2"))] = &models.FileInvitation{
				ID: "inv1", FileID: "file1", InviteeID: strptr("user2"), Privilege: tt.granted,
			}

			access, err := svc.Resolve(context.Background(), nil, file, &models.User{ID: "user2"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := access.Allows(tt.required); got != tt.wantAllow {
				t.Errorf("Allows(%v) = %v, want %v", tt.required, got, tt.wantAllow)
			}
		})
	}
}

func TestInvitationServiceResolveNoInvitation(t *testing.T) {
	svc, _, _, _ := newInvitationServiceForTest(t)

	file := &models.File{ID: "file1", UserID: "user1"}
	access, err := svc.Resolve(context.Background(), nil, file, &models.User{ID: "user2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if access.Decision != AccessDenied {
		t.Errorf("expected denial, got %v", access.Decision)
	}
}

func TestInvitationServiceResolveExpiredBeforeSweep(t *testing.T) {
	svc, rm, _, _ := newInvitationServiceForTest(t)

	expiresAt := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	rm.invitations.byKey[inviteeKey("file1", strptr("user2"))] = &models.FileInvitation{
		ID: "inv1", FileID: "file1", InviteeID: strptr("user2"),
		Privilege: models.PrivilegeFull, ExpiresAt: &expiresAt,
	}
	// One second past expiration, sweep has not run yet.
	svc.now = func() time.Time { return expiresAt.Add(time.Second) }

	file := &models.File{ID: "file1", UserID: "user1"}
	access, err := svc.Resolve(context.Background(), nil, file, &models.User{ID: "user2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if access.Decision != AccessDenied {
		t.Errorf("expected expired invitation rejected, got %v", access.Decision)
	}
}

func TestInvitationServiceResolvePublicIgnoresPersonal(t *testing.T) {
	svc, rm, _, _ := newInvitationServiceForTest(t)
	rm.invitations.byKey[inviteeKey("file1", strptr("user2"))] = &models.FileInvitation{
		ID: "inv1", FileID: "file1", InviteeID: strptr("user2"), Privilege: models.PrivilegeFull,
	}

	file := &models.File{ID: "file1", UserID: "user1"}
	access, err := svc.ResolvePublic(context.Background(), nil, file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if access.Decision != AccessDenied {
		t.Errorf("expected public path to ignore personal invitations, got %v", access.Decision)
	}
}

func TestInvitationServiceShareCreatesInvitation(t *testing.T) {
	svc, rm, _, mock := newInvitationServiceForTest(t)
	rm.files.byID["file1"] = &models.File{ID: "file1", Name: "report.pdf", UserID: "user1"}
	rm.users.byUsername["bob"] = &models.User{ID: "user2", Username: "bob", Email: "bob@example.com"}

	mock.ExpectBegin()
	mock.ExpectCommit()

	expiresAt := time.Now().Add(24 * time.Hour)
	inv, err := svc.Share(context.Background(), "file1", strptr("bob"), models.PrivilegeEdit, &expiresAt, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.InviteeID == nil || *inv.InviteeID != "user2" {
		t.Errorf("expected invitation for user2, got %v", inv.InviteeID)
	}
	if inv.Privilege != models.PrivilegeEdit {
		t.Errorf("expected edit privilege, got %v", inv.Privilege)
	}
	if len(rm.invitations.created) != 1 {
		t.Errorf("expected one created invitation, got %d", len(rm.invitations.created))
	}
}

func TestInvitationServiceSharePublic(t *testing.T) {
	svc, rm, _, mock := newInvitationServiceForTest(t)
	rm.files.byID["file1"] = &models.File{ID: "file1", Name: "report.pdf", UserID: "user1"}

	mock.ExpectBegin()
	mock.ExpectCommit()

	inv, err := svc.Share(context.Background(), "file1", nil, models.PrivilegeReadOnly, nil, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.InviteeID != nil {
		t.Errorf("expected public invitation, got invitee %v", *inv.InviteeID)
	}
}

func TestInvitationServiceShareReShareUpdatesInPlace(t *testing.T) {
	svc, rm, _, mock := newInvitationServiceForTest(t)
	rm.files.byID["file1"] = &models.File{ID: "file1", Name: "report.pdf", UserID: "user1"}
	rm.users.byUsername["bob"] = &models.User{ID: "user2", Username: "bob"}
	rm.invitations.byKey[inviteeKey("file1", strptr("user2"))] = &models.FileInvitation{
		ID: "inv1", FileID: "file1", InviteeID: strptr("user2"), Privilege: models.PrivilegeReadOnly,
	}

	mock.ExpectBegin()
	mock.ExpectCommit()

	inv, err := svc.Share(context.Background(), "file1", strptr("bob"), models.PrivilegeFull, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.ID != "inv1" {
		t.Errorf("expected the existing invitation to be kept, got %q", inv.ID)
	}
	if inv.Privilege != models.PrivilegeFull {
		t.Errorf("expected privilege raised in place, got %v", inv.Privilege)
	}
	if len(rm.invitations.created) != 0 {
		t.Errorf("expected no duplicate row, got %d", len(rm.invitations.created))
	}
	if len(rm.invitations.updated) != 1 || rm.invitations.updated[0] != "inv1" {
		t.Errorf("expected terms update on inv1, got %v", rm.invitations.updated)
	}
}

func TestInvitationServiceShareInviteeIsOwner(t *testing.T) {
	svc, rm, _, mock := newInvitationServiceForTest(t)
	rm.files.byID["file1"] = &models.File{ID: "file1", Name: "report.pdf", UserID: "user1"}
	rm.users.byUsername["alice"] = &models.User{ID: "user1", Username: "alice"}

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Share(context.Background(), "file1", strptr("alice"), models.PrivilegeEdit, nil, false)
	if !errors.Is(err, common.ErrInviteeIsOwner) {
		t.Errorf("expected ErrInviteeIsOwner, got %v", err)
	}
	if len(rm.invitations.created) != 0 {
		t.Errorf("expected no invitation, got %d", len(rm.invitations.created))
	}
}

func TestInvitationServiceShareInviteeMissing(t *testing.T) {
	svc, _, _, mock := newInvitationServiceForTest(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Share(context.Background(), "file1", strptr("ghost"), models.PrivilegeEdit, nil, false)
	if !errors.Is(err, common.ErrFileNotFound) && !errors.Is(err, common.ErrUserNotFound) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestInvitationServiceShareInvalidPrivilege(t *testing.T) {
	svc, _, _, _ := newInvitationServiceForTest(t)

	_, err := svc.Share(context.Background(), "file1", strptr("bob"), models.Privilege(42), nil, false)
	if !errors.Is(err, common.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestInvitationServiceShareSendsNotification(t *testing.T) {
	svc, rm, mailer, mock := newInvitationServiceForTest(t)
	rm.files.byID["file1"] = &models.File{ID: "file1", Name: "report.pdf", UserID: "user1"}
	rm.users.byID["user1"] = &models.User{ID: "user1", Username: "alice"}
	rm.users.byUsername["bob"] = &models.User{ID: "user2", Username: "bob", Email: "bob@example.com"}

	mock.ExpectBegin()
	mock.ExpectCommit()

	if _, err := svc.Share(context.Background(), "file1", strptr("bob"), models.PrivilegeReadOnly, nil, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case msg := <-mailer.sent:
		if msg.To != "bob@example.com" {
			t.Errorf("unexpected recipient %q", msg.To)
		}
		if msg.Subject != `alice shared "report.pdf" with you.` {
			t.Errorf("unexpected subject %q", msg.Subject)
		}
		if !strings.Contains(msg.Body, "https://app.example.com/files/file1") {
			t.Errorf("expected file link in body, got %q", msg.Body)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification was never dispatched")
	}
}

func TestInvitationServiceShareSurvivesDeliveryFailure(t *testing.T) {
	svc, rm, mailer, mock := newInvitationServiceForTest(t)
	mailer.err = fmt.Errorf("smtp unreachable")
	rm.files.byID["file1"] = &models.File{ID: "file1", Name: "report.pdf", UserID: "user1"}
	rm.users.byID["user1"] = &models.User{ID: "user1", Username: "alice"}
	rm.users.byUsername["bob"] = &models.User{ID: "user2", Username: "bob", Email: "bob@example.com"}

	mock.ExpectBegin()
	mock.ExpectCommit()

	inv, err := svc.Share(context.Background(), "file1", strptr("bob"), models.PrivilegeReadOnly, nil, true)
	if err != nil {
		t.Fatalf("expected share to succeed despite delivery failure, got %v", err)
	}
	if inv == nil {
		t.Fatal("expected invitation")
	}

	select {
	case <-mailer.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("notification was never attempted")
	}
}

func TestInvitationServiceUnshare(t *testing.T) {
	svc, rm, _, mock := newInvitationServiceForTest(t)
	rm.files.byID["file1"] = &models.File{ID: "file1", UserID: "user1"}
	rm.users.byUsername["bob"] = &models.User{ID: "user2", Username: "bob"}
	rm.invitations.byKey[inviteeKey("file1", strptr("user2"))] = &models.FileInvitation{
		ID: "inv1", FileID: "file1", InviteeID: strptr("user2"), Privilege: models.PrivilegeEdit,
	}

	mock.ExpectBegin()
	mock.ExpectCommit()

	inv, err := svc.Unshare(context.Background(), "file1", "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.ID != "inv1" {
		t.Errorf("expected revoked invitation snapshot, got %q", inv.ID)
	}
	if len(rm.invitations.deleted) != 1 || rm.invitations.deleted[0] != "inv1" {
		t.Errorf("expected inv1 deleted, got %v", rm.invitations.deleted)
	}
}

func TestInvitationServiceUnshareMissingInvitation(t *testing.T) {
	svc, rm, _, mock := newInvitationServiceForTest(t)
	rm.files.byID["file1"] = &models.File{ID: "file1", UserID: "user1"}
	rm.users.byUsername["bob"] = &models.User{ID: "user2", Username: "bob"}

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Unshare(context.Background(), "file1", "bob")
	if !errors.Is(err, common.ErrInvitationNotFound) {
		t.Errorf("expected ErrInvitationNotFound, got %v", err)
	}
}

func TestInvitationServiceRunSweeper(t *testing.T) {
	svc, rm, _, _ := newInvitationServiceForTest(t)
	rm.invitations.expiredN = 3
	rm.invitations.swept = make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()

	select {
	case <-rm.invitations.swept:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep never ran")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop on cancellation")
	}
}
