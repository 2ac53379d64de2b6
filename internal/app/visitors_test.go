package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"gatebook/pkg/domain"
)

func registerTestVisitor(t *testing.T, a *App, actor domain.User) domain.Visitor {
	t.Helper()
	visitor, err := a.RegisterVisitor(actor, RegisterVisitorInput{
		Name:    "JOHN DOE",
		Contact: "012-3456789",
		Purpose: "Delivery",
		Block:   "A",
		HouseNo: "101",
	})
	if err != nil {
		t.Fatalf("register visitor: %v", err)
	}
	return visitor
}

func TestVisitorFullLifecycle(t *testing.T) {
	a := newTestApp(t, Config{})
	officer := userByRole(t, a, domain.RoleOfficer)
	security := userByRole(t, a, domain.RoleSecurity)

	visitor := registerTestVisitor(t, a, officer)
	if visitor.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending", visitor.Status)
	}
	if visitor.Resident != "A-101" {
		t.Fatalf("resident = %q, want A-101", visitor.Resident)
	}

	visitor, err := a.ApproveVisitor(officer, visitor.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if visitor.Status != domain.StatusApproved {
		t.Fatalf("status = %s, want approved", visitor.Status)
	}
	if visitor.CheckInTime != nil || visitor.CheckOutTime != nil {
		t.Fatal("approval must not stamp timestamps")
	}

	visitor, err = a.CheckInVisitor(security, visitor.ID)
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if visitor.Status != domain.StatusCheckedIn || visitor.CheckInTime == nil {
		t.Fatalf("check-in did not stamp: status=%s time=%v", visitor.Status, visitor.CheckInTime)
	}

	visitor, err = a.CheckOutVisitor(security, visitor.ID)
	if err != nil {
		t.Fatalf("check-out: %v", err)
	}
	if visitor.Status != domain.StatusCheckedOut || visitor.CheckOutTime == nil {
		t.Fatalf("check-out did not stamp: status=%s time=%v", visitor.Status, visitor.CheckOutTime)
	}
	if visitor.CheckOutTime.Before(*visitor.CheckInTime) {
		t.Fatalf("check-out %v precedes check-in %v", visitor.CheckOutTime, visitor.CheckInTime)
	}

	if _, err := a.ApproveVisitor(officer, visitor.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("approve after check-out: err = %v, want ErrInvalidTransition", err)
	}
}

func TestVisitorTerminalStatesAreFinal(t *testing.T) {
	a := newTestApp(t, Config{})
	officer := userByRole(t, a, domain.RoleOfficer)
	security := userByRole(t, a, domain.RoleSecurity)

	rejected := registerTestVisitor(t, a, officer)
	if _, err := a.RejectVisitor(officer, rejected.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	for name, call := range map[string]func() (domain.Visitor, error){
		"approve":   func() (domain.Visitor, error) { return a.ApproveVisitor(officer, rejected.ID) },
		"check-in":  func() (domain.Visitor, error) { return a.CheckInVisitor(security, rejected.ID) },
		"check-out": func() (domain.Visitor, error) { return a.CheckOutVisitor(security, rejected.ID) },
	} {
		if _, err := call(); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s on rejected visitor: err = %v, want ErrInvalidTransition", name, err)
		}
	}
	got, err := a.GetVisitor(officer, rejected.ID)
	if err != nil {
		t.Fatalf("get visitor: %v", err)
	}
	if got.Status != domain.StatusRejected {
		t.Fatalf("status mutated to %s", got.Status)
	}
}

func TestVisitorTransitionRequiresExactStatus(t *testing.T) {
	a := newTestApp(t, Config{})
	officer := userByRole(t, a, domain.RoleOfficer)
	security := userByRole(t, a, domain.RoleSecurity)

	visitor := registerTestVisitor(t, a, officer)
	if _, err := a.CheckInVisitor(security, visitor.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("check-in from pending: err = %v, want ErrInvalidTransition", err)
	}
	if _, err := a.CheckOutVisitor(security, visitor.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("check-out from pending: err = %v, want ErrInvalidTransition", err)
	}
}

func TestVisitorRoleGatesDoNotMutate(t *testing.T) {
	a := newTestApp(t, Config{})
	officer := userByRole(t, a, domain.RoleOfficer)
	security := userByRole(t, a, domain.RoleSecurity)
	resident := userByRole(t, a, domain.RoleResident)

	visitor := registerTestVisitor(t, a, officer)

	if _, err := a.RegisterVisitor(resident, RegisterVisitorInput{Name: "X", Contact: "1", Purpose: "p", Block: "A", HouseNo: "102"}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("resident register: err = %v, want ErrPermissionDenied", err)
	}
	if _, err := a.ApproveVisitor(security, visitor.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("security approve: err = %v, want ErrPermissionDenied", err)
	}
	if _, err := a.CheckInVisitor(officer, visitor.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("officer check-in: err = %v, want ErrPermissionDenied", err)
	}

	got, err := a.GetVisitor(officer, visitor.ID)
	if err != nil {
		t.Fatalf("get visitor: %v", err)
	}
	if got.Status != domain.StatusPending {
		t.Fatalf("denied operations mutated status to %s", got.Status)
	}
}

func TestEditVisitorKeepsStatusAndTimestamps(t *testing.T) {
	a := newTestApp(t, Config{})
	officer := userByRole(t, a, domain.RoleOfficer)
	security := userByRole(t, a, domain.RoleSecurity)

	visitor := registerTestVisitor(t, a, officer)
	if _, err := a.ApproveVisitor(officer, visitor.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := a.CheckInVisitor(security, visitor.ID); err != nil {
		t.Fatalf("check-in: %v", err)
	}

	name := "JANE DOE"
	houseNo := "102"
	got, err := a.EditVisitor(officer, visitor.ID, EditVisitorInput{Name: &name, HouseNo: &houseNo})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got.Name != "JANE DOE" {
		t.Fatalf("name = %q", got.Name)
	}
	if got.Resident != "A-102" {
		t.Fatalf("resident not recomputed: %q", got.Resident)
	}
	if got.Status != domain.StatusCheckedIn || got.CheckInTime == nil {
		t.Fatal("edit must not touch status or timestamps")
	}
}

func TestResidentVisitorScope(t *testing.T) {
	a := newTestApp(t, Config{})
	officer := userByRole(t, a, domain.RoleOfficer)
	resident := userByRole(t, a, domain.RoleResident)

	mine := registerTestVisitor(t, a, officer)
	other, err := a.RegisterVisitor(officer, RegisterVisitorInput{
		Name: "OTHER", Contact: "2", Purpose: "visit", Block: "B", HouseNo: "201",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	visitors, err := a.ListVisitors(resident)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(visitors) != 1 || visitors[0].ID != mine.ID {
		t.Fatalf("resident sees %d visitors, want only own unit's", len(visitors))
	}
	if _, err := a.GetVisitor(resident, other.ID); !errors.Is(err, ErrVisitorNotFound) {
		t.Fatalf("resident get foreign visitor: err = %v, want ErrVisitorNotFound", err)
	}
}

type memPhotoStore struct {
	objects map[string][]byte
	deleted []string
}

func newMemPhotoStore() *memPhotoStore {
	return &memPhotoStore{objects: map[string][]byte{}}
}

func (s *memPhotoStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *memPhotoStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	if _, ok := s.objects[key]; !ok {
		return "", errors.New("no such object")
	}
	return "https://photos.test/" + key, nil
}

func (s *memPhotoStore) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func TestAttachVisitorPhotoRoleGate(t *testing.T) {
	photos := newMemPhotoStore()
	a := newTestApp(t, Config{Photos: photos})
	officer := userByRole(t, a, domain.RoleOfficer)
	security := userByRole(t, a, domain.RoleSecurity)
	ctx := context.Background()

	visitor := registerTestVisitor(t, a, officer)

	// Photo replacement is an edit; security may move visitors through
	// the gate but not rewrite their records.
	_, err := a.AttachVisitorPhoto(ctx, security, visitor.ID, strings.NewReader("jpeg"), 4, "image/jpeg")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("security attach: err = %v, want ErrPermissionDenied", err)
	}
	got, err := a.GetVisitor(officer, visitor.ID)
	if err != nil {
		t.Fatalf("get visitor: %v", err)
	}
	if got.PhotoKey != "" {
		t.Fatalf("photoKey = %q after refused attach, want empty", got.PhotoKey)
	}
	if len(photos.objects) != 0 {
		t.Fatalf("refused attach stored %d objects", len(photos.objects))
	}

	got, err = a.AttachVisitorPhoto(ctx, officer, visitor.ID, strings.NewReader("jpeg"), 4, "image/jpeg")
	if err != nil {
		t.Fatalf("officer attach: %v", err)
	}
	if got.PhotoKey == "" {
		t.Fatal("photoKey not set after attach")
	}

	// Replacing the photo removes the superseded blob.
	oldKey := got.PhotoKey
	got, err = a.AttachVisitorPhoto(ctx, officer, visitor.ID, strings.NewReader("png"), 3, "image/png")
	if err != nil {
		t.Fatalf("replace photo: %v", err)
	}
	if got.PhotoKey == oldKey {
		t.Fatal("replacement kept the old key")
	}
	if len(photos.deleted) != 1 || photos.deleted[0] != oldKey {
		t.Fatalf("deleted = %v, want [%s]", photos.deleted, oldKey)
	}
}

func TestCheckOutClampedToCheckIn(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := newTestApp(t, Config{Now: func() time.Time { return current }})
	officer := userByRole(t, a, domain.RoleOfficer)
	security := userByRole(t, a, domain.RoleSecurity)

	visitor := registerTestVisitor(t, a, officer)
	if _, err := a.ApproveVisitor(officer, visitor.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	visitor, err := a.CheckInVisitor(security, visitor.ID)
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}

	// Wall clock steps backwards between check-in and check-out. The
	// stamps must stay ordered on the record regardless.
	current = current.Add(-time.Hour)
	visitor, err = a.CheckOutVisitor(security, visitor.ID)
	if err != nil {
		t.Fatalf("check-out: %v", err)
	}
	if visitor.CheckOutTime == nil || visitor.CheckInTime == nil {
		t.Fatal("timestamps not stamped")
	}
	if visitor.CheckOutTime.Before(*visitor.CheckInTime) {
		t.Fatalf("checkOut %v before checkIn %v", visitor.CheckOutTime, visitor.CheckInTime)
	}
	if !visitor.CheckOutTime.Equal(*visitor.CheckInTime) {
		t.Fatalf("checkOut = %v, want clamped to %v", visitor.CheckOutTime, visitor.CheckInTime)
	}
}
