package app

import (
	"errors"
	"testing"

	"gatebook/pkg/domain"
)

func TestLastAdminProtection(t *testing.T) {
	a := newTestApp(t, Config{})
	admin := userByRole(t, a, domain.RoleAdmin)

	if err := a.DeleteUser(admin, admin.ID); !errors.Is(err, ErrSelfDeleteForbidden) {
		t.Fatalf("self-delete: err = %v, want ErrSelfDeleteForbidden", err)
	}
	if _, err := a.ChangeRole(admin, admin.ID, domain.RoleSecurity); !errors.Is(err, ErrLastAdminProtected) {
		t.Fatalf("demote sole admin: err = %v, want ErrLastAdminProtected", err)
	}

	second, err := a.CreateUser(admin, "admin2", "admin2pass", domain.RoleAdmin, "")
	if err != nil {
		t.Fatalf("create second admin: %v", err)
	}

	demoted, err := a.ChangeRole(admin, admin.ID, domain.RoleSecurity)
	if err != nil {
		t.Fatalf("demote with second admin present: %v", err)
	}
	if demoted.Role != domain.RoleSecurity {
		t.Fatalf("role = %s, want security", demoted.Role)
	}

	// Now second is the sole admin and cannot be deleted.
	if err := a.DeleteUser(second, second.ID); !errors.Is(err, ErrSelfDeleteForbidden) {
		t.Fatalf("self-delete: err = %v, want ErrSelfDeleteForbidden", err)
	}
	if _, err := a.ChangeRole(second, second.ID, domain.RoleOfficer); !errors.Is(err, ErrLastAdminProtected) {
		t.Fatalf("demote sole admin: err = %v, want ErrLastAdminProtected", err)
	}
}

func TestDeleteNonSoleAdmin(t *testing.T) {
	a := newTestApp(t, Config{})
	admin := userByRole(t, a, domain.RoleAdmin)

	second, err := a.CreateUser(admin, "admin2", "admin2pass", domain.RoleAdmin, "")
	if err != nil {
		t.Fatalf("create second admin: %v", err)
	}
	if err := a.DeleteUser(admin, second.ID); err != nil {
		t.Fatalf("delete non-sole admin: %v", err)
	}
	users, err := a.ListUsers(admin)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	for _, u := range users {
		if u.ID == second.ID {
			t.Fatal("deleted admin still listed")
		}
	}
}

func TestCreateUserValidation(t *testing.T) {
	a := newTestApp(t, Config{})
	admin := userByRole(t, a, domain.RoleAdmin)
	resident := userByRole(t, a, domain.RoleResident)

	if _, err := a.CreateUser(resident, "someone", "longenough", domain.RoleResident, "A-102"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("resident create user: err = %v, want ErrPermissionDenied", err)
	}
	if _, err := a.CreateUser(admin, "  ", "longenough", domain.RoleResident, ""); !errors.Is(err, ErrUsernameRequired) {
		t.Fatalf("blank username: err = %v, want ErrUsernameRequired", err)
	}
	if _, err := a.CreateUser(admin, "dup", "longenough", domain.Role("manager"), ""); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("bad role: err = %v, want ErrInvalidRole", err)
	}
	if _, err := a.CreateUser(admin, "admin", "longenough", domain.RoleResident, ""); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("duplicate username: err = %v, want ErrUsernameTaken", err)
	}
}

func TestEditCredentials(t *testing.T) {
	a := newTestApp(t, Config{})
	admin := userByRole(t, a, domain.RoleAdmin)
	resident := userByRole(t, a, domain.RoleResident)
	officer := userByRole(t, a, domain.RoleOfficer)

	// Residents may edit only themselves.
	if _, err := a.EditCredentials(resident, officer.ID, "hijack", "", ""); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("resident edits other: err = %v, want ErrPermissionDenied", err)
	}

	updated, err := a.EditCredentials(resident, resident.ID, "resident-renamed", "newpassword", "newpassword")
	if err != nil {
		t.Fatalf("edit self: %v", err)
	}
	if updated.Username != "resident-renamed" {
		t.Fatalf("username = %q", updated.Username)
	}
	if _, _, err := a.Login("resident-renamed", "newpassword"); err != nil {
		t.Fatalf("login with new credentials: %v", err)
	}
	if _, _, err := a.Login("resident-renamed", "resident123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still valid: err = %v", err)
	}

	if _, err := a.EditCredentials(admin, resident.ID, "resident-renamed", "mismatch1", "mismatch2"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("mismatched confirmation: err = %v, want ErrPasswordMismatch", err)
	}
	if _, err := a.EditCredentials(admin, resident.ID, "officer", "", ""); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("rename onto taken username: err = %v, want ErrUsernameTaken", err)
	}
}
