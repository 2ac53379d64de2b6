package app

import (
	"fmt"
	"strings"

	"gatebook/internal/util"
	"gatebook/pkg/auth"
	"gatebook/pkg/domain"
)

// CreateUser registers a new account (admin operation).
func (a *App) CreateUser(actor domain.User, username, password string, role domain.Role, unitNo string) (domain.User, error) {
	if err := a.authorize(actor, OpManageUsers); err != nil {
		return domain.User{}, err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, ErrUsernameRequired
	}
	if !role.Valid() {
		return domain.User{}, ErrInvalidRole
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	taken, err := a.store.HasUsername(username)
	if err != nil {
		return domain.User{}, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return domain.User{}, ErrUsernameTaken
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}
	now := a.now()
	user := domain.User{
		ID:           util.NewRecordID(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		UnitNo:       strings.TrimSpace(unitNo),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// ChangeRole updates a user's role. Demoting the sole remaining admin is
// refused so the admin invariant holds.
func (a *App) ChangeRole(actor domain.User, targetID int64, newRole domain.Role) (domain.User, error) {
	if err := a.authorize(actor, OpManageUsers); err != nil {
		return domain.User{}, err
	}
	if !newRole.Valid() {
		return domain.User{}, ErrInvalidRole
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	target, ok, err := a.store.GetUserByID(targetID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	if target.Role == domain.RoleAdmin && newRole != domain.RoleAdmin {
		admins, err := a.store.CountAdmins()
		if err != nil {
			return domain.User{}, fmt.Errorf("count admins: %w", err)
		}
		if admins <= 1 {
			return domain.User{}, ErrLastAdminProtected
		}
	}
	target.Role = newRole
	target.UpdatedAt = a.now()
	if err := a.store.SaveUser(target); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return target, nil
}

// DeleteUser removes an account. Self-delete is always forbidden, and the
// sole remaining admin cannot be deleted.
func (a *App) DeleteUser(actor domain.User, targetID int64) error {
	if err := a.authorize(actor, OpManageUsers); err != nil {
		return err
	}
	if targetID == actor.ID {
		return ErrSelfDeleteForbidden
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	target, ok, err := a.store.GetUserByID(targetID)
	if err != nil {
		return fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	if target.Role == domain.RoleAdmin {
		admins, err := a.store.CountAdmins()
		if err != nil {
			return fmt.Errorf("count admins: %w", err)
		}
		if admins <= 1 {
			return ErrLastAdminProtected
		}
	}
	if err := a.store.DeleteUser(targetID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// EditCredentials updates a user's username and, optionally, password.
// The username must be non-empty and unique among all other users. A new
// password must match its confirmation; when no new password is supplied
// the password is left unchanged.
func (a *App) EditCredentials(actor domain.User, targetID int64, newUsername, newPassword, confirmPassword string) (domain.User, error) {
	if actor.ID != targetID {
		if err := a.authorize(actor, OpManageUsers); err != nil {
			return domain.User{}, err
		}
	}
	newUsername = strings.TrimSpace(newUsername)
	if newUsername == "" {
		return domain.User{}, ErrUsernameRequired
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	target, ok, err := a.store.GetUserByID(targetID)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	if newUsername != target.Username {
		existing, found, err := a.store.GetUserByUsername(newUsername)
		if err != nil {
			return domain.User{}, fmt.Errorf("check username: %w", err)
		}
		if found && existing.ID != targetID {
			return domain.User{}, ErrUsernameTaken
		}
	}
	if newPassword != "" {
		if newPassword != confirmPassword {
			return domain.User{}, ErrPasswordMismatch
		}
		if err := auth.ValidatePassword(newPassword); err != nil {
			return domain.User{}, err
		}
		hash, err := auth.HashPassword(newPassword)
		if err != nil {
			return domain.User{}, err
		}
		target.PasswordHash = hash
	}
	target.Username = newUsername
	target.UpdatedAt = a.now()
	if err := a.store.SaveUser(target); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return target, nil
}

// ListUsers returns all accounts (staff use).
func (a *App) ListUsers(actor domain.User) ([]domain.User, error) {
	if err := a.authorize(actor, OpManageUsers); err != nil {
		return nil, err
	}
	return a.store.ListUsers()
}
