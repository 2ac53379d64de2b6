package app

import (
	"fmt"

	"gatebook/internal/util"
	"gatebook/pkg/auth"
	"gatebook/pkg/domain"
)

type seedUser struct {
	username string
	password string
	role     domain.Role
	unitNo   string
}

var seedUsers = []seedUser{
	{username: "admin", password: "admin123", role: domain.RoleAdmin},
	{username: "security", password: "security123", role: domain.RoleSecurity},
	{username: "officer", password: "officer123", role: domain.RoleOfficer},
	{username: "resident", password: "resident123", role: domain.RoleResident, unitNo: "A-101"},
}

var seedUnits = []domain.Unit{
	{Block: "A", HouseNo: "101"},
	{Block: "A", HouseNo: "102"},
	{Block: "B", HouseNo: "201"},
}

func defaultCompanyInfo() domain.CompanyInfo {
	return domain.CompanyInfo{
		Name:           "GateBook Residence",
		Address:        "1 Gatehouse Lane",
		WelcomeMessage: "Welcome! Please register your visit at the front desk.",
		PersonInCharge: "Management Office",
		ContactNumber:  "+60-3-0000-0000",
	}
}

// ensureSeedData populates first-run defaults so a fresh deployment is
// immediately usable, and in particular never violates the at-least-one-
// Admin invariant. Existing data is left untouched.
func (a *App) ensureSeedData() error {
	users, err := a.store.ListUsers()
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if len(users) == 0 {
		now := a.now()
		for _, s := range seedUsers {
			hash, err := auth.HashPassword(s.password)
			if err != nil {
				return fmt.Errorf("hash seed password: %w", err)
			}
			user := domain.User{
				ID:           util.NewRecordID(),
				Username:     s.username,
				PasswordHash: hash,
				Role:         s.role,
				UnitNo:       s.unitNo,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := a.store.SaveUser(user); err != nil {
				return fmt.Errorf("seed user %s: %w", s.username, err)
			}
		}
	}

	units, err := a.store.ListUnits()
	if err != nil {
		return fmt.Errorf("list units: %w", err)
	}
	if len(units) == 0 {
		for _, u := range seedUnits {
			if err := a.store.SaveUnit(u); err != nil {
				return fmt.Errorf("seed unit %s: %w", u.Label(), err)
			}
		}
	}

	if _, ok, err := a.store.GetCompanyInfo(); err != nil {
		return fmt.Errorf("fetch company info: %w", err)
	} else if !ok {
		info := defaultCompanyInfo()
		info.UpdatedAt = a.now()
		if err := a.store.SaveCompanyInfo(info); err != nil {
			return fmt.Errorf("seed company info: %w", err)
		}
	}
	return nil
}
