package app

import (
	"fmt"

	"gatebook/pkg/domain"
)

// CompanyInfo returns the company profile, falling back to the seed
// profile when none has been saved.
func (a *App) CompanyInfo() (domain.CompanyInfo, error) {
	info, ok, err := a.store.GetCompanyInfo()
	if err != nil {
		return domain.CompanyInfo{}, fmt.Errorf("fetch company info: %w", err)
	}
	if !ok {
		return defaultCompanyInfo(), nil
	}
	return info, nil
}

// UpdateCompanyInfo replaces the company profile wholesale.
func (a *App) UpdateCompanyInfo(actor domain.User, info domain.CompanyInfo) (domain.CompanyInfo, error) {
	if err := a.authorize(actor, OpUpdateCompany); err != nil {
		return domain.CompanyInfo{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	info.UpdatedAt = a.now()
	if err := a.store.SaveCompanyInfo(info); err != nil {
		return domain.CompanyInfo{}, fmt.Errorf("save company info: %w", err)
	}
	return info, nil
}
