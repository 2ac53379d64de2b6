package store

import "gatebook/pkg/domain"

// Store defines persistence operations over the five collections:
// visitors, users, units, company profile, and chat threads.
type Store interface {
	// users
	SaveUser(domain.User) error
	DeleteUser(id int64) error
	HasUsername(username string) (bool, error)
	GetUserByUsername(username string) (domain.User, bool, error)
	GetUserByID(id int64) (domain.User, bool, error)
	ListUsers() ([]domain.User, error)
	CountAdmins() (int, error)

	// visitors
	SaveVisitor(domain.Visitor) error
	GetVisitor(id int64) (domain.Visitor, bool, error)
	ListVisitors() ([]domain.Visitor, error)
	ListVisitorsByUnit(unit string) ([]domain.Visitor, error)

	// units
	SaveUnit(domain.Unit) error
	DeleteUnit(block, houseNo string) error
	HasUnit(block, houseNo string) (bool, error)
	ListUnits() ([]domain.Unit, error)

	// company profile
	GetCompanyInfo() (domain.CompanyInfo, bool, error)
	SaveCompanyInfo(domain.CompanyInfo) error

	// chat threads
	SaveThread(domain.ChatThread) error
	GetThread(id int64) (domain.ChatThread, bool, error)
	ListThreads() ([]domain.ChatThread, error)
	ListThreadsByUser(userID int64) ([]domain.ChatThread, error)
}

// SessionStore persists opaque session tokens.
// Multiple concurrent sessions per user are allowed.
type SessionStore interface {
	NewSession(userID int64) (string, error)
	GetUserIDByToken(token string) (int64, bool, error)
	DeleteSession(token string) error
}
