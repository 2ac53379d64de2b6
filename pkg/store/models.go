package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           int64  `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null"`
	UnitNo       string
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type VisitorModel struct {
	ID           int64  `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	Contact      string
	Purpose      string
	Resident     string `gorm:"index;not null"`
	Block        string
	HouseNo      string
	Vehicle      string
	CarBrand     string
	PhotoKey     string
	Status       string `gorm:"not null;index"`
	CheckInTime  *time.Time
	CheckOutTime *time.Time
	RegisteredBy int64
	CreatedAt    time.Time `gorm:"not null;index"`
	UpdatedAt    time.Time `gorm:"not null"`
}

type UnitModel struct {
	Block   string `gorm:"primaryKey"`
	HouseNo string `gorm:"primaryKey"`
}

type CompanyInfoModel struct {
	ID             int64  `gorm:"primaryKey"`
	Name           string `gorm:"not null"`
	Logo           string
	Address        string
	WelcomeMessage string
	PersonInCharge string
	ContactNumber  string
	UpdatedAt      time.Time
}

type ChatThreadModel struct {
	ID           int64 `gorm:"primaryKey"`
	UserID       *int64
	UserName     string
	Unit         string
	InitialQuery string         `gorm:"type:text"`
	Messages     datatypes.JSON `gorm:"type:jsonb"`
	Dismissed    bool           `gorm:"not null;index"`
	AdminReplied bool           `gorm:"not null"`
	CreatedAt    time.Time      `gorm:"not null;index"`
	UpdatedAt    time.Time      `gorm:"not null"`
}
