package domain

import "time"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSecurity Role = "security"
	RoleOfficer  Role = "officer"
	RoleResident Role = "resident"
)

// Valid reports whether the role is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSecurity, RoleOfficer, RoleResident:
		return true
	}
	return false
}

type VisitorStatus string

const (
	StatusPending    VisitorStatus = "pending"
	StatusApproved   VisitorStatus = "approved"
	StatusRejected   VisitorStatus = "rejected"
	StatusCheckedIn  VisitorStatus = "checked-in"
	StatusCheckedOut VisitorStatus = "checked-out"
)

// Terminal reports whether no transition leads out of the status.
func (s VisitorStatus) Terminal() bool {
	return s == StatusRejected || s == StatusCheckedOut
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	UnitNo       string    `json:"unitNo,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Unit struct {
	Block   string `json:"block"`
	HouseNo string `json:"houseNo"`
}

// Label renders the "Block-HouseNo" form used by visitor and user records.
func (u Unit) Label() string {
	return u.Block + "-" + u.HouseNo
}

type Visitor struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Contact      string        `json:"contact"`
	Purpose      string        `json:"purpose"`
	Resident     string        `json:"resident"`
	Block        string        `json:"block"`
	HouseNo      string        `json:"houseNo"`
	Vehicle      string        `json:"vehicle,omitempty"`
	CarBrand     string        `json:"carBrand,omitempty"`
	PhotoKey     string        `json:"-"`
	Status       VisitorStatus `json:"status"`
	CheckInTime  *time.Time    `json:"checkInTime,omitempty"`
	CheckOutTime *time.Time    `json:"checkOutTime,omitempty"`
	RegisteredBy int64         `json:"registeredBy,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

type CompanyInfo struct {
	Name           string    `json:"name"`
	Logo           string    `json:"logo,omitempty"`
	Address        string    `json:"address"`
	WelcomeMessage string    `json:"welcomeMessage"`
	PersonInCharge string    `json:"personInCharge"`
	ContactNumber  string    `json:"contactNumber"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type ChatSender string

const (
	SenderUser  ChatSender = "user"
	SenderBot   ChatSender = "bot"
	SenderAdmin ChatSender = "admin"
)

type ChatMessage struct {
	Sender ChatSender `json:"sender"`
	Text   string     `json:"text"`
	SentAt time.Time  `json:"sentAt"`
}

// ChatThread is one resident-initiated support conversation.
// Messages are append-only; AdminReplied and Dismissed latch true and
// never reset.
type ChatThread struct {
	ID           int64         `json:"id"`
	UserID       *int64        `json:"userId,omitempty"`
	UserName     string        `json:"userName"`
	Unit         string        `json:"unit"`
	InitialQuery string        `json:"initialQuery"`
	Messages     []ChatMessage `json:"messages"`
	Dismissed    bool          `json:"dismissed"`
	AdminReplied bool          `json:"adminReplied"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}
