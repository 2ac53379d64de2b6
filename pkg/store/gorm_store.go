package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"gatebook/pkg/domain"
)

const companyInfoRowID int64 = 1

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UserModel{}, &VisitorModel{}, &UnitModel{}, &CompanyInfoModel{}, &ChatThreadModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveUser inserts or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "password_hash", "role", "unit_no", "updated_at"}),
	}).Create(&model).Error
}

// DeleteUser removes a user row. Sessions referencing the id become dangling
// and are treated as invalid by the session resolver.
func (s *GormStore) DeleteUser(id int64) error {
	return s.db.Delete(&UserModel{}, "id = ?", id).Error
}

// HasUsername checks if a username exists.
func (s *GormStore) HasUsername(username string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByUsername looks up a user by exact username.
func (s *GormStore) GetUserByUsername(username string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("username = ?", username).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id int64) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// ListUsers returns all users ordered by id.
func (s *GormStore) ListUsers() ([]domain.User, error) {
	var models []UserModel
	if err := s.db.Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// CountAdmins returns the number of users with the admin role.
func (s *GormStore) CountAdmins() (int, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("role = ?", string(domain.RoleAdmin)).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// SaveVisitor inserts or updates a visitor record.
func (s *GormStore) SaveVisitor(v domain.Visitor) error {
	model := visitorToModel(v)
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "contact", "purpose", "resident", "block", "house_no",
			"vehicle", "car_brand", "photo_key", "status",
			"check_in_time", "check_out_time", "updated_at",
		}),
	}).Create(&model).Error
}

// GetVisitor retrieves a visitor by ID.
func (s *GormStore) GetVisitor(id int64) (domain.Visitor, bool, error) {
	var model VisitorModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Visitor{}, false, nil
		}
		return domain.Visitor{}, false, err
	}
	return visitorFromModel(model), true, nil
}

// ListVisitors returns all visitors ordered by registration id.
func (s *GormStore) ListVisitors() ([]domain.Visitor, error) {
	return s.listVisitors()
}

// ListVisitorsByUnit returns visitors registered for a "Block-HouseNo" unit.
func (s *GormStore) ListVisitorsByUnit(unit string) ([]domain.Visitor, error) {
	return s.listVisitors("resident = ?", unit)
}

func (s *GormStore) listVisitors(conds ...any) ([]domain.Visitor, error) {
	var models []VisitorModel
	tx := s.db.Order("id ASC")
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Visitor, 0, len(models))
	for _, m := range models {
		res = append(res, visitorFromModel(m))
	}
	return res, nil
}

// SaveUnit inserts a unit. Duplicate (block, houseNo) pairs violate the
// composite primary key and surface as an error; callers check HasUnit first.
func (s *GormStore) SaveUnit(u domain.Unit) error {
	model := UnitModel{Block: u.Block, HouseNo: u.HouseNo}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&model).Error
}

// DeleteUnit removes a unit if present. Users and visitors referencing the
// unit keep their label; references are not cascaded.
func (s *GormStore) DeleteUnit(block, houseNo string) error {
	return s.db.Delete(&UnitModel{}, "block = ? AND house_no = ?", block, houseNo).Error
}

// HasUnit checks whether the (block, houseNo) pair exists.
func (s *GormStore) HasUnit(block, houseNo string) (bool, error) {
	var count int64
	if err := s.db.Model(&UnitModel{}).Where("block = ? AND house_no = ?", block, houseNo).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListUnits returns all units; caller applies the natural sort order.
func (s *GormStore) ListUnits() ([]domain.Unit, error) {
	var models []UnitModel
	if err := s.db.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Unit, 0, len(models))
	for _, m := range models {
		res = append(res, domain.Unit{Block: m.Block, HouseNo: m.HouseNo})
	}
	return res, nil
}

// GetCompanyInfo returns the company profile singleton.
func (s *GormStore) GetCompanyInfo() (domain.CompanyInfo, bool, error) {
	var model CompanyInfoModel
	if err := s.db.First(&model, "id = ?", companyInfoRowID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.CompanyInfo{}, false, nil
		}
		return domain.CompanyInfo{}, false, err
	}
	return companyFromModel(model), true, nil
}

// SaveCompanyInfo replaces the company profile wholesale.
func (s *GormStore) SaveCompanyInfo(info domain.CompanyInfo) error {
	model := companyToModel(info)
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "logo", "address", "welcome_message", "person_in_charge", "contact_number", "updated_at",
		}),
	}).Create(&model).Error
}

// SaveThread inserts or updates a chat thread with its full message log.
func (s *GormStore) SaveThread(t domain.ChatThread) error {
	model, err := threadToModel(t)
	if err != nil {
		return err
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"messages", "dismissed", "admin_replied", "updated_at"}),
	}).Create(&model).Error
}

// GetThread retrieves a chat thread.
func (s *GormStore) GetThread(id int64) (domain.ChatThread, bool, error) {
	var model ChatThreadModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.ChatThread{}, false, nil
		}
		return domain.ChatThread{}, false, err
	}
	return threadFromModel(model), true, nil
}

// ListThreads returns all threads ordered by creation id.
func (s *GormStore) ListThreads() ([]domain.ChatThread, error) {
	return s.listThreads()
}

// ListThreadsByUser returns threads started by the given user.
func (s *GormStore) ListThreadsByUser(userID int64) ([]domain.ChatThread, error) {
	return s.listThreads("user_id = ?", userID)
}

func (s *GormStore) listThreads(conds ...any) ([]domain.ChatThread, error) {
	var models []ChatThreadModel
	tx := s.db.Order("id ASC")
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ChatThread, 0, len(models))
	for _, m := range models {
		res = append(res, threadFromModel(m))
	}
	return res, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		UnitNo:       u.UnitNo,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		Role:         domain.Role(m.Role),
		UnitNo:       m.UnitNo,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func visitorToModel(v domain.Visitor) VisitorModel {
	return VisitorModel{
		ID:           v.ID,
		Name:         v.Name,
		Contact:      v.Contact,
		Purpose:      v.Purpose,
		Resident:     v.Resident,
		Block:        v.Block,
		HouseNo:      v.HouseNo,
		Vehicle:      v.Vehicle,
		CarBrand:     v.CarBrand,
		PhotoKey:     v.PhotoKey,
		Status:       string(v.Status),
		CheckInTime:  v.CheckInTime,
		CheckOutTime: v.CheckOutTime,
		RegisteredBy: v.RegisteredBy,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}

func visitorFromModel(m VisitorModel) domain.Visitor {
	return domain.Visitor{
		ID:           m.ID,
		Name:         m.Name,
		Contact:      m.Contact,
		Purpose:      m.Purpose,
		Resident:     m.Resident,
		Block:        m.Block,
		HouseNo:      m.HouseNo,
		Vehicle:      m.Vehicle,
		CarBrand:     m.CarBrand,
		PhotoKey:     m.PhotoKey,
		Status:       domain.VisitorStatus(m.Status),
		CheckInTime:  m.CheckInTime,
		CheckOutTime: m.CheckOutTime,
		RegisteredBy: m.RegisteredBy,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func companyToModel(info domain.CompanyInfo) CompanyInfoModel {
	return CompanyInfoModel{
		ID:             companyInfoRowID,
		Name:           info.Name,
		Logo:           info.Logo,
		Address:        info.Address,
		WelcomeMessage: info.WelcomeMessage,
		PersonInCharge: info.PersonInCharge,
		ContactNumber:  info.ContactNumber,
		UpdatedAt:      info.UpdatedAt,
	}
}

func companyFromModel(m CompanyInfoModel) domain.CompanyInfo {
	return domain.CompanyInfo{
		Name:           m.Name,
		Logo:           m.Logo,
		Address:        m.Address,
		WelcomeMessage: m.WelcomeMessage,
		PersonInCharge: m.PersonInCharge,
		ContactNumber:  m.ContactNumber,
		UpdatedAt:      m.UpdatedAt,
	}
}

func threadToModel(t domain.ChatThread) (ChatThreadModel, error) {
	raw, err := json.Marshal(t.Messages)
	if err != nil {
		return ChatThreadModel{}, fmt.Errorf("marshal thread messages: %w", err)
	}
	return ChatThreadModel{
		ID:           t.ID,
		UserID:       t.UserID,
		UserName:     t.UserName,
		Unit:         t.Unit,
		InitialQuery: t.InitialQuery,
		Messages:     raw,
		Dismissed:    t.Dismissed,
		AdminReplied: t.AdminReplied,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}, nil
}

func threadFromModel(m ChatThreadModel) domain.ChatThread {
	var messages []domain.ChatMessage
	if len(m.Messages) > 0 {
		_ = json.Unmarshal(m.Messages, &messages)
	}
	return domain.ChatThread{
		ID:           m.ID,
		UserID:       m.UserID,
		UserName:     m.UserName,
		Unit:         m.Unit,
		InitialQuery: m.InitialQuery,
		Messages:     messages,
		Dismissed:    m.Dismissed,
		AdminReplied: m.AdminReplied,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
