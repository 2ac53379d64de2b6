package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"gatebook/internal/util"
	"gatebook/pkg/domain"
	"gatebook/pkg/events"
)

// RegisterVisitorInput carries the fields captured at the front desk.
type RegisterVisitorInput struct {
	Name     string
	Contact  string
	Purpose  string
	Block    string
	HouseNo  string
	Vehicle  string
	CarBrand string
}

// RegisterVisitor creates a new visitor record in Pending status.
func (a *App) RegisterVisitor(actor domain.User, input RegisterVisitorInput) (domain.Visitor, error) {
	if err := a.authorize(actor, OpRegisterVisitor); err != nil {
		return domain.Visitor{}, err
	}
	name := strings.TrimSpace(input.Name)
	block := strings.TrimSpace(input.Block)
	houseNo := strings.TrimSpace(input.HouseNo)
	if name == "" || block == "" || houseNo == "" {
		return domain.Visitor{}, ErrVisitorFieldsRequired
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	visitor := domain.Visitor{
		ID:           util.NewRecordID(),
		Name:         name,
		Contact:      strings.TrimSpace(input.Contact),
		Purpose:      strings.TrimSpace(input.Purpose),
		Resident:     domain.Unit{Block: block, HouseNo: houseNo}.Label(),
		Block:        block,
		HouseNo:      houseNo,
		Vehicle:      strings.TrimSpace(input.Vehicle),
		CarBrand:     strings.TrimSpace(input.CarBrand),
		Status:       domain.StatusPending,
		RegisteredBy: actor.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveVisitor(visitor); err != nil {
		return domain.Visitor{}, fmt.Errorf("save visitor: %w", err)
	}
	a.publish(events.VisitorRegistered, visitor.ID, visitor.Resident, actor.ID)
	return visitor, nil
}

// ApproveVisitor moves a Pending visitor to Approved.
func (a *App) ApproveVisitor(actor domain.User, id int64) (domain.Visitor, error) {
	return a.transition(actor, id, OpApproveVisitor, domain.StatusPending, domain.StatusApproved, events.VisitorApproved)
}

// RejectVisitor moves a Pending visitor to Rejected, a terminal state.
// Re-registration requires a new record.
func (a *App) RejectVisitor(actor domain.User, id int64) (domain.Visitor, error) {
	return a.transition(actor, id, OpRejectVisitor, domain.StatusPending, domain.StatusRejected, events.VisitorRejected)
}

// CheckInVisitor moves an Approved visitor to Checked-in and stamps the
// check-in time.
func (a *App) CheckInVisitor(actor domain.User, id int64) (domain.Visitor, error) {
	return a.transition(actor, id, OpCheckInVisitor, domain.StatusApproved, domain.StatusCheckedIn, events.VisitorCheckedIn)
}

// CheckOutVisitor moves a Checked-in visitor to Checked-out, a terminal
// state, and stamps the check-out time.
func (a *App) CheckOutVisitor(actor domain.User, id int64) (domain.Visitor, error) {
	return a.transition(actor, id, OpCheckOutVisitor, domain.StatusCheckedIn, domain.StatusCheckedOut, events.VisitorCheckedOut)
}

func (a *App) transition(actor domain.User, id int64, op Operation, from, to domain.VisitorStatus, event string) (domain.Visitor, error) {
	if err := a.authorize(actor, op); err != nil {
		return domain.Visitor{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	visitor, ok, err := a.store.GetVisitor(id)
	if err != nil {
		return domain.Visitor{}, fmt.Errorf("fetch visitor: %w", err)
	}
	if !ok {
		return domain.Visitor{}, ErrVisitorNotFound
	}
	if visitor.Status.Terminal() || visitor.Status != from {
		return domain.Visitor{}, ErrInvalidTransition
	}
	now := a.now()
	visitor.Status = to
	switch to {
	case domain.StatusCheckedIn:
		visitor.CheckInTime = &now
	case domain.StatusCheckedOut:
		// Guard against a clock step backwards so the stamp pair stays
		// ordered on the record.
		stamp := now
		if visitor.CheckInTime != nil && stamp.Before(*visitor.CheckInTime) {
			stamp = *visitor.CheckInTime
		}
		visitor.CheckOutTime = &stamp
	}
	visitor.UpdatedAt = now
	if err := a.store.SaveVisitor(visitor); err != nil {
		return domain.Visitor{}, fmt.Errorf("save visitor: %w", err)
	}
	a.publish(event, visitor.ID, visitor.Resident, actor.ID)
	return visitor, nil
}

// EditVisitorInput carries the mutable non-status fields. Nil pointers
// leave the field unchanged.
type EditVisitorInput struct {
	Name     *string
	Contact  *string
	Purpose  *string
	Block    *string
	HouseNo  *string
	Vehicle  *string
	CarBrand *string
}

// EditVisitor mutates non-status fields. It is permitted in any status and
// never alters status or the check-in/check-out timestamps.
func (a *App) EditVisitor(actor domain.User, id int64, input EditVisitorInput) (domain.Visitor, error) {
	if err := a.authorize(actor, OpEditVisitor); err != nil {
		return domain.Visitor{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	visitor, ok, err := a.store.GetVisitor(id)
	if err != nil {
		return domain.Visitor{}, fmt.Errorf("fetch visitor: %w", err)
	}
	if !ok {
		return domain.Visitor{}, ErrVisitorNotFound
	}
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	apply(&visitor.Name, input.Name)
	apply(&visitor.Contact, input.Contact)
	apply(&visitor.Purpose, input.Purpose)
	apply(&visitor.Block, input.Block)
	apply(&visitor.HouseNo, input.HouseNo)
	apply(&visitor.Vehicle, input.Vehicle)
	apply(&visitor.CarBrand, input.CarBrand)
	if visitor.Name == "" || visitor.Block == "" || visitor.HouseNo == "" {
		return domain.Visitor{}, ErrVisitorFieldsRequired
	}
	visitor.Resident = domain.Unit{Block: visitor.Block, HouseNo: visitor.HouseNo}.Label()
	visitor.UpdatedAt = a.now()
	if err := a.store.SaveVisitor(visitor); err != nil {
		return domain.Visitor{}, fmt.Errorf("save visitor: %w", err)
	}
	return visitor, nil
}

// AttachVisitorPhoto replaces the visitor's photo blob. The photo is the
// only field an edit may touch besides the form fields; status and
// timestamps are untouched.
func (a *App) AttachVisitorPhoto(ctx context.Context, actor domain.User, id int64, r io.Reader, size int64, contentType string) (domain.Visitor, error) {
	if err := a.authorize(actor, OpEditVisitor); err != nil {
		return domain.Visitor{}, err
	}
	if a.photos == nil {
		return domain.Visitor{}, fmt.Errorf("photo storage not configured")
	}

	a.mu.Lock()
	visitor, ok, err := a.store.GetVisitor(id)
	a.mu.Unlock()
	if err != nil {
		return domain.Visitor{}, fmt.Errorf("fetch visitor: %w", err)
	}
	if !ok {
		return domain.Visitor{}, ErrVisitorNotFound
	}

	key := "visitor-photos/" + uuid.NewString()
	if err := a.photos.Put(ctx, key, r, size, contentType); err != nil {
		return domain.Visitor{}, fmt.Errorf("store photo: %w", err)
	}
	oldKey := visitor.PhotoKey

	a.mu.Lock()
	defer a.mu.Unlock()
	visitor, ok, err = a.store.GetVisitor(id)
	if err != nil || !ok {
		return domain.Visitor{}, ErrVisitorNotFound
	}
	visitor.PhotoKey = key
	visitor.UpdatedAt = a.now()
	if err := a.store.SaveVisitor(visitor); err != nil {
		return domain.Visitor{}, fmt.Errorf("save visitor: %w", err)
	}
	if oldKey != "" {
		if err := a.photos.Delete(ctx, oldKey); err != nil {
			slog.Warn("delete replaced photo failed", "key", oldKey, "err", err)
		}
	}
	return visitor, nil
}

// VisitorPhotoURL returns a short-lived download URL for the photo.
func (a *App) VisitorPhotoURL(ctx context.Context, actor domain.User, id int64) (string, error) {
	visitor, err := a.GetVisitor(actor, id)
	if err != nil {
		return "", err
	}
	if visitor.PhotoKey == "" || a.photos == nil {
		return "", ErrVisitorNotFound
	}
	return a.photos.PresignGet(ctx, visitor.PhotoKey, 15*time.Minute)
}

// GetVisitor returns one visitor. Residents may only read visitors
// registered for their own unit.
func (a *App) GetVisitor(actor domain.User, id int64) (domain.Visitor, error) {
	visitor, ok, err := a.store.GetVisitor(id)
	if err != nil {
		return domain.Visitor{}, fmt.Errorf("fetch visitor: %w", err)
	}
	if !ok {
		return domain.Visitor{}, ErrVisitorNotFound
	}
	if actor.Role == domain.RoleResident && visitor.Resident != actor.UnitNo {
		return domain.Visitor{}, ErrVisitorNotFound
	}
	return visitor, nil
}

// ListVisitors returns the visitors the actor may see: residents see only
// their own unit, staff see everything.
func (a *App) ListVisitors(actor domain.User) ([]domain.Visitor, error) {
	if actor.Role == domain.RoleResident {
		return a.store.ListVisitorsByUnit(actor.UnitNo)
	}
	return a.store.ListVisitors()
}
