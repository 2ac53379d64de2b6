package app

import "gatebook/pkg/domain"

// Operation names every state-changing capability. Role checks happen in
// one place, here, instead of being re-implemented per handler.
type Operation string

const (
	OpRegisterVisitor Operation = "visitor.register"
	OpApproveVisitor  Operation = "visitor.approve"
	OpRejectVisitor   Operation = "visitor.reject"
	OpCheckInVisitor  Operation = "visitor.check_in"
	OpCheckOutVisitor Operation = "visitor.check_out"
	OpEditVisitor     Operation = "visitor.edit"
	OpManageUsers     Operation = "user.manage"
	OpManageUnits     Operation = "unit.manage"
	OpUpdateCompany   Operation = "company.update"
	OpReplyThread     Operation = "chat.staff_reply"
	OpDismissThread   Operation = "chat.dismiss"
)

var rolePolicy = map[Operation]map[domain.Role]bool{
	OpRegisterVisitor: {domain.RoleAdmin: true, domain.RoleOfficer: true, domain.RoleSecurity: true},
	OpApproveVisitor:  {domain.RoleAdmin: true, domain.RoleOfficer: true},
	OpRejectVisitor:   {domain.RoleAdmin: true, domain.RoleOfficer: true},
	OpCheckInVisitor:  {domain.RoleAdmin: true, domain.RoleSecurity: true},
	OpCheckOutVisitor: {domain.RoleAdmin: true, domain.RoleSecurity: true},
	OpEditVisitor:     {domain.RoleAdmin: true, domain.RoleOfficer: true},
	OpManageUsers:     {domain.RoleAdmin: true},
	OpManageUnits:     {domain.RoleAdmin: true},
	OpUpdateCompany:   {domain.RoleAdmin: true},
	OpReplyThread:     {domain.RoleAdmin: true, domain.RoleOfficer: true},
	OpDismissThread:   {domain.RoleAdmin: true, domain.RoleOfficer: true, domain.RoleSecurity: true},
}

// Allowed reports whether the role may perform the operation.
func Allowed(role domain.Role, op Operation) bool {
	return rolePolicy[op][role]
}

// authorize is called before every state-changing operation.
func (a *App) authorize(actor domain.User, op Operation) error {
	if !Allowed(actor.Role, op) {
		return ErrPermissionDenied
	}
	return nil
}
