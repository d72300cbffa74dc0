package userrole

import "errors"

var (
	ErrRoleNotFound      = errors.New("role not found")
	ErrRoleNameExisted   = errors.New("role name already exists")
	ErrInvalidRoleName   = errors.New("invalid role name")
	ErrMembershipExisted = errors.New("membership already exists")
)
