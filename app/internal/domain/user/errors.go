package user

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrDuplicateUserName   = errors.New("user name already taken")
	ErrInvalidUserName     = errors.New("invalid user name")
	ErrPasswordPolicy      = errors.New("password does not satisfy policy")
	ErrInvalidCredential   = errors.New("invalid credential")
	ErrUserAlreadyInRole   = errors.New("user already in role")
	ErrMissingPasswordHash = errors.New("user has no password")
)
