package domain

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrContactNotFound   = errors.New("contact not found")
	ErrAddressNotFound   = errors.New("address not found")
	ErrTagNotFound       = errors.New("tag not found")
	ErrDuplicateTag      = errors.New("tag already exists for user")
	ErrDuplicateEmail    = errors.New("email address already in use")
	ErrDuplicateTenancy  = errors.New("contact already linked to address")
	ErrInvalidCredential = errors.New("invalid username or password")
)
