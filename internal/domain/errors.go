package domain

import "errors"

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailTaken     = errors.New("email is already registered")
	ErrDoctorNotFound = errors.New("doctor information not found")
)
