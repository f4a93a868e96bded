package employee

import "errors"

var (
	ErrInvalidID          = errors.New("employee: invalid id")
	ErrInvalidFirstName   = errors.New("employee: invalid first name")
	ErrInvalidLastName    = errors.New("employee: invalid last name")
	ErrInvalidEmail       = errors.New("employee: invalid email")
	ErrInvalidHireDate    = errors.New("employee: invalid hire date")
	ErrEmployeeNotFound   = errors.New("employee: not found")
	ErrEmailAlreadyExists = errors.New("employee: email already exists")
	ErrVersionConflict    = errors.New("employee: version conflict")
)
