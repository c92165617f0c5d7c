package repository

import "errors"

var (
	ErrNotFound      = errors.New("record not found")
	ErrEmailExists   = errors.New("email already exists")
	ErrTokenMismatch = errors.New("stored refresh token mismatch")
)
