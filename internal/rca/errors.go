package rca

import "errors"

// Repository errors.
var (
	ErrRCAExists   = errors.New("rca already exists for ticket")
	ErrRCANotFound = errors.New("rca not found")
)
