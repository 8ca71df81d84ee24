package entity

import "errors"

var (
	ErrInvalid       = errors.New("entity: invalid record")
	ErrInvalidStatus = errors.New("entity: status is not allowed for this kind")
	ErrUnknownAction = errors.New("entity: unknown action")
	ErrNotFound      = errors.New("entity: not found")
)
