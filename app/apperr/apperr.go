package apperr

import (
	"errors"
	"fmt"
)

// ValidationError mô tả input không hợp lệ, kèm field gây lỗi.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func Validation(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Entity, e.ID) }

func NotFound(entity, id string) error { return &NotFoundError{Entity: entity, ID: id} }

// SnapshotExpiredError: search_id đã từng tồn tại nhưng TTL hết hạn.
type SnapshotExpiredError struct {
	SearchID string
}

func (e *SnapshotExpiredError) Error() string {
	return fmt.Sprintf("selection snapshot %s expired", e.SearchID)
}

type CyclicContainerError struct {
	ContainerID uint
}

func (e *CyclicContainerError) Error() string {
	return fmt.Sprintf("container %d is reachable from itself", e.ContainerID)
}

type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func Conflict(msg string) error { return &ConflictError{Msg: msg} }

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsSnapshotExpired(err error) bool {
	var e *SnapshotExpiredError
	return errors.As(err, &e)
}

func IsCyclicContainer(err error) bool {
	var e *CyclicContainerError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}
