package service

import (
	"errors"
	"fmt"
)

// ErrorKind 错误分类
type ErrorKind string

const (
	KindMissingPlate            ErrorKind = "MissingPlate"
	KindUnrecognizedVehicleType ErrorKind = "UnrecognizedVehicleType"
	KindPlateAlreadyInside      ErrorKind = "PlateAlreadyInside"
	KindPlateNotInside          ErrorKind = "PlateNotInside"
	KindStoreUnavailable        ErrorKind = "StoreUnavailable"
	KindInvalidTimestamp        ErrorKind = "InvalidTimestamp"
	KindScheduleNotFound        ErrorKind = "ScheduleNotFound"
	KindInvalidSchedule         ErrorKind = "InvalidSchedule"
)

// Error 带分类的业务错误
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 同类错误视为相等
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// 哨兵错误，用于 errors.Is 判断
var (
	ErrMissingPlate            = &Error{Kind: KindMissingPlate, Message: "plate number recognition failed"}
	ErrUnrecognizedVehicleType = &Error{Kind: KindUnrecognizedVehicleType, Message: "vehicle type unrecognized"}
	ErrPlateAlreadyInside      = &Error{Kind: KindPlateAlreadyInside, Message: "plate already has an open session"}
	ErrPlateNotInside          = &Error{Kind: KindPlateNotInside, Message: "plate has no open session"}
	ErrStoreUnavailable        = &Error{Kind: KindStoreUnavailable, Message: "store unavailable"}
	ErrInvalidTimestamp        = &Error{Kind: KindInvalidTimestamp, Message: "invalid timestamp"}
	ErrScheduleNotFound        = &Error{Kind: KindScheduleNotFound, Message: "rate schedule not found"}
	ErrInvalidSchedule         = &Error{Kind: KindInvalidSchedule, Message: "invalid rate schedule"}
)

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func storeError(op string, err error) *Error {
	return newError(KindStoreUnavailable, op, err)
}

// KindOf 取出错误分类，非业务错误返回空
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
