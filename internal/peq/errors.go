package peq

import (
	"errors"
	"fmt"
)

// Error codes
const (
	ErrCodeUnsupportedDevice  = "UNSUPPORTED_DEVICE"
	ErrCodeTimeout            = "TIMEOUT"
	ErrCodeDeviceDisconnected = "DEVICE_DISCONNECTED"
	ErrCodeProtocolDecode     = "PROTOCOL_DECODE"
	ErrCodeNotConnected       = "NOT_CONNECTED"
	ErrCodeSessionActive      = "SESSION_ACTIVE"
	ErrCodeInvalidParams      = "INVALID_PARAMS"
	ErrCodeExperimental       = "EXPERIMENTAL_NOT_CONFIRMED"
)

// DeviceError represents a device-layer failure.
type DeviceError struct {
	Code    string
	Message string
	Cause   error
}

func (e *DeviceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DeviceError) Unwrap() error {
	return e.Cause
}

// Is matches any DeviceError carrying the same code, so the sentinels below
// can be used with errors.Is regardless of message or cause.
func (e *DeviceError) Is(target error) bool {
	var t *DeviceError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// NewDeviceError creates a new device error
func NewDeviceError(code, message string, cause error) *DeviceError {
	return &DeviceError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Sentinels for errors.Is checks.
var (
	ErrUnsupportedDevice  = &DeviceError{Code: ErrCodeUnsupportedDevice, Message: "device is not supported"}
	ErrTimeout            = &DeviceError{Code: ErrCodeTimeout, Message: "device did not respond in time"}
	ErrDeviceDisconnected = &DeviceError{Code: ErrCodeDeviceDisconnected, Message: "device disconnected"}
	ErrProtocolDecode     = &DeviceError{Code: ErrCodeProtocolDecode, Message: "malformed device response"}
	ErrNotConnected       = &DeviceError{Code: ErrCodeNotConnected, Message: "no device connected"}
	ErrSessionActive      = &DeviceError{Code: ErrCodeSessionActive, Message: "a device session is already open"}
	ErrInvalidParams      = &DeviceError{Code: ErrCodeInvalidParams, Message: "invalid parameters"}
	ErrExperimental       = &DeviceError{Code: ErrCodeExperimental, Message: "experimental device must be confirmed"}
)

// Timeout wraps cause as a TIMEOUT error.
func Timeout(op string, cause error) error {
	return NewDeviceError(ErrCodeTimeout, op+" timed out", cause)
}

// Disconnected wraps cause as a DEVICE_DISCONNECTED error.
func Disconnected(op string, cause error) error {
	return NewDeviceError(ErrCodeDeviceDisconnected, op+": device disconnected", cause)
}

// Warning codes
const (
	WarnFiltersTruncated  = "FILTERS_TRUNCATED"
	WarnValuesClamped     = "VALUES_CLAMPED"
	WarnShelfUnsupported  = "SHELF_UNSUPPORTED"
	WarnPregainIgnored    = "PREGAIN_UNSUPPORTED"
	WarnShelfAndPregain   = "SHELF_AND_PREGAIN_UNSUPPORTED"
	WarnIncompletePull    = "INCOMPLETE_PULL"
	WarnExperimental      = "EXPERIMENTAL_DEVICE"
	WarnNoFiltersOnDevice = "NO_FILTERS"
	WarnUnknownDevice     = "UNKNOWN_DEVICE"
)

// Warning is a non-fatal validation or capability notice that must be shown
// to the user.
type Warning struct {
	Code    string `json:"code" example:"FILTERS_TRUNCATED" doc:"Warning code"`
	Message string `json:"message" doc:"Human readable warning"`
}

func (w Warning) String() string {
	return w.Code + ": " + w.Message
}
