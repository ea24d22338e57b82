package proto

import "fmt"

type ErrorCode string

const ErrCodeValidation ErrorCode = "ERR_VALIDATION"
const ErrCodeAuthentication ErrorCode = "ERR_AUTHENTICATION"
const ErrCodeNotFound ErrorCode = "ERR_NOT_FOUND"
const ErrCodeStorage ErrorCode = "ERR_STORAGE"
const ErrCodeProtocolViolation ErrorCode = "ERR_PROTOCOL_VIOLATION"

func (c ErrorCode) String() string {
	return string(c)
}

// CommandError is the error type command handlers return for every failure
// that is reported inline to the client. The dispatcher converts it into the
// error list of an error response; the connection stays open.
type CommandError struct {
	Code    ErrorCode
	Message string
	Fields  []ErrorDetail
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command failed: reason: %s: %s", e.Code, e.Message)
}

// Details returns the error list entries for the response envelope.
func (e *CommandError) Details() []ErrorDetail {
	if len(e.Fields) > 0 {
		return e.Fields
	}
	return []ErrorDetail{{Code: e.Code, Message: e.Message}}
}

func NewValidationError(message string) error {
	return &CommandError{Code: ErrCodeValidation, Message: message}
}

func NewFieldValidationError(fields ...ErrorDetail) error {
	return &CommandError{Code: ErrCodeValidation, Message: "validation failed", Fields: fields}
}

func NewAuthenticationError(message string) error {
	return &CommandError{Code: ErrCodeAuthentication, Message: message}
}

func NewNotFoundError(message string) error {
	return &CommandError{Code: ErrCodeNotFound, Message: message}
}

func NewStorageError(message string, fields ...ErrorDetail) error {
	return &CommandError{Code: ErrCodeStorage, Message: message, Fields: fields}
}

func NewProtocolError(message string) error {
	return &CommandError{Code: ErrCodeProtocolViolation, Message: message}
}

func IsCommandError(e error) bool {
	_, ok := e.(*CommandError)
	return ok
}

func IsValidationError(e error) bool {
	ce, ok := e.(*CommandError)
	return ok && ce.Code == ErrCodeValidation
}

func IsAuthenticationError(e error) bool {
	ce, ok := e.(*CommandError)
	return ok && ce.Code == ErrCodeAuthentication
}

func IsNotFoundError(e error) bool {
	ce, ok := e.(*CommandError)
	return ok && ce.Code == ErrCodeNotFound
}

func IsProtocolError(e error) bool {
	ce, ok := e.(*CommandError)
	return ok && ce.Code == ErrCodeProtocolViolation
}
