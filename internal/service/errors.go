package service

import "fmt"

const (
	CodeValidation = "VALIDATION_ERROR"
	CodeConflict   = "CONFLICT"
	CodeNotFound   = "NOT_FOUND"
	CodeAuth       = "AUTH_ERROR"
	CodeForbidden  = "FORBIDDEN"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

// NewNotFound is also returned for records owned by someone else, so callers
// cannot tell the two apart.
func NewNotFound(resource string, id int64) *BusinessError {
	return NewBusinessError(CodeNotFound, fmt.Sprintf("%s not found", resource),
		ToDetail("resource", resource),
		ToDetail("id", id),
	)
}

func NewValidationError(field, reason string) *BusinessError {
	return NewBusinessError(CodeValidation, reason,
		ToDetail("field", field),
	)
}

func NewConflict(field, reason string) *BusinessError {
	return NewBusinessError(CodeConflict, reason,
		ToDetail("field", field),
	)
}

func NewAuthError(reason string) *BusinessError {
	return NewBusinessError(CodeAuth, reason)
}

func NewForbidden(reason string) *BusinessError {
	return NewBusinessError(CodeForbidden, reason)
}
