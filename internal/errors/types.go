package errors

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeSecurity   ErrorType = "security"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeRender     ErrorType = "render"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// WikiError is a structured error type with context.
type WikiError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	FilePath    string
	Line        int
	Recoverable bool
}

// Error implements the error interface.
func (e *WikiError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}
	if e.FilePath != "" {
		location := e.FilePath
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
		}
		parts = append(parts, location)
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}
	return result
}

// Unwrap returns the underlying cause error.
func (e *WikiError) Unwrap() error {
	return e.Cause
}

// Is matches errors of the same type and code.
func (e *WikiError) Is(target error) bool {
	var t *WikiError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}
	return false
}

// WithContext adds context information to the error.
func (e *WikiError) WithContext(key string, value interface{}) *WikiError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithLocation adds file location information.
func (e *WikiError) WithLocation(filePath string, line int) *WikiError {
	e.FilePath = filePath
	e.Line = line
	return e
}

// WithComponent adds component context.
func (e *WikiError) WithComponent(component string) *WikiError {
	e.Component = component
	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *WikiError {
	return &WikiError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewSecurityError creates a security error.
func NewSecurityError(code, message string) *WikiError {
	return &WikiError{
		Type:    ErrorTypeSecurity,
		Code:    code,
		Message: message,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *WikiError {
	return &WikiError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var we *WikiError
	if errors.As(err, &we) {
		return we.Recoverable
	}
	return false
}

// HasErrorCode reports whether any WikiError in err's chain has code.
func HasErrorCode(err error, code string) bool {
	for err != nil {
		var we *WikiError
		if !errors.As(err, &we) {
			return false
		}
		if we.Code == code {
			return true
		}
		err = we.Cause
	}
	return false
}

// ErrorHandler provides centralized error handling.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs recoverable errors as warnings and everything else as errors.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var we *WikiError
	if !errors.As(err, &we) {
		h.logger.Error(ctx, err, "unhandled error")
		return
	}

	errCtx := GetErrorContext(err)
	keys := make([]string, 0, len(errCtx))
	for k := range errCtx {
		if k != "recoverable" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	fields := make([]interface{}, 0, 2*len(keys))
	for _, k := range keys {
		fields = append(fields, k, errCtx[k])
	}

	if IsRecoverable(err) {
		h.logger.Warn(ctx, err, string(we.Type)+" error", fields...)
		return
	}
	h.logger.Error(ctx, err, string(we.Type)+" error", fields...)
}

// Common error codes.
const (
	ErrCodeInvalidPath      = "ERR_INVALID_PATH"
	ErrCodePathTraversal    = "ERR_PATH_TRAVERSAL"
	ErrCodeInvalidOrigin    = "ERR_INVALID_ORIGIN"
	ErrCodePageNotFound     = "ERR_PAGE_NOT_FOUND"
	ErrCodeInvalidPageName  = "ERR_INVALID_PAGE_NAME"
	ErrCodeRenderFailed     = "ERR_RENDER_FAILED"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeFileNotFound     = "ERR_FILE_NOT_FOUND"
	ErrCodeInternalError    = "ERR_INTERNAL"
	ErrCodeValidationFailed = "ERR_VALIDATION_FAILED"
)

// ValidationError interface for field-specific validation errors.
type ValidationError interface {
	error
	Field() string
	Value() interface{}
	Suggestions() []string
}

// FieldValidationError implements ValidationError for specific field errors.
type FieldValidationError struct {
	FieldName    string
	FieldValue   interface{}
	ErrorMessage string
	HelpText     []string
}

// Error implements the error interface.
func (fve *FieldValidationError) Error() string {
	return fmt.Sprintf("validation error in field '%s': %s", fve.FieldName, fve.ErrorMessage)
}

// Field returns the field name that failed validation.
func (fve *FieldValidationError) Field() string {
	return fve.FieldName
}

// Value returns the invalid value.
func (fve *FieldValidationError) Value() interface{} {
	return fve.FieldValue
}

// Suggestions returns helpful suggestions for fixing the error.
func (fve *FieldValidationError) Suggestions() []string {
	return fve.HelpText
}

// NewFieldValidationError creates a new field validation error.
func NewFieldValidationError(
	field string,
	value interface{},
	message string,
	suggestions ...string,
) *FieldValidationError {
	return &FieldValidationError{
		FieldName:    field,
		FieldValue:   value,
		ErrorMessage: message,
		HelpText:     suggestions,
	}
}

// ValidationErrorCollection represents a collection of validation errors.
type ValidationErrorCollection struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (vec *ValidationErrorCollection) Error() string {
	if len(vec.Errors) == 0 {
		return "no validation errors"
	}
	if len(vec.Errors) == 1 {
		return vec.Errors[0].Error()
	}
	return fmt.Sprintf("validation failed with %d errors", len(vec.Errors))
}

// AddField adds a field validation error to the collection.
func (vec *ValidationErrorCollection) AddField(
	field string,
	value interface{},
	message string,
	suggestions ...string,
) {
	vec.Errors = append(vec.Errors, NewFieldValidationError(field, value, message, suggestions...))
}

// HasErrors returns true if there are any validation errors.
func (vec *ValidationErrorCollection) HasErrors() bool {
	return len(vec.Errors) > 0
}

// ToWikiError converts the collection to a config WikiError, or nil when
// empty.
func (vec *ValidationErrorCollection) ToWikiError() *WikiError {
	if !vec.HasErrors() {
		return nil
	}

	messages := make([]string, 0, len(vec.Errors))
	context := make(map[string]interface{}, len(vec.Errors))
	for _, err := range vec.Errors {
		messages = append(messages, err.Error())
		context[err.Field()] = map[string]interface{}{
			"value":       err.Value(),
			"suggestions": err.Suggestions(),
		}
	}

	return &WikiError{
		Type:    ErrorTypeConfig,
		Code:    ErrCodeConfigInvalid,
		Message: strings.Join(messages, "; "),
		Context: context,
	}
}

// ErrPathTraversal creates a path traversal security error.
func ErrPathTraversal(path string) *WikiError {
	return NewSecurityError(ErrCodePathTraversal, "path traversal attempt: "+path)
}

// ErrInvalidOrigin creates an invalid origin security error.
func ErrInvalidOrigin(origin string) *WikiError {
	return NewSecurityError(ErrCodeInvalidOrigin, "invalid origin: "+origin)
}

// ErrPageNotFound creates a page lookup error.
func ErrPageNotFound(name string) *WikiError {
	return NewValidationError(ErrCodePageNotFound, "page not found: "+name)
}

// ErrInvalidPageName creates a page name validation error.
func ErrInvalidPageName(name, reason string) *WikiError {
	return NewValidationError(ErrCodeInvalidPageName, fmt.Sprintf("invalid page name %q: %s", name, reason))
}
