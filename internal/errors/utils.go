package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Wrap wraps err with a type and code. An existing WikiError keeps its
// location and context and becomes the cause.
func Wrap(err error, errType ErrorType, code, message string) *WikiError {
	if err == nil {
		return nil
	}

	var we *WikiError
	if errors.As(err, &we) {
		return &WikiError{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       err,
			Context:     we.Context,
			Component:   we.Component,
			FilePath:    we.FilePath,
			Line:        we.Line,
			Recoverable: we.Recoverable,
		}
	}

	return &WikiError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType == ErrorTypeValidation || errType == ErrorTypeRender,
	}
}

// WrapIO wraps an error as an I/O error
func WrapIO(err error, code, message string) *WikiError {
	we := Wrap(err, ErrorTypeIO, code, message)
	if we != nil {
		we.Recoverable = false
	}
	return we
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error, code, message string) *WikiError {
	we := Wrap(err, ErrorTypeConfig, code, message)
	if we != nil {
		we.Recoverable = false
	}
	return we
}

// WrapRender wraps an error raised while rendering page.
func WrapRender(err error, page, message string) *WikiError {
	we := Wrap(err, ErrorTypeRender, ErrCodeRenderFailed, message)
	if we != nil {
		we.Recoverable = true
		we.WithContext("page", page)
	}
	return we
}

// WrapNetwork wraps an error as a network error
func WrapNetwork(err error, code, message string) *WikiError {
	return Wrap(err, ErrorTypeNetwork, code, message)
}

// FormatError formats an error for user display
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// FormatErrorWithSuggestions formats err and, for validation errors, the
// suggestions attached to it.
func FormatErrorWithSuggestions(err error) string {
	if err == nil {
		return ""
	}

	var vec *ValidationErrorCollection
	if errors.As(err, &vec) && len(vec.Errors) > 1 {
		var sb strings.Builder
		sb.WriteString(vec.Error())
		for _, ve := range vec.Errors {
			sb.WriteString("\n  - " + formatValidation(ve))
		}
		return sb.String()
	}

	var ve ValidationError
	if errors.As(err, &ve) {
		return formatValidation(ve)
	}
	return FormatError(err)
}

func formatValidation(ve ValidationError) string {
	result := ve.Error()
	suggestions := ve.Suggestions()
	if len(suggestions) > 0 {
		result += "\n\nSuggestions:"
		for _, suggestion := range suggestions {
			result += fmt.Sprintf("\n  • %s", suggestion)
		}
	}
	return result
}

// GetErrorContext extracts log fields from a WikiError.
func GetErrorContext(err error) map[string]interface{} {
	var we *WikiError
	if !errors.As(err, &we) {
		return map[string]interface{}{
			"message": err.Error(),
			"type":    "unknown",
		}
	}

	context := make(map[string]interface{}, len(we.Context)+5)
	for k, v := range we.Context {
		context[k] = v
	}
	if we.Component != "" {
		context["component"] = we.Component
	}
	if we.FilePath != "" {
		context["file"] = we.FilePath
		if we.Line > 0 {
			context["line"] = we.Line
		}
	}
	context["type"] = string(we.Type)
	context["code"] = we.Code
	context["recoverable"] = we.Recoverable
	return context
}

// CombineErrors combines multiple errors into a single error. Nil errors
// are skipped; a single error is returned unchanged.
func CombineErrors(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	}

	messages := make([]string, 0, len(nonNil))
	for _, err := range nonNil {
		messages = append(messages, err.Error())
	}

	return &WikiError{
		Type:    ErrorTypeInternal,
		Code:    "ERR_MULTIPLE_ERRORS",
		Message: fmt.Sprintf("multiple errors occurred: %s", strings.Join(messages, "; ")),
		Cause:   errors.Join(nonNil...),
		Context: map[string]interface{}{
			"error_count": len(nonNil),
		},
	}
}

// BuildServiceError wraps a failure of the static site build.
func BuildServiceError(code, message string, err error) *WikiError {
	return Wrap(err, ErrorTypeInternal, "BUILD_"+code, message)
}

// InitError wraps a failure while creating a new wiki project.
func InitError(code, message string, err error) *WikiError {
	return WrapIO(err, "INIT_"+code, message)
}

// ServeServiceError wraps a failure of the preview server.
func ServeServiceError(code, message string, err error) *WikiError {
	return Wrap(err, ErrorTypeNetwork, "SERVE_"+code, message)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
