// Package errors provides structured error types for asdesigner.
package errors

import (
	"fmt"
)

// ErrorCode identifies a specific error condition. Link-resolver codes are
// stable and must not be renamed once published (spec.md §7).
type ErrorCode string

const (
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeNodeConfig    ErrorCode = "NODE_CONFIG_ERROR"
	ErrCodeModuleConfig  ErrorCode = "MODULE_CONFIG_ERROR"
	ErrCodeParameterConf ErrorCode = "PARAMETER_CONFIG_ERROR"
	ErrCodeFormatVersion ErrorCode = "FORMAT_VERSION_ERROR"
	ErrCodeDeployment    ErrorCode = "DEPLOYMENT_ERROR"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeParse         ErrorCode = "PARSE_ERROR"
	ErrCodeExpression    ErrorCode = "EXPRESSION_ERROR"

	// Link resolver codes (spec.md §7) — stable, never renamed.
	ErrCodePortNotFound        ErrorCode = "E_PORT_NOT_FOUND"
	ErrCodeExternalDecl        ErrorCode = "E_EXT_DECL"
	ErrCodeTypeMismatch        ErrorCode = "E_TYPE_MISMATCH"
	ErrCodeWildcardEmpty       ErrorCode = "E_WILDCARD_EMPTY"
	ErrCodeDuplicateConnection ErrorCode = "E_DUPLICATE_CONNECTION"
	ErrCodeConnTargetMissing   ErrorCode = "E_CONN_TARGET_MISSING"
	ErrCodeCircularModule      ErrorCode = "E_CIRCULAR_MODULE"
	ErrCodeNamespaceConflict   ErrorCode = "E_NAMESPACE_CONFLICT"
)

// Location is a SourceLocation as described in spec.md §7: a file path, a
// JSON-pointer-like yaml_path into that file, and the 1-based line/column
// recovered from the source map (sourcemap.Map). Line is 0 when the value
// could not be traced through the source map.
type Location struct {
	File     string
	YAMLPath string
	Line     int
	Column   int
}

func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Line == 0 {
		return fmt.Sprintf("source=%s  yaml_path=%s", l.File, l.YAMLPath)
	}
	return fmt.Sprintf("source=%s:%d:%d  yaml_path=%s", l.File, l.Line, l.Column, l.YAMLPath)
}

// Error is the base structured error type for asdesigner. Every
// ValidationError family member in spec.md §7 is a *Error with the
// matching Code.
type Error struct {
	Code     ErrorCode
	Message  string
	Cause    error
	Details  map[string]interface{}
	Location *Location
}

func (e *Error) Error() string {
	loc := ""
	if e.Location != nil {
		loc = "  " + e.Location.String()
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v%s", e.Code, e.Message, e.Cause, loc)
	}
	return fmt.Sprintf("[%s] %s%s", e.Code, e.Message, loc)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, Details: make(map[string]interface{})}
}

// Wrap creates a new error wrapping an existing cause.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause, Details: make(map[string]interface{})}
}

// WithDetails merges details into the error.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail adds a single detail.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	e.Details[key] = value
	return e
}

// At attaches a source location and returns the receiver for chaining.
func (e *Error) At(loc *Location) *Error {
	e.Location = loc
	return e
}

// ValidationError creates a generic design-time validation error.
func ValidationError(message string, details map[string]interface{}) *Error {
	if details == nil {
		details = map[string]interface{}{}
	}
	return &Error{Code: ErrCodeValidation, Message: message, Details: details}
}

// NodeConfigurationError creates a Node-specific lookup/validation failure.
func NodeConfigurationError(name, message string) *Error {
	return &Error{
		Code:    ErrCodeNodeConfig,
		Message: message,
		Details: map[string]interface{}{"node": name},
	}
}

// ModuleConfigurationError creates a Module-specific lookup/validation failure.
func ModuleConfigurationError(name, message string) *Error {
	return &Error{
		Code:    ErrCodeModuleConfig,
		Message: message,
		Details: map[string]interface{}{"module": name},
	}
}

// ParameterConfigurationError creates a ParameterSet-specific failure.
func ParameterConfigurationError(node, message string) *Error {
	return &Error{
		Code:    ErrCodeParameterConf,
		Message: message,
		Details: map[string]interface{}{"node": node},
	}
}

// FormatVersionError creates a hard error for a major schema-version mismatch.
func FormatVersionError(filePath, declared, supportedMajor string) *Error {
	return &Error{
		Code:    ErrCodeFormatVersion,
		Message: fmt.Sprintf("%s declares format version %s which is incompatible with supported major %s", filePath, declared, supportedMajor),
		Details: map[string]interface{}{
			"file":            filePath,
			"declared":        declared,
			"supported_major": supportedMajor,
		},
	}
}

// DeploymentError wraps a mode-build failure with driver-level context, per
// spec.md §7's DeploymentError (mode name, system path, guidance hint, and
// the minor-version-mismatch warning list recorded by the registry).
func DeploymentError(systemPath, mode string, cause error, minorWarnings []string) *Error {
	e := &Error{
		Code:    ErrCodeDeployment,
		Message: fmt.Sprintf("failed to build mode %q of system %s", mode, systemPath),
		Cause:   cause,
		Details: map[string]interface{}{
			"system": systemPath,
			"mode":   mode,
			"hint":   "check mode_configs[" + mode + "].override/remove syntax",
		},
	}
	if len(minorWarnings) > 0 {
		e.Details["minor_version_warnings"] = minorWarnings
	}
	return e
}

// NotFoundError creates a not-found error for the entity registry.
func NotFoundError(resourceType, name string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s %q not found", resourceType, name),
		Details: map[string]interface{}{"resource_type": resourceType, "name": name},
	}
}

// ParseError creates a YAML/schema parse error.
func ParseError(filePath string, err error) *Error {
	return &Error{
		Code:    ErrCodeParse,
		Message: fmt.Sprintf("failed to parse %s", filePath),
		Cause:   err,
		Details: map[string]interface{}{"file": filePath},
	}
}

// ExpressionError creates a substitution-evaluation error.
func ExpressionError(expression string, err error) *Error {
	return &Error{
		Code:    ErrCodeExpression,
		Message: fmt.Sprintf("failed to evaluate expression: %s", expression),
		Cause:   err,
		Details: map[string]interface{}{"expression": expression},
	}
}

// Is reports whether err is an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	if e, ok := err.(*Error); ok {
		return e.Code == code
	}
	return false
}
