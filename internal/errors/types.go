package errors

import (
	"errors"
	"fmt"
)

var (
	ErrKitchenFileNotFound    = errors.New("kitchen file not found")
	ErrKitchenFileParseFailed = errors.New("kitchen file parsing failed")
	ErrConfigInvalid          = errors.New("configuration invalid")
	ErrDependencyMissing      = errors.New("dependency not installed")
	ErrDependencyOutdated     = errors.New("dependency outdated")
	ErrTemplateNotFound       = errors.New("Vagrantfile template not found")
	ErrCommandFailed          = errors.New("command failed")
	ErrActionFailed           = errors.New("action failed")
	ErrStateFailed            = errors.New("instance state operation failed")
	ErrFileSystemFailed       = errors.New("filesystem operation failed")
)

type VagrantKitError struct {
	Type        error
	Context     string
	Cause       string
	Suggestion  string
	OriginalErr error
}

func (e *VagrantKitError) Error() string {
	if e.OriginalErr == nil {
		return e.Context
	}
	return e.OriginalErr.Error()
}

func (e *VagrantKitError) Unwrap() error {
	return e.OriginalErr
}

// Is matches the error's category, so errors.Is(err, ErrDependencyMissing) works.
func (e *VagrantKitError) Is(target error) bool {
	return e.Type == target
}

// IsUserError reports whether the error is caused by the user's environment or
// configuration rather than by a failing action.
func (e *VagrantKitError) IsUserError() bool {
	switch e.Type {
	case ErrKitchenFileNotFound, ErrKitchenFileParseFailed, ErrConfigInvalid,
		ErrDependencyMissing, ErrDependencyOutdated:
		return true
	default:
		return false
	}
}

func NewVagrantKitError(errorType error, context, cause, suggestion string, originalErr error) *VagrantKitError {
	return &VagrantKitError{
		Type:        errorType,
		Context:     context,
		Cause:       cause,
		Suggestion:  suggestion,
		OriginalErr: originalErr,
	}
}

func NewKitchenFileError(context, cause, suggestion string, originalErr error) *VagrantKitError {
	return NewVagrantKitError(ErrKitchenFileNotFound, context, cause, suggestion, originalErr)
}

func NewParseError(context, cause, suggestion string, originalErr error) *VagrantKitError {
	return NewVagrantKitError(ErrKitchenFileParseFailed, context, cause, suggestion, originalErr)
}

func NewConfigError(context, cause, suggestion string, originalErr error) *VagrantKitError {
	return NewVagrantKitError(ErrConfigInvalid, context, cause, suggestion, originalErr)
}

func NewDependencyMissingError(context, suggestion string, originalErr error) *VagrantKitError {
	return NewVagrantKitError(ErrDependencyMissing, context, "", suggestion, originalErr)
}

func NewDependencyOutdatedError(context, suggestion string, originalErr error) *VagrantKitError {
	return NewVagrantKitError(ErrDependencyOutdated, context, "", suggestion, originalErr)
}

func NewTemplateError(context, cause, suggestion string, originalErr error) *VagrantKitError {
	return NewVagrantKitError(ErrTemplateNotFound, context, cause, suggestion, originalErr)
}

func NewCommandError(context, cause, suggestion string, originalErr error) *VagrantKitError {
	return NewVagrantKitError(ErrCommandFailed, context, cause, suggestion, originalErr)
}

func NewActionError(context, cause, suggestion string, originalErr error) *VagrantKitError {
	return NewVagrantKitError(ErrActionFailed, context, cause, suggestion, originalErr)
}

func NewStateError(context, cause, suggestion string, originalErr error) *VagrantKitError {
	return NewVagrantKitError(ErrStateFailed, context, cause, suggestion, originalErr)
}

func NewFileSystemError(context, cause, suggestion string, originalErr error) *VagrantKitError {
	return NewVagrantKitError(ErrFileSystemFailed, context, cause, suggestion, originalErr)
}

// ActionFailure records which lifecycle action failed on which instance.
type ActionFailure struct {
	Instance string
	Action   string
	Err      error
}

func NewActionFailure(instance, action string, err error) *ActionFailure {
	return &ActionFailure{Instance: instance, Action: action, Err: err}
}

func (e *ActionFailure) Error() string {
	return fmt.Sprintf("failed to complete #%s action on <%s>: %v", e.Action, e.Instance, e.Err)
}

func (e *ActionFailure) Unwrap() error {
	return e.Err
}
