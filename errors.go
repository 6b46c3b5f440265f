package ospfs

import (
	"errors"
	"fmt"
)

// DriverError is the error taxonomy used throughout the engine (spec.md §7):
// capacity, corruption, name conflict, missing entry, oversized name/target,
// user-memory fault, and policy violation. It mirrors the disko driver
// library's errno-style DriverError/DiskoError split: a small set of sentinel
// codes that can be wrapped with context without losing their identity.
type DriverError interface {
	error
	// Code returns the sentinel this error was built from, so callers can
	// compare with errors.Is-style equality against the package-level Err*
	// constants.
	Code() OspfsError
	WithMessage(message string) DriverError
	Wrap(err error) DriverError
}

// OspfsError is a sentinel error code. Comparing a DriverError's Code() against
// these constants is the supported way to branch on error kind.
type OspfsError string

func (e OspfsError) Error() string { return string(e) }

const (
	// ErrNoSpaceOnDevice is NO_SPACE: the bitmap has no free bit where one was
	// needed.
	ErrNoSpaceOnDevice = OspfsError("no space left on device")
	// ErrIOFailed is IO: an invariant was violated or the on-image structure
	// is otherwise unusable (bad slot, exceeded MAXFILEBLKS, missing
	// scaffolding).
	ErrIOFailed = OspfsError("input/output error")
	// ErrExists is EEXIST: a directory entry with the requested name is
	// already present.
	ErrExists = OspfsError("file exists")
	// ErrNotFound is ENOENT: no directory entry with the requested name.
	ErrNotFound = OspfsError("no such file or directory")
	// ErrNameTooLong is ENAMETOOLONG: a name or symlink target exceeds its
	// maximum length.
	ErrNameTooLong = OspfsError("name too long")
	// ErrFault is EFAULT: a host copy_in/copy_out callback failed.
	ErrFault = OspfsError("bad address")
	// ErrNotPermitted is EPERM: a policy violation, e.g. resizing a directory
	// directly instead of through the directory layer.
	ErrNotPermitted = OspfsError("operation not permitted")
	// ErrNoMemory is ENOMEM: the host could not allocate an in-memory object
	// to represent an open file.
	ErrNoMemory = OspfsError("cannot allocate memory")
	// ErrNotADirectory is ENOTDIR: a path component that should be a
	// directory is not one.
	ErrNotADirectory = OspfsError("not a directory")
	// ErrIsADirectory is EISDIR: an operation that requires a non-directory
	// was given one.
	ErrIsADirectory = OspfsError("is a directory")
	// ErrLinkLoop is ELOOP: symlink resolution exceeded its hop limit.
	ErrLinkLoop = OspfsError("too many levels of symbolic links")
	// ErrInvalidArgument is EINVAL: a caller supplied a structurally invalid
	// argument, e.g. an out-of-range block number.
	ErrInvalidArgument = OspfsError("invalid argument")
)

type driverError struct {
	code    OspfsError
	message string
	wrapped error
}

func (e *driverError) Error() string {
	if e.message == "" {
		return e.code.Error()
	}
	return e.message
}

func (e *driverError) Code() OspfsError { return e.code }

func (e *driverError) WithMessage(message string) DriverError {
	return &driverError{
		code:    e.code,
		message: fmt.Sprintf("%s: %s", e.code.Error(), message),
		wrapped: e,
	}
}

func (e *driverError) Wrap(err error) DriverError {
	return &driverError{
		code:    e.code,
		message: fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		wrapped: err,
	}
}

func (e *driverError) Unwrap() error { return e.wrapped }

// NewDriverError builds a DriverError from one of the Err* sentinels above,
// using the sentinel's own text as the message.
func NewDriverError(code OspfsError) DriverError {
	return &driverError{code: code}
}

// NewDriverErrorWithMessage builds a DriverError with custom context attached
// to one of the Err* sentinels.
func NewDriverErrorWithMessage(code OspfsError, message string) DriverError {
	return NewDriverError(code).WithMessage(message)
}

// CodeOf extracts the OspfsError sentinel from an error returned by this
// package, or "" if err is nil or has no DriverError in its wrap chain.
func CodeOf(err error) OspfsError {
	if err == nil {
		return ""
	}
	var de DriverError
	if errors.As(err, &de) {
		return de.Code()
	}
	return ""
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool { return CodeOf(err) == ErrNotFound }

// IsExists reports whether err is (or wraps) ErrExists.
func IsExists(err error) bool { return CodeOf(err) == ErrExists }

// IsNoSpace reports whether err is (or wraps) ErrNoSpaceOnDevice.
func IsNoSpace(err error) bool { return CodeOf(err) == ErrNoSpaceOnDevice }
