package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors that can be used across packages
var (
	ErrNotFound   = errors.New("resource not found")
	ErrUnsafePath = errors.New("unsafe path")
)

// ValidationError represents an error that occurs during validation
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// FileError represents an error that occurs during file operations
type FileError struct {
	Path    string
	Op      string
	Wrapped error
}

func (e *FileError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s operation failed on %s: %v", e.Op, e.Path, e.Wrapped)
	}
	return fmt.Sprintf("%s operation failed on %s", e.Op, e.Path)
}

func (e *FileError) Unwrap() error {
	return e.Wrapped
}

// NewFileError creates a new FileError
func NewFileError(path, op string, wrapped error) error {
	return &FileError{
		Path:    path,
		Op:      op,
		Wrapped: wrapped,
	}
}

// TransportError is returned when a request never produced an HTTP response.
type TransportError struct {
	URL     string
	Wrapped error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Wrapped)
}

func (e *TransportError) Unwrap() error {
	return e.Wrapped
}

// RemoteAPIError carries everything needed to diagnose a non-success response
// without reproducing it.
type RemoteAPIError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("API request %s failed, code: %d, message: %s", e.URL, e.StatusCode, e.Body)
}

// NewRemoteAPIError creates a new RemoteAPIError
func NewRemoteAPIError(url string, statusCode int, body string) error {
	return &RemoteAPIError{
		URL:        url,
		StatusCode: statusCode,
		Body:       body,
	}
}

// DecodeError represents a listing response that could not be parsed
type DecodeError struct {
	URL     string
	Body    string
	Wrapped error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response of %s: %v, body: %s", e.URL, e.Wrapped, e.Body)
}

func (e *DecodeError) Unwrap() error {
	return e.Wrapped
}

// PatternError is returned for filter rules whose pattern does not compile
type PatternError struct {
	Pattern string
	Wrapped error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern `%s`: %v", e.Pattern, e.Wrapped)
}

func (e *PatternError) Unwrap() error {
	return e.Wrapped
}

// UnknownPackageError is returned when a single rule names an id that is not
// in the catalog. NameHints holds the ids of packages whose display name equals ID.
type UnknownPackageError struct {
	ID        string
	NameHints []string
}

func (e *UnknownPackageError) Error() string {
	msg := fmt.Sprintf("package ID not found: %s", e.ID)
	if len(e.NameHints) > 0 {
		msg += fmt.Sprintf(" (did you enter the package name instead of the package ID? '%s')",
			strings.Join(e.NameHints, ","))
	}
	return msg
}

func (e *UnknownPackageError) Is(target error) bool {
	return target == ErrNotFound
}

// CredentialError is returned when no secret could be resolved for a user
type CredentialError struct {
	Subject string
	Message string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("could not use any password/secret for %s: %s", e.Subject, e.Message)
}

// NewCredentialError creates a new CredentialError
func NewCredentialError(subject, message string) error {
	return &CredentialError{
		Subject: subject,
		Message: message,
	}
}

// ArchiveError represents a malformed archive or an entry that cannot be
// extracted safely
type ArchiveError struct {
	Archive string
	Entry   string
	Wrapped error
}

func (e *ArchiveError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("archive %s: entry %q: %v", e.Archive, e.Entry, e.Wrapped)
	}
	return fmt.Sprintf("archive %s: %v", e.Archive, e.Wrapped)
}

func (e *ArchiveError) Unwrap() error {
	return e.Wrapped
}

// NewArchiveError creates a new ArchiveError
func NewArchiveError(archive, entry string, wrapped error) error {
	return &ArchiveError{
		Archive: archive,
		Entry:   entry,
		Wrapped: wrapped,
	}
}

// ArtifactDownloadError represents a download failure that was not ignored
type ArtifactDownloadError struct {
	Package  string
	Artifact string
	Wrapped  error
}

func (e *ArtifactDownloadError) Error() string {
	return fmt.Sprintf("artifact download failed for %s in package %s: %v", e.Artifact, e.Package, e.Wrapped)
}

func (e *ArtifactDownloadError) Unwrap() error {
	return e.Wrapped
}

// NewArtifactDownloadError creates a new ArtifactDownloadError
func NewArtifactDownloadError(pkg, artifact string, wrapped error) error {
	return &ArtifactDownloadError{
		Package:  pkg,
		Artifact: artifact,
		Wrapped:  wrapped,
	}
}

// Is reports whether target matches err.
// It enables errors.Is() to work with our custom error types.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// It enables errors.As() to work with our custom error types.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
