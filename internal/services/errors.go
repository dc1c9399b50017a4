package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound marks a missing tour, project, or asset file.
	ErrNotFound = errors.New("not found")
	// ErrMalformedInput marks schema or deserialization failures.
	ErrMalformedInput = errors.New("malformed input")
	// ErrIO marks read/write faults; the underlying cause is always wrapped.
	ErrIO = errors.New("i/o failure")
	// ErrArchiveProtocol marks misuse of the bundle writer, such as a
	// duplicate entry name or a write after the archive was sealed.
	ErrArchiveProtocol = errors.New("archive protocol violation")
	ErrValidation      = errors.New("validation error")
	ErrConfiguration   = errors.New("configuration error")
	// ErrBusy marks a resource held by another process, such as a locked
	// project directory.
	ErrBusy = errors.New("resource busy")
	// ErrExternalService marks a failure reported by a collaborating
	// service, such as the routing engine.
	ErrExternalService = errors.New("external service error")
)

// Kind is the coarse classification reported at the CLI boundary.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindMalformedInput  Kind = "malformed_input"
	KindIO              Kind = "io"
	KindArchiveProtocol Kind = "archive_protocol"
	KindValidation      Kind = "validation"
	KindConfiguration   Kind = "configuration"
	KindBusy            Kind = "busy"
	KindExternalService Kind = "external_service"
	KindUnclassified    Kind = "unclassified"
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// KindOf reports which marker err carries. Markers are checked from most to
// least specific so a not-found error that also wraps an I/O cause is
// reported as not found.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrArchiveProtocol):
		return KindArchiveProtocol
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrMalformedInput):
		return KindMalformedInput
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrBusy):
		return KindBusy
	case errors.Is(err, ErrExternalService):
		return KindExternalService
	case errors.Is(err, ErrIO):
		return KindIO
	default:
		return KindUnclassified
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
