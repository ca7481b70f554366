package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeInvalidState indicates a query made while discovery is idle
	ErrTypeInvalidState ErrorType = iota
	// ErrTypeUnknownType indicates a discoverable type name that is not loaded
	ErrTypeUnknownType
	// ErrTypePluginLoad indicates a discoverable failed to construct
	ErrTypePluginLoad
	// ErrTypeScanTransport indicates the foreground round trip failed
	ErrTypeScanTransport
	// ErrTypeBackgroundStart indicates the background scanner could not start
	ErrTypeBackgroundStart
)

// TransportSubtype provides more specific classification of scan transport failures
type TransportSubtype int

const (
	TransportGeneral TransportSubtype = iota
	TransportTimeout
	TransportConnectionRefused
	TransportHostUnreachable
	TransportNetworkUnreachable
	TransportCancelled
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeInvalidState:
		return "Invalid State"
	case ErrTypeUnknownType:
		return "Unknown Type"
	case ErrTypePluginLoad:
		return "Plugin Load Failure"
	case ErrTypeScanTransport:
		return "Scan Transport Failure"
	case ErrTypeBackgroundStart:
		return "Background Start Failure"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is returned by every NetworkDiscovery operation
type Error struct {
	Type      ErrorType        // Category of error
	Message   string           // Human-readable error message
	Name      string           // Discoverable type name (if applicable)
	Err       error            // Underlying error (if any)
	Subtype   TransportSubtype // Transport classification (ErrTypeScanTransport only)
	Retryable bool             // Whether retrying the operation may succeed
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Type, so callers can write
// errors.Is(err, discovery.ErrUnknownType).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// Sentinels for errors.Is
var (
	ErrInvalidState    = &Error{Type: ErrTypeInvalidState, Message: "network discovery is disabled"}
	ErrUnknownType     = &Error{Type: ErrTypeUnknownType, Message: "unknown discoverable type"}
	ErrPluginLoad      = &Error{Type: ErrTypePluginLoad, Message: "discoverable failed to load"}
	ErrScanTransport   = &Error{Type: ErrTypeScanTransport, Message: "scan round trip failed"}
	ErrBackgroundStart = &Error{Type: ErrTypeBackgroundStart, Message: "background scanner failed to start"}
)

func newInvalidState(op string) *Error {
	return &Error{
		Type:    ErrTypeInvalidState,
		Message: fmt.Sprintf("%s requires an active scan; call Scan first", op),
	}
}

func newUnknownType(name string) *Error {
	return &Error{
		Type:    ErrTypeUnknownType,
		Message: fmt.Sprintf("discoverable %q is not loaded", name),
		Name:    name,
	}
}

func newPluginLoad(name string, err error) *Error {
	return &Error{
		Type:    ErrTypePluginLoad,
		Message: "discoverable failed to load",
		Name:    name,
		Err:     err,
	}
}

func newBackgroundStart(err error) *Error {
	return &Error{
		Type:      ErrTypeBackgroundStart,
		Message:   "mDNS background scan could not start",
		Err:       err,
		Retryable: true,
	}
}

// ClassifyTransportError wraps a foreground scan failure into a
// ErrTypeScanTransport error with a subtype
func ClassifyTransportError(err error) *Error {
	if err == nil {
		return nil
	}

	e := &Error{
		Type:      ErrTypeScanTransport,
		Message:   "SSDP round trip failed",
		Err:       err,
		Subtype:   TransportGeneral,
		Retryable: true,
	}

	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		e.Message = "SSDP round trip timed out"
		e.Subtype = TransportTimeout
		return e
	}

	if isCancelled(err) {
		e.Message = "SSDP scan cancelled"
		e.Subtype = TransportCancelled
		e.Retryable = false
		return e
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		e.Message = "SSDP target refused the request"
		e.Subtype = TransportConnectionRefused
	case errors.Is(err, syscall.EHOSTUNREACH):
		e.Message = "SSDP target unreachable"
		e.Subtype = TransportHostUnreachable
	case errors.Is(err, syscall.ENETUNREACH):
		e.Message = "Network unreachable"
		e.Subtype = TransportNetworkUnreachable
	}
	return e
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// IsInvalidState checks if an error is an invalid state error
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsUnknownType checks if an error is an unknown type error
func IsUnknownType(err error) bool {
	return errors.Is(err, ErrUnknownType)
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetTroubleshootingHint returns user-friendly advice for an error
func GetTroubleshootingHint(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "An unexpected error occurred. Please try again."
	}

	switch e.Type {
	case ErrTypeInvalidState:
		return "Discovery is not running. Start a scan before querying results."

	case ErrTypeUnknownType:
		return strings.Join([]string{
			fmt.Sprintf("No discoverable named %q is loaded.", e.Name),
			"Troubleshooting:",
			"  • Run 'netdisco types' to list available types",
			"  • Check the --limit flag and the discovery.limit config value",
		}, "\n")

	case ErrTypePluginLoad:
		return strings.Join([]string{
			fmt.Sprintf("The %q discoverable could not be constructed.", e.Name),
			"This is a bug in that discoverable; no results were produced.",
			"  • Exclude it with --limit to run the others",
		}, "\n")

	case ErrTypeBackgroundStart:
		return strings.Join([]string{
			"mDNS browsing could not start.",
			"Troubleshooting:",
			"  • Check that a network interface with multicast is up",
			"  • Firewall must allow UDP port 5353",
		}, "\n")

	case ErrTypeScanTransport:
		switch e.Subtype {
		case TransportNetworkUnreachable, TransportHostUnreachable:
			return strings.Join([]string{
				"The SSDP multicast group is not reachable.",
				"Troubleshooting:",
				"  • Verify you are connected to a local network",
				"  • Check that the interface has a multicast route",
			}, "\n")
		case TransportCancelled:
			return "The scan was cancelled before its window closed."
		default:
			return strings.Join([]string{
				"The SSDP search failed.",
				"Troubleshooting:",
				"  • Check your network connection",
				"  • Firewall must allow UDP traffic on port 1900",
				"  • Previous results are kept; try scanning again",
			}, "\n")
		}

	default:
		return "An error occurred. Please check the error message for details."
	}
}
