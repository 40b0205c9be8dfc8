package resolver

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
)

// IsConnectionError reports whether err means the server could not be reached
// or dropped the connection before answering. Timeouts while waiting for a
// response on an established connection are not connection errors.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// IsUnreachable reports whether err means nothing answered in time, either
// because the connection failed or because the probe timed out.
func IsUnreachable(err error) bool {
	return IsConnectionError(err) || IsTimeoutError(err)
}

// IsDNSError reports whether err comes from a failed name lookup, either in
// the Go resolver or inside the browser.
func IsDNSError(err error) bool {
	if err == nil {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	errMessage := FullErrorMessage(err)
	return strings.Contains(errMessage, "net::ERR_NAME_NOT_RESOLVED") ||
		strings.Contains(errMessage, "no such host")
}

// IsTimeoutError reports whether err is a deadline or timeout.
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errMessage := FullErrorMessage(err)
	return strings.Contains(errMessage, "context deadline exceeded") ||
		strings.Contains(errMessage, "timeout")
}

// FullErrorMessage joins the messages of err and every error it wraps.
func FullErrorMessage(err error) string {
	var sb strings.Builder
	for err != nil {
		sb.WriteString(err.Error())
		err = errors.Unwrap(err)
		if err != nil {
			sb.WriteString(" | ")
		}
	}
	return sb.String()
}

// UnwrapError returns the message of the innermost wrapped error.
func UnwrapError(err error) string {
	if err == nil {
		return ""
	}

	rootErr := err
	for {
		unwrappedErr := errors.Unwrap(rootErr)
		if unwrappedErr == nil {
			break
		}
		rootErr = unwrappedErr
	}
	return rootErr.Error()
}
