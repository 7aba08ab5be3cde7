// Streamgate - Cluster-backed Publish/Subscribe Gateway
// Copyright 2026 Meridian HQ
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meridianhq/streamgate

package signal

import "fmt"

// Domain error codes surfaced to the connection.
const (
	// CodeSessionClosed marks a session force-closed because its
	// authorization context changed. The client must reconnect.
	CodeSessionClosed = "gateway:session.closed"

	// CodeSessionExpired marks a session closed by its expiry timer.
	CodeSessionExpired = "gateway:session.expired"

	// CodeInvalidFilter marks a rejected subscription filter expression.
	CodeInvalidFilter = "gateway:filter.invalid"

	// CodeDuplicateCorrelation marks a command whose correlation id is
	// already bound to a live acknowledgement collector.
	CodeDuplicateCorrelation = "gateway:ack.duplicate-correlation-id"

	// CodeAckTimeout marks an acknowledgement label that did not arrive
	// before the collector deadline.
	CodeAckTimeout = "gateway:ack.timeout"
)

// SessionClosedError builds the error signal for a force-closed session.
func SessionClosedError(connectionID string) *ErrorSignal {
	return &ErrorSignal{
		Headers: Headers{CorrelationID: connectionID},
		Code:    CodeSessionClosed,
		Status:  401,
		Message: "the session was closed because the authorization context changed, reconnect to continue",
	}
}

// SessionExpiredError builds the error signal for an expired session.
func SessionExpiredError(connectionID string) *ErrorSignal {
	return &ErrorSignal{
		Headers: Headers{CorrelationID: connectionID},
		Code:    CodeSessionExpired,
		Status:  401,
		Message: "the session expired, reconnect to continue",
	}
}

// InvalidFilterError builds the error signal for a malformed filter
// expression supplied with a subscribe request.
func InvalidFilterError(correlationID string, cause error) *ErrorSignal {
	return &ErrorSignal{
		Headers: Headers{CorrelationID: correlationID},
		Code:    CodeInvalidFilter,
		Status:  400,
		Message: fmt.Sprintf("invalid filter expression: %s", cause),
	}
}

// DuplicateCorrelationError builds the error signal for a command reusing a
// correlation id with a still-live acknowledgement collector.
func DuplicateCorrelationError(correlationID string) *ErrorSignal {
	return &ErrorSignal{
		Headers: Headers{CorrelationID: correlationID},
		Code:    CodeDuplicateCorrelation,
		Status:  409,
		Message: fmt.Sprintf("correlation id %q is already awaiting acknowledgements", correlationID),
	}
}

// AckTimeoutError builds the per-label error payload aggregated for
// acknowledgements missing at the collector deadline.
func AckTimeoutError(correlationID string, label AckRequest) *ErrorSignal {
	return &ErrorSignal{
		Headers: Headers{CorrelationID: correlationID},
		Code:    CodeAckTimeout,
		Status:  408,
		Message: fmt.Sprintf("acknowledgement %q did not arrive in time", label),
	}
}
