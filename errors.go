// SPDX-License-Identifier: GPL-3.0-or-later

package dnswire

import "errors"

// Errors emitted while encoding or decoding messages.
var (
	// ErrInvalidName indicates a malformed domain name or label.
	ErrInvalidName = errors.New("invalid domain name")

	// ErrUnsupportedType indicates a query type other than A or AAAA.
	ErrUnsupportedType = errors.New("unsupported query type")

	// ErrTruncated indicates that the buffer ended before the
	// structure being decoded was complete.
	ErrTruncated = errors.New("truncated DNS message")

	// ErrQuestionMismatch indicates that the question echoed by the
	// server differs from the question we sent.
	ErrQuestionMismatch = errors.New("question mismatch")

	// ErrMalformedRecordData indicates that the resource data length
	// is not consistent with the record type.
	ErrMalformedRecordData = errors.New("malformed record data")

	// ErrCompressionLoop indicates a compression pointer that does not
	// move strictly backward or a chain exceeding [MaxPointerHops].
	ErrCompressionLoop = errors.New("name compression loop")

	// ErrUnexpectedTransaction indicates that the reply ID differs
	// from the query ID.
	ErrUnexpectedTransaction = errors.New("unexpected transaction ID")
)
