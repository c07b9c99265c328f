//
// SPDX-License-Identifier: BSD-3-Clause
//
// Adapted from: https://github.com/ooni/probe-engine/blob/v0.23.0/netx/resolver/decoder.go
// Adapted from: https://github.com/golang/go/blob/go1.21.10/src/net/dnsclient_unix.go
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/dns/dnscore/response.go
//

package dnswire

import (
	"errors"
	"fmt"

	"github.com/miekg/dns"
)

// These error messages use the same suffixes used by the Go standard library.
var (
	// ErrInvalidResponse means that the message is not a response.
	ErrInvalidResponse = errors.New("invalid DNS response")

	// ErrNoName indicates that the server response code is NXDOMAIN.
	ErrNoName = errors.New("no such host")

	// ErrServerMisbehaving indicates that the server response code is
	// neither 0, nor NXDOMAIN, nor SERVFAIL.
	ErrServerMisbehaving = errors.New("server misbehaving")

	// ErrServerTemporarilyMisbehaving indicates that the server answer is SERVFAIL.
	//
	// The error message is same as [ErrServerMisbehaving] for compatibility with the
	// Go standard library, which assigns the same error string to both errors.
	ErrServerTemporarilyMisbehaving = errors.New("server misbehaving")

	// ErrNoData indicates that there is no pertinent answer in the response.
	ErrNoData = errors.New("no answer from DNS server")
)

// ValidateReply validates a decoded reply for a given query.
//
// The reply must have the QR bit set and the same ID as the query. The
// question is already checked by [ParseReply].
func ValidateReply(query *Query, reply *Reply) error {
	// 1. make sure the message is actually a response
	if !reply.Header.Response {
		return ErrInvalidResponse
	}

	// 2. make sure the response ID matches the query ID
	if reply.Header.ID != query.ID {
		return fmt.Errorf("%w: sent %d, received %d", ErrUnexpectedTransaction, query.ID, reply.Header.ID)
	}
	return nil
}

// ReplyErrorFromRCODE maps an RCODE inside a valid DNS reply to an error
// using a suffix compatible with the error strings returned by [*net.Resolver].
//
// If the RCODE is zero and the reply is not a lame referral, this
// function returns nil.
func ReplyErrorFromRCODE(reply *Reply) error {
	h := &reply.Header

	// 1. handle NXDOMAIN case by mapping it to EAI_NONAME
	if h.Rcode == dns.RcodeNameError {
		return ErrNoName
	}

	// 2. handle the case of lame referral by mapping it to EAI_NODATA
	if h.Rcode == dns.RcodeSuccess &&
		!h.Authoritative &&
		!h.RecursionAvailable &&
		len(reply.Answers) == 0 {
		return ErrNoData
	}

	// 3. handle any other error by mapping to EAI_FAIL
	if h.Rcode != dns.RcodeSuccess {
		if h.Rcode == dns.RcodeServerFailure {
			return ErrServerTemporarilyMisbehaving
		}
		return ErrServerMisbehaving
	}
	return nil
}

// ParseResponse decodes raw as the reply to query and validates it using
// [ValidateReply] and [ReplyErrorFromRCODE].
func ParseResponse(query *Query, raw []byte) (*Reply, error) {
	question, err := query.PackQuestion()
	if err != nil {
		return nil, err
	}

	reply, err := ParseReply(raw, question)
	if err != nil {
		return nil, err
	}

	if err := ValidateReply(query, reply); err != nil {
		return nil, err
	}

	if err := ReplyErrorFromRCODE(reply); err != nil {
		return nil, err
	}
	return reply, nil
}
