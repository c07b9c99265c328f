//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/dns/dnscore/response_test.go
//

package dnswire

import (
	"net"
	"testing"

	"github.com/bassosimone/runtimex"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"
)

func TestValidateReply(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*Query, *Reply)
		expected error
	}{
		{
			name: "ValidResponse",
			modify: func(query *Query, reply *Reply) {
				// No modification needed, valid response.
			},
			expected: nil,
		},

		{
			name: "InvalidResponseID",
			modify: func(query *Query, reply *Reply) {
				reply.Header.ID = query.ID + 1
			},
			expected: ErrUnexpectedTransaction,
		},

		{
			name: "InvalidResponseNotAResponse",
			modify: func(query *Query, reply *Reply) {
				reply.Header.Response = false
			},
			expected: ErrInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := &Query{ID: 0x1234, Name: "example.com", Type: dns.TypeA}
			reply := &Reply{Header: Header{ID: 0x1234, Response: true, QDCount: 1}}

			tt.modify(query, reply)

			err := ValidateReply(query, reply)
			if tt.expected != nil {
				require.ErrorIs(t, err, tt.expected)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestReplyErrorFromRCODE(t *testing.T) {
	tests := []struct {
		name     string
		rcode    uint8
		expected error
	}{
		{"NameError", dns.RcodeNameError, ErrNoName},
		{"ServerFailure", dns.RcodeServerFailure, ErrServerTemporarilyMisbehaving},
		{"LameReferral", dns.RcodeSuccess, ErrNoData},
		{"Success", dns.RcodeSuccess, nil},
		{"Refused", dns.RcodeRefused, ErrServerMisbehaving},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := &Reply{Header: Header{Response: true, Rcode: tt.rcode}}

			switch tt.name {
			case "LameReferral":
				reply.Header.Authoritative = false
				reply.Header.RecursionAvailable = false
				reply.Answers = nil

			case "Success":
				reply.Header.Authoritative = true
				reply.Header.RecursionAvailable = true
				reply.Answers = []ResourceRecord{{
					Name:    "example.com",
					Type:    dns.TypeA,
					Class:   dns.ClassINET,
					Data:    []byte{127, 0, 0, 1},
					Address: "127.0.0.1",
				}}
			}

			err := ReplyErrorFromRCODE(reply)
			if tt.expected != nil {
				require.ErrorIs(t, err, tt.expected)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestParseResponse(t *testing.T) {
	query := &Query{ID: 4321, Name: "www.example.com", Type: dns.TypeA}
	answer := &dns.A{Hdr: rrHeader("www.example.com.", dns.TypeA), A: net.IPv4(93, 184, 216, 34)}

	t.Run("Success", func(t *testing.T) {
		reply, err := ParseResponse(query, packedReply(query, dns.RcodeSuccess, answer))
		require.NoError(t, err)
		addrs := runtimex.PanicOnError1(reply.RecordsA())
		require.Equal(t, []string{"93.184.216.34"}, addrs)
	})

	t.Run("NXDOMAIN", func(t *testing.T) {
		_, err := ParseResponse(query, packedReply(query, dns.RcodeNameError))
		require.ErrorIs(t, err, ErrNoName)
	})

	t.Run("WrongID", func(t *testing.T) {
		other := query.Clone()
		other.ID++
		_, err := ParseResponse(query, packedReply(other, dns.RcodeSuccess, answer))
		require.ErrorIs(t, err, ErrUnexpectedTransaction)
	})

	t.Run("NotAResponse", func(t *testing.T) {
		raw := runtimex.PanicOnError1(query.Pack())
		_, err := ParseResponse(query, raw)
		require.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("QuestionMismatch", func(t *testing.T) {
		other := query.Clone()
		other.Name = "www.example.org"
		_, err := ParseResponse(query, packedReply(other, dns.RcodeSuccess))
		require.ErrorIs(t, err, ErrQuestionMismatch)
	})

	t.Run("InvalidQuery", func(t *testing.T) {
		bad := query.Clone()
		bad.Type = dns.TypeMX
		_, err := ParseResponse(bad, packedReply(query, dns.RcodeSuccess, answer))
		require.ErrorIs(t, err, ErrUnsupportedType)
	})
}
