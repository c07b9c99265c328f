// SPDX-License-Identifier: BSD-3-Clause

package dnswire

import (
	"strings"
	"testing"

	"github.com/bassosimone/runtimex"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/require"
)

func TestQueryClone(t *testing.T) {
	query := &Query{
		ID:   1234,
		Name: "www.example.com",
		Type: dns.TypeA,
	}

	clone := query.Clone()

	require.NotSame(t, query, clone)
	require.Equal(t, query, clone)

	clone.Name = "www.example.net"
	clone.Type = dns.TypeAAAA
	clone.ID = 5678

	require.Equal(t, "www.example.com", query.Name)
	require.Equal(t, dns.TypeA, query.Type)
	require.Equal(t, uint16(1234), query.ID)
}

func TestQueryPack(t *testing.T) {
	query := &Query{ID: 0x1234, Name: "www.nyu.edu", Type: dns.TypeA}
	raw := runtimex.PanicOnError1(query.Pack())

	expected := []byte{
		0x12, 0x34, 0x01, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		3, 'w', 'w', 'w', 3, 'n', 'y', 'u', 3, 'e', 'd', 'u', 0,
		0x00, 0x01, 0x00, 0x01,
	}
	require.Equal(t, expected, raw)
	require.Len(t, raw, HeaderSize+(3+3+3+3+1)+4)

	// the question section is the tail of the packed query
	question := runtimex.PanicOnError1(query.PackQuestion())
	require.Equal(t, raw[HeaderSize:], question)
}

func TestQueryRoundTrip(t *testing.T) {
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		t.Run(dns.Type(qtype).String(), func(t *testing.T) {
			raw := runtimex.PanicOnError1(BuildQuery(qtype, "www.nyu.edu"))

			header := runtimex.PanicOnError1(UnpackHeader(raw))
			require.False(t, header.Response)
			require.Equal(t, uint8(dns.OpcodeQuery), header.Opcode)
			require.True(t, header.RecursionDesired)
			require.Equal(t, uint16(0x0100), header.Flags())
			require.Equal(t, uint16(1), header.QDCount)
			require.Zero(t, header.ANCount)
			require.Zero(t, header.NSCount)
			require.Zero(t, header.ARCount)

			q, next, err := UnpackQuestion(raw, HeaderSize)
			require.NoError(t, err)
			require.Equal(t, len(raw), next)
			require.Equal(t, []string{"www", "nyu", "edu"}, strings.Split(q.Name, "."))
			require.Equal(t, qtype, q.Type)
			require.Equal(t, uint16(dns.ClassINET), q.Class)

			// the dns library must parse our query as well
			msg := new(dns.Msg)
			require.NoError(t, msg.Unpack(raw))
			require.Equal(t, header.ID, msg.Id)
			require.True(t, msg.RecursionDesired)
			require.Len(t, msg.Question, 1)
			require.Equal(t, dns.Question{Name: "www.nyu.edu.", Qtype: qtype, Qclass: dns.ClassINET}, msg.Question[0])
		})
	}
}

func TestNewQueryRandomID(t *testing.T) {
	// with 16 random bits, 32 equal IDs in a row are practically impossible
	first := NewQuery("www.nyu.edu", dns.TypeA).ID
	for idx := 0; idx < 32; idx++ {
		if NewQuery("www.nyu.edu", dns.TypeA).ID != first {
			return
		}
	}
	t.Fatal("query IDs are not randomized")
}

func TestBuildQueryErrors(t *testing.T) {
	tests := []struct {
		name     string
		qtype    uint16
		hostname string
		err      error
	}{
		{"UnsupportedType", dns.TypeMX, "www.nyu.edu", ErrUnsupportedType},
		{"ZeroType", 0, "www.nyu.edu", ErrUnsupportedType},
		{"EmptyName", dns.TypeA, "", ErrInvalidName},
		{"EmptyLabel", dns.TypeAAAA, "www..edu", ErrInvalidName},
		{"LongLabel", dns.TypeA, strings.Repeat("x", 64) + ".edu", ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := BuildQuery(tt.qtype, tt.hostname)
			require.ErrorIs(t, err, tt.err)
			require.Nil(t, raw)
		})
	}
}

func TestQueryPackQuestionIDNA(t *testing.T) {
	query := NewQuery("bücher.example", dns.TypeA)
	raw := runtimex.PanicOnError1(query.PackQuestion())
	q := runtimex.PanicOnError1(unpackQuestionOnly(raw))
	require.Equal(t, "xn--bcher-kva.example", q.Name)
}

// unpackQuestionOnly decodes a question section that is not preceded by a header.
func unpackQuestionOnly(raw []byte) (Question, error) {
	q, _, err := UnpackQuestion(raw, 0)
	return q, err
}

func TestParseType(t *testing.T) {
	tests := []struct {
		input    string
		expected uint16
		err      error
	}{
		{"A", dns.TypeA, nil},
		{"a", dns.TypeA, nil},
		{" AAAA ", dns.TypeAAAA, nil},
		{"aaaa", dns.TypeAAAA, nil},
		{"MX", 0, ErrUnsupportedType},
		{"", 0, ErrUnsupportedType},
		{"BOGUS", 0, ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			qtype, err := ParseType(tt.input)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, qtype)
		})
	}
}

func TestUnpackQuestionTruncated(t *testing.T) {
	raw := runtimex.PanicOnError1(BuildQuery(dns.TypeA, "www.nyu.edu"))
	_, _, err := UnpackQuestion(raw[:len(raw)-1], HeaderSize)
	require.ErrorIs(t, err, ErrTruncated)
}
