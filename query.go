//
// SPDX-License-Identifier: BSD-3-Clause
//
// Adapted from: https://github.com/ooni/probe-engine/blob/v0.23.0/netx/resolver/encoder.go
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/dns/dnscore/query.go
//

package dnswire

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// Query is a DNS query containing a single question.
//
// Construct using [NewQuery] or set the MANDATORY fields.
type Query struct {
	// ID is the OPTIONAL query ID.
	ID uint16

	// Name is the MANDATORY domain name to query.
	Name string

	// Type is the MANDATORY query type: [dns.TypeA] or [dns.TypeAAAA].
	Type uint16
}

// NewQuery constructs a new [*Query] with a randomized ID.
func NewQuery(name string, qtype uint16) *Query {
	return &Query{
		ID:   dns.Id(),
		Name: name,
		Type: qtype,
	}
}

// Clone returns a deep copy of the query.
func (q *Query) Clone() *Query {
	return &Query{
		ID:   q.ID,
		Name: q.Name,
		Type: q.Type,
	}
}

// PackQuestion returns the wire encoding of the question section, which
// is also the exact byte sequence a server must echo in its reply.
func (q *Query) PackQuestion() ([]byte, error) {
	return q.appendQuestion(nil)
}

func (q *Query) appendQuestion(b []byte) ([]byte, error) {
	if err := checkQueryType(q.Type); err != nil {
		return nil, err
	}
	b, err := appendName(b, q.Name)
	if err != nil {
		return nil, err
	}
	b = binary.BigEndian.AppendUint16(b, q.Type)
	return binary.BigEndian.AppendUint16(b, dns.ClassINET), nil
}

// Header returns the header used when packing the query.
func (q *Query) Header() Header {
	return Header{
		ID:               q.ID,
		RecursionDesired: true,
		QDCount:          1,
	}
}

// Pack returns the wire encoding of the query message.
func (q *Query) Pack() ([]byte, error) {
	header := q.Header()
	return q.appendQuestion(header.AppendPack(make([]byte, 0, HeaderSize+len(q.Name)+6)))
}

// BuildQuery packs a query for hostname using a random ID.
//
// Use [NewQuery] when you need to know the ID to validate the reply.
func BuildQuery(qtype uint16, hostname string) ([]byte, error) {
	return NewQuery(hostname, qtype).Pack()
}

// ParseType maps "A" and "AAAA" (case insensitive) to their type codes.
func ParseType(s string) (uint16, error) {
	qtype, ok := dns.StringToType[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, s)
	}
	if err := checkQueryType(qtype); err != nil {
		return 0, err
	}
	return qtype, nil
}

func checkQueryType(qtype uint16) error {
	switch qtype {
	case dns.TypeA, dns.TypeAAAA:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, dns.Type(qtype))
	}
}

// Question is a decoded question section entry.
type Question struct {
	// Name is the dotted name without trailing dot.
	Name string

	// Type is the query type.
	Type uint16

	// Class is the query class.
	Class uint16
}

// UnpackQuestion decodes the question starting at offset inside packet
// and returns it along with the offset of the following byte.
func UnpackQuestion(packet []byte, offset int) (Question, int, error) {
	name, off, err := UnpackName(packet, offset)
	if err != nil {
		return Question{}, 0, err
	}
	if off+4 > len(packet) {
		return Question{}, 0, fmt.Errorf("%w: question at offset %d", ErrTruncated, offset)
	}
	q := Question{
		Name:  name,
		Type:  binary.BigEndian.Uint16(packet[off:]),
		Class: binary.BigEndian.Uint16(packet[off+2:]),
	}
	return q, off + 4, nil
}
