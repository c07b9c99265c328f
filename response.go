// SPDX-License-Identifier: GPL-3.0-or-later

package dnswire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/miekg/dns"
)

// ResourceRecord is a decoded answer record.
//
// Only A and AAAA records are interpreted. Records of other types are
// returned with their raw Data and an empty Address.
type ResourceRecord struct {
	// Name is the owner name without trailing dot.
	Name string

	// Type is the record type.
	Type uint16

	// Class is the record class.
	Class uint16

	// TTL is the time to live in seconds.
	TTL uint32

	// Data is the raw resource data.
	Data []byte

	// Address is the textual address for valid A and AAAA records.
	Address string

	// Err is non-nil when this record could not be decoded.
	Err error
}

// Reply is a decoded DNS reply.
//
// Construct using [ParseReply] or [ParseResponse].
type Reply struct {
	// Header is the reply header.
	Header Header

	// Question is the decoded echoed question.
	Question Question

	// Answers contains the answer records in wire order.
	Answers []ResourceRecord
}

// ParseReply decodes packet, which must echo expectedQuestion verbatim
// right after the header.
//
// Errors concerning the header or the question abort decoding. Errors
// concerning a single answer are stored in [ResourceRecord.Err]. When an
// answer cannot be read completely, it is appended with its error and
// decoding stops, so the returned answers may be fewer than ANCount.
func ParseReply(packet, expectedQuestion []byte) (*Reply, error) {
	// 1. make sure the header and the question fit
	if len(packet) < HeaderSize+len(expectedQuestion) {
		return nil, fmt.Errorf("%w: need %d bytes, got %d",
			ErrTruncated, HeaderSize+len(expectedQuestion), len(packet))
	}

	// 2. make sure the server echoed the question we sent
	offset := HeaderSize + len(expectedQuestion)
	if !bytes.Equal(packet[HeaderSize:offset], expectedQuestion) {
		return nil, ErrQuestionMismatch
	}

	// 3. decode the header and the question
	header, err := UnpackHeader(packet)
	if err != nil {
		return nil, err
	}
	question, _, err := UnpackQuestion(packet, HeaderSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuestionMismatch, err)
	}

	// 4. decode the answers
	reply := &Reply{
		Header:   header,
		Question: question,
		Answers:  make([]ResourceRecord, 0, min(int(header.ANCount), 16)),
	}
	for idx := 0; idx < int(header.ANCount); idx++ {
		rr, next := unpackRecord(packet, offset)
		reply.Answers = append(reply.Answers, rr)
		if next < 0 {
			break
		}
		offset = next
	}
	return reply, nil
}

// unpackRecord decodes the record at offset. It returns a negative next
// offset when the record could not be delimited.
func unpackRecord(packet []byte, offset int) (ResourceRecord, int) {
	// 1. owner name
	name, off, err := UnpackName(packet, offset)
	if err != nil {
		return ResourceRecord{Err: err}, -1
	}
	rr := ResourceRecord{Name: name}

	// 2. fixed fields
	if off+10 > len(packet) {
		rr.Err = fmt.Errorf("%w: record at offset %d", ErrTruncated, offset)
		return rr, -1
	}
	rr.Type = binary.BigEndian.Uint16(packet[off:])
	rr.Class = binary.BigEndian.Uint16(packet[off+2:])
	rr.TTL = binary.BigEndian.Uint32(packet[off+4:])
	rdlength := int(binary.BigEndian.Uint16(packet[off+8:]))
	off += 10

	// 3. resource data
	if off+rdlength > len(packet) {
		rr.Err = fmt.Errorf("%w: rdata at offset %d needs %d bytes", ErrTruncated, off, rdlength)
		return rr, -1
	}
	rr.Data = append([]byte(nil), packet[off:off+rdlength]...)
	off += rdlength

	// 4. interpretation
	rr.Address, rr.Err = decodeAddress(rr.Type, rr.Data)
	return rr, off
}

func decodeAddress(rrtype uint16, data []byte) (string, error) {
	switch rrtype {
	case dns.TypeA:
		if len(data) != 4 {
			return "", fmt.Errorf("%w: A record with %d bytes", ErrMalformedRecordData, len(data))
		}
		return netip.AddrFrom4([4]byte(data)).String(), nil

	case dns.TypeAAAA:
		if len(data) != 16 {
			return "", fmt.Errorf("%w: AAAA record with %d bytes", ErrMalformedRecordData, len(data))
		}
		return netip.AddrFrom16([16]byte(data)).String(), nil

	default:
		return "", nil
	}
}

// RecordsA returns the addresses of the valid A records in the reply.
func (r *Reply) RecordsA() ([]string, error) {
	return r.records(dns.TypeA)
}

// RecordsAAAA returns the addresses of the valid AAAA records in the reply.
func (r *Reply) RecordsAAAA() ([]string, error) {
	return r.records(dns.TypeAAAA)
}

func (r *Reply) records(rrtype uint16) ([]string, error) {
	out := make([]string, 0, len(r.Answers))
	for _, rr := range r.Answers {
		if rr.Err == nil && rr.Type == rrtype && rr.Class == r.Question.Class {
			out = append(out, rr.Address)
		}
	}
	if len(out) < 1 {
		return nil, ErrNoData
	}
	return out, nil
}
