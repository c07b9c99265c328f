// SPDX-License-Identifier: GPL-3.0-or-later

package dnswire

import (
	"encoding/binary"
	"fmt"

	"github.com/miekg/dns"
)

// HeaderSize is the size in bytes of the fixed DNS message header.
const HeaderSize = 12

// Header is the fixed-size DNS message header.
//
// The flags word is split into its component fields. Use [*Header.Flags]
// and [*Header.SetFlags] to convert from and to the packed form.
type Header struct {
	// ID is the transaction ID.
	ID uint16

	// Response is the QR bit: false for queries, true for replies.
	Response bool

	// Opcode is the 4-bit operation code.
	Opcode uint8

	// Authoritative is the AA bit.
	Authoritative bool

	// Truncated is the TC bit.
	Truncated bool

	// RecursionDesired is the RD bit.
	RecursionDesired bool

	// RecursionAvailable is the RA bit.
	RecursionAvailable bool

	// Zero contains the 3 reserved bits, which must be zero on
	// the wire but are preserved when decoding.
	Zero uint8

	// Rcode is the 4-bit response code.
	Rcode uint8

	// QDCount is the number of entries in the question section.
	QDCount uint16

	// ANCount is the number of records in the answer section.
	ANCount uint16

	// NSCount is the number of records in the authority section.
	NSCount uint16

	// ARCount is the number of records in the additional section.
	ARCount uint16
}

// Flags returns the packed 16-bit flags word.
func (h *Header) Flags() uint16 {
	var flags uint16
	if h.Response {
		flags |= 1 << 15
	}
	flags |= uint16(h.Opcode&0xf) << 11
	if h.Authoritative {
		flags |= 1 << 10
	}
	if h.Truncated {
		flags |= 1 << 9
	}
	if h.RecursionDesired {
		flags |= 1 << 8
	}
	if h.RecursionAvailable {
		flags |= 1 << 7
	}
	flags |= uint16(h.Zero&0x7) << 4
	flags |= uint16(h.Rcode & 0xf)
	return flags
}

// SetFlags overwrites the flag fields using the packed flags word.
func (h *Header) SetFlags(flags uint16) {
	h.Response = flags&(1<<15) != 0
	h.Opcode = uint8(flags>>11) & 0xf
	h.Authoritative = flags&(1<<10) != 0
	h.Truncated = flags&(1<<9) != 0
	h.RecursionDesired = flags&(1<<8) != 0
	h.RecursionAvailable = flags&(1<<7) != 0
	h.Zero = uint8(flags>>4) & 0x7
	h.Rcode = uint8(flags) & 0xf
}

// AppendPack appends the wire representation of the header to b.
func (h *Header) AppendPack(b []byte) []byte {
	b = binary.BigEndian.AppendUint16(b, h.ID)
	b = binary.BigEndian.AppendUint16(b, h.Flags())
	b = binary.BigEndian.AppendUint16(b, h.QDCount)
	b = binary.BigEndian.AppendUint16(b, h.ANCount)
	b = binary.BigEndian.AppendUint16(b, h.NSCount)
	return binary.BigEndian.AppendUint16(b, h.ARCount)
}

// UnpackHeader decodes the header at the beginning of packet.
func UnpackHeader(packet []byte) (Header, error) {
	if len(packet) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header needs %d bytes, got %d", ErrTruncated, HeaderSize, len(packet))
	}
	h := Header{
		ID:      binary.BigEndian.Uint16(packet[0:2]),
		QDCount: binary.BigEndian.Uint16(packet[4:6]),
		ANCount: binary.BigEndian.Uint16(packet[6:8]),
		NSCount: binary.BigEndian.Uint16(packet[8:10]),
		ARCount: binary.BigEndian.Uint16(packet[10:12]),
	}
	h.SetFlags(binary.BigEndian.Uint16(packet[2:4]))
	return h, nil
}

// String returns a dig-like summary of the header.
func (h *Header) String() string {
	return fmt.Sprintf(
		"opcode: %s, status: %s, id: %d, qr: %t, aa: %t, tc: %t, rd: %t, ra: %t; QUERY: %d, ANSWER: %d, AUTHORITY: %d, ADDITIONAL: %d",
		opcodeString(h.Opcode), rcodeString(h.Rcode), h.ID,
		h.Response, h.Authoritative, h.Truncated, h.RecursionDesired, h.RecursionAvailable,
		h.QDCount, h.ANCount, h.NSCount, h.ARCount,
	)
}

func opcodeString(op uint8) string {
	if s, ok := dns.OpcodeToString[int(op)]; ok {
		return s
	}
	return fmt.Sprintf("OPCODE%d", op)
}

func rcodeString(rcode uint8) string {
	if s, ok := dns.RcodeToString[int(rcode)]; ok {
		return s
	}
	return fmt.Sprintf("RCODE%d", rcode)
}
