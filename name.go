// SPDX-License-Identifier: GPL-3.0-or-later

package dnswire

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/net/idna"
)

const (
	// MaxLabelLength is the maximum length of a single label.
	MaxLabelLength = 63

	// MaxNameLength is the maximum length of an encoded name,
	// including length octets and the terminating zero.
	MaxNameLength = 255

	// MaxPointerHops bounds the number of compression pointers
	// followed while decoding a single name.
	MaxPointerHops = 128
)

// PackName returns the wire encoding of hostname: each label prefixed
// by its length, terminated by a zero-length label.
//
// The hostname is converted to ASCII using IDNA lookup rules. A single
// trailing dot is accepted. Empty names, empty labels and labels longer
// than [MaxLabelLength] cause [ErrInvalidName].
func PackName(hostname string) ([]byte, error) {
	return appendName(nil, hostname)
}

func appendName(b []byte, hostname string) ([]byte, error) {
	// 1. reject the empty name and the root name
	name := strings.TrimSuffix(hostname, ".")
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidName)
	}

	// 2. IDNA encode the domain name
	punyName, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidName, hostname, err)
	}

	// 3. validate the labels and the overall length
	labels := strings.Split(punyName, ".")
	size := 1
	for _, label := range labels {
		if len(label) < 1 || len(label) > MaxLabelLength {
			return nil, fmt.Errorf("%w: %q: label length %d", ErrInvalidName, hostname, len(label))
		}
		size += len(label) + 1
	}
	if size > MaxNameLength {
		return nil, fmt.Errorf("%w: %q: encoded length %d", ErrInvalidName, hostname, size)
	}

	// 4. serialize
	for _, label := range labels {
		b = append(b, byte(len(label)))
		b = append(b, label...)
	}
	return append(b, 0), nil
}

// UnpackName decodes the possibly-compressed name starting at offset
// inside packet. It returns the dotted name, without trailing dot, and
// the offset of the first byte following the name as it appears at
// offset. The root name decodes to the empty string.
func UnpackName(packet []byte, offset int) (string, int, error) {
	labels, next, err := unpackLabels(packet, offset)
	if err != nil {
		return "", 0, err
	}
	return strings.Join(labels, "."), next, nil
}

// unpackLabels walks the name with an explicit cursor. Every pointer must
// jump strictly before the start of the label run that contains it, so the
// run start decreases on each hop and the walk always terminates.
func unpackLabels(packet []byte, offset int) ([]string, int, error) {
	var (
		labels []string
		next   = -1
		run    = offset
		cursor = offset
		hops   = 0
		size   = 1
	)
	for {
		if cursor < 0 || cursor >= len(packet) {
			return nil, 0, fmt.Errorf("%w: name at offset %d", ErrTruncated, offset)
		}
		length := int(packet[cursor])

		switch {
		case length == 0:
			if next < 0 {
				next = cursor + 1
			}
			return labels, next, nil

		case length&0xC0 == 0xC0:
			if cursor+2 > len(packet) {
				return nil, 0, fmt.Errorf("%w: pointer at offset %d", ErrTruncated, cursor)
			}
			pointer := int(binary.BigEndian.Uint16(packet[cursor:]) & 0x3FFF)
			if next < 0 {
				next = cursor + 2
			}
			hops++
			if hops > MaxPointerHops {
				return nil, 0, fmt.Errorf("%w: more than %d pointers", ErrCompressionLoop, MaxPointerHops)
			}
			if pointer >= run {
				return nil, 0, fmt.Errorf("%w: pointer at offset %d targets %d", ErrCompressionLoop, cursor, pointer)
			}
			run, cursor = pointer, pointer

		case length&0xC0 != 0:
			// 0x40 and 0x80 are the obsolete extended label types
			return nil, 0, fmt.Errorf("%w: label type %#x at offset %d", ErrInvalidName, length&0xC0, cursor)

		default:
			cursor++
			if cursor+length > len(packet) {
				return nil, 0, fmt.Errorf("%w: label at offset %d", ErrTruncated, cursor-1)
			}
			size += length + 1
			if size > MaxNameLength {
				return nil, 0, fmt.Errorf("%w: name at offset %d exceeds %d bytes", ErrInvalidName, offset, MaxNameLength)
			}
			labels = append(labels, string(packet[cursor:cursor+length]))
			cursor += length
		}
	}
}
