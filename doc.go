// SPDX-License-Identifier: GPL-3.0-or-later

// Package dnswire is a minimal DNS client message builder and parser.
//
// [BuildQuery], [NewQuery] and [*Query] construct and pack a DNS query
// message containing a single question. [ParseReply] decodes a raw reply
// into a [*Reply] holding the header and the answer records, following
// name compression pointers with a bounded, strictly backward walk so that
// untrusted packets cannot cause unbounded work. [ParseResponse] also
// validates the reply against the query.
//
// [*Transport] sends a query over UDP and receives the reply. The codec
// itself is stateless: every function operates on the caller's buffers.
package dnswire
