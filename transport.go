// SPDX-License-Identifier: GPL-3.0-or-later

package dnswire

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/bassosimone/dnswire/internal/log"
	"github.com/miekg/dns"
)

const (
	// DefaultPort is the port used when the server address has none.
	DefaultPort = "53"

	// MaxResponseSizeUDP is the default receive buffer size.
	MaxResponseSizeUDP = 4096
)

// Transport exchanges a single query with a DNS server over UDP.
//
// The zero value is ready to use. There are no retries: one datagram
// is sent and one datagram is read. Use the context to set a timeout.
type Transport struct {
	// Dialer is the OPTIONAL dialer used to create the UDP socket.
	Dialer *net.Dialer

	// Logger is the OPTIONAL logger. When nil, we use [log.GetLogger].
	Logger log.Logger

	// MaxResponseSize is the OPTIONAL receive buffer size. When zero,
	// we use [MaxResponseSizeUDP].
	MaxResponseSize int
}

// DefaultTransport is the [*Transport] used by [Lookup].
var DefaultTransport = &Transport{}

func (t *Transport) logger() log.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return log.GetLogger()
}

func (t *Transport) dialer() *net.Dialer {
	if t.Dialer != nil {
		return t.Dialer
	}
	return &net.Dialer{}
}

func (t *Transport) maxResponseSize() int {
	if t.MaxResponseSize > 0 {
		return t.MaxResponseSize
	}
	return MaxResponseSizeUDP
}

// ServerAddress appends [DefaultPort] to server unless it already has a port.
func ServerAddress(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(strings.Trim(server, "[]"), DefaultPort)
}

// Exchange sends rawQuery to server and returns the raw reply.
func (t *Transport) Exchange(ctx context.Context, server string, rawQuery []byte) ([]byte, error) {
	// 1. create the socket
	addr := ServerAddress(server)
	conn, err := t.dialer().DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	// 2. make blocking I/O honor the context
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	// 3. send the query
	t0 := time.Now()
	if _, err := conn.Write(rawQuery); err != nil {
		return nil, t.ioError(ctx, err)
	}

	// 4. read a single datagram
	buffer := make([]byte, t.maxResponseSize())
	count, err := conn.Read(buffer)
	if err != nil {
		return nil, t.ioError(ctx, err)
	}

	t.logger().Debug(map[string]any{
		"server":   addr,
		"sent":     len(rawQuery),
		"received": count,
		"elapsed":  time.Since(t0).String(),
	}, "dns exchange")
	return buffer[:count], nil
}

// ioError prefers the context error when the context caused the failure.
func (t *Transport) ioError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// LookupAll queries server for hostname and returns the validated reply.
func (t *Transport) LookupAll(ctx context.Context, qtype uint16, hostname, server string) (*Reply, error) {
	// 1. build the query
	query := NewQuery(hostname, qtype)
	rawQuery, err := query.Pack()
	if err != nil {
		return nil, err
	}

	// 2. exchange with the server
	rawReply, err := t.Exchange(ctx, server, rawQuery)
	if err != nil {
		t.logger().Error(map[string]any{"server": server, "name": hostname, "error": err.Error()}, "dns exchange failed")
		return nil, err
	}

	// 3. parse and validate the reply
	reply, err := ParseResponse(query, rawReply)
	if err != nil {
		t.logger().Warn(map[string]any{"server": server, "name": hostname, "error": err.Error()}, "invalid dns reply")
		return nil, err
	}
	for idx, rr := range reply.Answers {
		if rr.Err != nil {
			t.logger().Warn(map[string]any{"index": idx, "name": rr.Name, "error": rr.Err.Error()}, "skipping answer")
		}
	}
	return reply, nil
}

// Lookup queries server for hostname and returns the first address of
// type qtype, which must be [dns.TypeA] or [dns.TypeAAAA].
func (t *Transport) Lookup(ctx context.Context, qtype uint16, hostname, server string) (string, error) {
	reply, err := t.LookupAll(ctx, qtype, hostname, server)
	if err != nil {
		return "", err
	}
	addrs, err := reply.records(qtype)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", hostname, dns.Type(qtype), err)
	}
	return addrs[0], nil
}

// Lookup is like [*Transport.Lookup] using [DefaultTransport].
func Lookup(ctx context.Context, qtype uint16, hostname, server string) (string, error) {
	return DefaultTransport.Lookup(ctx, qtype, hostname, server)
}

// IsTimeout reports whether err is a network or context timeout.
func IsTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
