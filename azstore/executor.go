package azstore

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/azstore/azstore/lib/agent"
	"github.com/pkg/errors"
)

// newExecutorPolicy builds the terminal Policy: it issues exactly one
// HTTPS attempt over a borrowed agent.Conn and buffers the entire
// response. It relies on net/http's request/response framing
// (http.Request.Write / http.ReadResponse) over the raw connection the
// Agent hands back, rather than hand-rolling HTTP/1.1 parsing.
func newExecutorPolicy(a *agent.Agent) Policy {
	return PolicyFunc(func(ctx context.Context, req *RequestDescriptor) (*Response, error) {
		return doExecute(ctx, a, req)
	})
}

func doExecute(ctx context.Context, a *agent.Agent, req *RequestDescriptor) (*Response, error) {
	var body io.Reader
	if len(req.Payload) > 0 {
		body = bytes.NewReader(req.Payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, "https://"+req.Host+req.Path, body)
	if err != nil {
		return nil, newError(KindPermanent, "ErrorWithoutCode", "invalid request: "+err.Error())
	}
	httpReq.Host = req.Host
	for name, value := range req.Headers {
		httpReq.Header.Set(name, value)
	}
	if len(req.Payload) > 0 {
		httpReq.ContentLength = int64(len(req.Payload))
	}

	conn, err := a.Borrow(ctx, "tcp", req.Host, req.Host+":443", req.Host)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := httpReq.Write(conn); err != nil {
		a.Release(conn, false)
		return nil, classifyTransportError(ctx, err)
	}

	// net/http's header parser runs every name through
	// textproto.CanonicalMIMEHeaderKey, destroying the wire casing Azure
	// uses to round-trip metadata key names. Tee the connection so the
	// raw header block can be re-parsed, untouched, once ReadResponse has
	// consumed it.
	var headerBuf bytes.Buffer
	br := bufio.NewReader(io.TeeReader(conn, &headerBuf))

	httpResp, err := http.ReadResponse(br, httpReq)
	if err != nil {
		a.Release(conn, false)
		return nil, classifyTransportError(ctx, err)
	}
	rawHeaderBlock := append([]byte(nil), headerBuf.Bytes()...)

	payload, err := io.ReadAll(httpResp.Body)
	_ = httpResp.Body.Close()
	if err != nil {
		a.Release(conn, false)
		return nil, classifyTransportError(ctx, err)
	}

	keepAlive := !httpResp.Close && !strings.EqualFold(httpResp.Header.Get("Connection"), "close")
	a.Release(conn, keepAlive)

	headers := make(map[string]string, len(httpResp.Header))
	for name, values := range httpResp.Header {
		headers[lowerASCII(name)] = strings.Join(values, ",")
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    headers,
		RawHeaders: parseRawHeaderLines(rawHeaderBlock),
		Payload:    payload,
	}, nil
}

// parseRawHeaderLines recovers header name casing as it appeared on the
// wire, from the raw bytes net/http consumed while parsing the status
// line and header block. It stops at the blank line terminating the
// header section so any tee'd body bytes bufio read ahead are ignored.
func parseRawHeaderLines(block []byte) []rawHeader {
	if end := bytes.Index(block, []byte("\r\n\r\n")); end >= 0 {
		block = block[:end]
	}
	lines := strings.Split(string(block), "\r\n")
	if len(lines) > 0 {
		lines = lines[1:] // drop the status line
	}
	raw := make([]rawHeader, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		raw = append(raw, rawHeader{
			Name:  strings.TrimSpace(line[:colon]),
			Value: strings.TrimSpace(line[colon+1:]),
		})
	}
	return raw
}

// classifyTransportError maps a connection/dial/IO failure into the
// Timeout/Network/Cancelled kinds, wrapping the underlying error so
// errors.Is/As and the original message survive through the Error's
// Unwrap chain.
func classifyTransportError(ctx context.Context, err error) *Error {
	wrapped := errors.Wrap(err, "transport")
	switch ctx.Err() {
	case context.Canceled:
		return withErr(newError(KindCancelled, "Cancelled", err.Error()), wrapped)
	case context.DeadlineExceeded:
		return withErr(newError(KindTimeout, "Timeout", err.Error()), wrapped)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return withErr(newError(KindTimeout, "Timeout", err.Error()), wrapped)
	}
	return withErr(newError(KindNetwork, "Network", err.Error()), wrapped)
}
