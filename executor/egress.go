package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/ruteri/carol-node/interfaces"
	"golang.org/x/net/http/httpguts"
)

// egress performs an outbound HTTP request on behalf of a guest. Failures
// are returned as *CapabilityError so the guest can tell its own mistakes
// from transport problems.
func (e *Executor) egress(ctx context.Context, req interfaces.HTTPRequest) (interfaces.HTTPResponse, error) {
	const capability = "http.execute"

	u, err := url.Parse(req.URI)
	if err != nil {
		return interfaces.HTTPResponse{}, capabilityError(StatusInvalidURL, capability, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return interfaces.HTTPResponse{}, capabilityError(StatusInvalidURL, capability, fmt.Errorf("unsupported url %q", req.URI))
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(req.Body))
	if err != nil {
		return interfaces.HTTPResponse{}, capabilityError(StatusUnexpected, capability, err)
	}
	for _, h := range req.Headers {
		if !httpguts.ValidHeaderFieldName(h.Name) || !httpguts.ValidHeaderFieldValue(h.Value) {
			return interfaces.HTTPResponse{}, capabilityError(StatusInvalidHeader, capability, fmt.Errorf("header %q", h.Name))
		}
		if strings.EqualFold(h.Name, "Host") {
			httpReq.Host = h.Value
			continue
		}
		httpReq.Header.Add(h.Name, h.Value)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return interfaces.HTTPResponse{}, capabilityError(transportStatus(err), capability, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.cfg.MaxEgressResponseBytes+1))
	if err != nil {
		return interfaces.HTTPResponse{}, capabilityError(transportStatus(err), capability, err)
	}
	if int64(len(body)) > e.cfg.MaxEgressResponseBytes {
		return interfaces.HTTPResponse{}, capabilityError(StatusUnexpected, capability,
			fmt.Errorf("response body exceeds %d bytes", e.cfg.MaxEgressResponseBytes))
	}

	headers := make([]interfaces.Header, 0, len(resp.Header))
	for _, name := range slices.Sorted(maps.Keys(resp.Header)) {
		for _, value := range resp.Header[name] {
			headers = append(headers, interfaces.Header{Name: name, Value: value})
		}
	}

	return interfaces.HTTPResponse{
		Status:  uint16(resp.StatusCode),
		Headers: headers,
		Body:    body,
	}, nil
}

func transportStatus(err error) CapabilityStatus {
	if errors.Is(err, context.DeadlineExceeded) {
		return StatusTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return StatusTimeout
	}
	return StatusConnection
}
