package httpserver

import (
	"fmt"
	"maps"
	"net/http"
	"slices"

	"github.com/ruteri/carol-node/executor"
	"github.com/ruteri/carol-node/interfaces"
	"github.com/ruteri/carol-node/resolver"
)

// HostRouting classifies each request by its Host header. API hosts reach
// next, machine hosts are forwarded to the machine with the full path and
// any other host is answered with 421 Misdirected Request.
func (h *Handler) HostRouting(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, err := h.hosts.Resolve(r.Context(), r.Host)
		if err != nil {
			h.metrics.ObserveResolution("error")
			h.writeProblem(w, r, internalServerError(fmt.Errorf("resolving host %q: %w", r.Host, err)))
			return
		}
		h.metrics.ObserveResolution(res.Kind.String())

		switch res.Kind {
		case resolver.KindAPI:
			next.ServeHTTP(w, r)
		case resolver.KindMachine:
			record, binary, p := h.machine(res.Machine, r.URL.Path)
			if p != nil {
				h.writeProblem(w, r, p)
				return
			}
			h.forward(w, r, record, binary, r.URL.EscapedPath())
		default:
			h.writeProblem(w, r, misdirected(r.Host))
		}
	})
}

// forward hands the request to the guest's handle-http entry point under
// path and writes the guest's response back unchanged.
func (h *Handler) forward(w http.ResponseWriter, r *http.Request, record interfaces.MachineRecord, binary *executor.CompiledBinary, path string) {
	body, p := h.readBody(w, r)
	if p != nil {
		h.writeProblem(w, r, p)
		return
	}

	uri := path
	if r.URL.RawQuery != "" {
		uri += "?" + r.URL.RawQuery
	}

	resp, err := h.engine.HandleHTTP(r.Context(), binary, record.Params, interfaces.HTTPRequest{
		Method:  r.Method,
		URI:     uri,
		Headers: requestHeaders(r),
		Body:    body,
	})
	if err != nil {
		h.writeProblem(w, r, guestProblem(err))
		return
	}

	for _, header := range resp.Headers {
		w.Header().Add(header.Name, header.Value)
	}
	w.WriteHeader(int(resp.Status))
	if _, err := w.Write(resp.Body); err != nil {
		h.log.Debug("could not write guest response", "err", err)
	}
}

// requestHeaders flattens the inbound headers in name order, Host first.
func requestHeaders(r *http.Request) []interfaces.Header {
	headers := make([]interfaces.Header, 0, len(r.Header)+1)
	if r.Host != "" {
		headers = append(headers, interfaces.Header{Name: "Host", Value: r.Host})
	}
	for _, name := range slices.Sorted(maps.Keys(r.Header)) {
		for _, value := range r.Header[name] {
			headers = append(headers, interfaces.Header{Name: name, Value: value})
		}
	}
	return headers
}
