package executor

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ruteri/carol-node/interfaces"
	"github.com/ruteri/carol-node/internal/wasmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func egressGuest() *wasmtest.Guest {
	g := wasmtest.NewGuest()
	execute := g.Import(moduleHTTP, "execute", 3)
	return g.Activate(wasmtest.Probe(execute, wasmtest.LocalGet(4), wasmtest.LocalGet(5)))
}

func encodeRequest(t *testing.T, req interfaces.HTTPRequest) []byte {
	t.Helper()
	b, err := interfaces.MarshalWire(req)
	require.NoError(t, err)
	return b
}

func TestEgress_FromActivation(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Method", r.Method)
		w.Header().Set("X-Token", r.Header.Get("X-Token"))
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write(append([]byte("got "), body...))
	}))
	defer upstream.Close()

	e := newTestEngine(t, DefaultConfig())
	b := e.load(t, egressGuest())

	input := encodeRequest(t, interfaces.HTTPRequest{
		Method:  "post",
		URI:     upstream.URL + "/quote",
		Headers: []interfaces.Header{{Name: "X-Token", Value: "secret"}},
		Body:    []byte("payload"),
	})
	out, err := e.Activate(context.Background(), b, nil, "fetch", input)
	require.NoError(t, err)

	var resp interfaces.HTTPResponse
	require.NoError(t, interfaces.UnmarshalWire(out, &resp))
	assert.Equal(t, uint16(http.StatusAccepted), resp.Status)
	assert.Equal(t, "got payload", string(resp.Body))
	assert.Contains(t, resp.Headers, interfaces.Header{Name: "X-Method", Value: "POST"})
	assert.Contains(t, resp.Headers, interfaces.Header{Name: "X-Token", Value: "secret"})
}

func TestEgress_TypedFailures(t *testing.T) {
	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer slow.Close()

	cfg := DefaultConfig()
	cfg.EgressTimeout = 200 * time.Millisecond
	e := newTestEngine(t, cfg)
	b := e.load(t, egressGuest())

	testCases := []struct {
		name   string
		input  []byte
		status CapabilityStatus
	}{
		{
			name:   "relative url",
			input:  encodeRequest(t, interfaces.HTTPRequest{Method: "GET", URI: "/no-host"}),
			status: StatusInvalidURL,
		},
		{
			name:   "unsupported scheme",
			input:  encodeRequest(t, interfaces.HTTPRequest{Method: "GET", URI: "ftp://example.com/"}),
			status: StatusInvalidURL,
		},
		{
			name: "invalid header",
			input: encodeRequest(t, interfaces.HTTPRequest{
				Method:  "GET",
				URI:     closedURL,
				Headers: []interfaces.Header{{Name: "Bad Header", Value: "x"}},
			}),
			status: StatusInvalidHeader,
		},
		{
			name:   "connection refused",
			input:  encodeRequest(t, interfaces.HTTPRequest{Method: "GET", URI: closedURL}),
			status: StatusConnection,
		},
		{
			name:   "timeout",
			input:  encodeRequest(t, interfaces.HTTPRequest{Method: "GET", URI: slow.URL}),
			status: StatusTimeout,
		},
		{
			name:   "malformed request",
			input:  []byte{0xff},
			status: StatusUnexpected,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := e.Activate(context.Background(), b, nil, "fetch", tc.input)
			require.NoError(t, err)
			assert.Equal(t, statusBytes(tc.status), out)
		})
	}
}

func TestEgress_ResponseLimit(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 64))
	}))
	defer upstream.Close()

	cfg := DefaultConfig()
	cfg.MaxEgressResponseBytes = 16
	e := newTestEngine(t, cfg)

	_, err := e.egress(context.Background(), interfaces.HTTPRequest{URI: upstream.URL})
	var capErr *CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, StatusUnexpected, capErr.Status)
}
