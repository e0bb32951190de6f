package guest

import (
	"net/http"
	"testing"

	"github.com/ruteri/carol-node/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter() *Machine {
	m := New()
	m.Route(http.MethodGet, "/", func(c *Call, r *Request) interfaces.HTTPResponse {
		return HTMLResponse("<h1>index</h1>")
	})
	m.Route(http.MethodGet, "/items/{id}", func(c *Call, r *Request) interfaces.HTTPResponse {
		return TextResponse(http.StatusOK, "item "+r.Vars["id"]+" sort="+r.Query.Get("sort"))
	})
	m.Route("put", "/items/{id}", func(c *Call, r *Request) interfaces.HTTPResponse {
		return TextResponse(http.StatusAccepted, r.Header("x-token")+":"+string(r.Body))
	})
	m.Route(http.MethodPost, "/items/{id}", func(c *Call, r *Request) interfaces.HTTPResponse {
		return TextResponse(http.StatusCreated, string(c.Params))
	})
	return m
}

func header(resp interfaces.HTTPResponse, name string) string {
	for _, h := range resp.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

func TestRouter_Dispatch(t *testing.T) {
	m := testRouter()
	host := &fakeHost{}

	tests := []struct {
		name   string
		req    interfaces.HTTPRequest
		status uint16
		body   string
	}{
		{
			name:   "index",
			req:    interfaces.HTTPRequest{Method: http.MethodGet, URI: "/"},
			status: http.StatusOK,
			body:   "<h1>index</h1>",
		},
		{
			name:   "path variable and query",
			req:    interfaces.HTTPRequest{Method: http.MethodGet, URI: "/items/42?sort=asc"},
			status: http.StatusOK,
			body:   "item 42 sort=asc",
		},
		{
			name:   "trailing slash",
			req:    interfaces.HTTPRequest{Method: http.MethodGet, URI: "/items/7/"},
			status: http.StatusOK,
			body:   "item 7 sort=",
		},
		{
			name: "headers and body",
			req: interfaces.HTTPRequest{
				Method:  http.MethodPut,
				URI:     "/items/1",
				Headers: []interfaces.Header{{Name: "X-Token", Value: "t"}},
				Body:    []byte("payload"),
			},
			status: http.StatusAccepted,
			body:   "t:payload",
		},
		{
			name:   "params",
			req:    interfaces.HTTPRequest{Method: http.MethodPost, URI: "/items/1"},
			status: http.StatusCreated,
			body:   "params",
		},
		{
			name:   "unknown path",
			req:    interfaces.HTTPRequest{Method: http.MethodGet, URI: "/items"},
			status: http.StatusNotFound,
			body:   "not found",
		},
		{
			name:   "malformed uri",
			req:    interfaces.HTTPRequest{Method: http.MethodGet, URI: "items"},
			status: http.StatusBadRequest,
			body:   "malformed request URI",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := m.HandleHTTP(host, []byte("params"), tt.req)
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.body, string(resp.Body))
		})
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	m := testRouter()

	resp := m.HandleHTTP(&fakeHost{}, nil, interfaces.HTTPRequest{Method: http.MethodDelete, URI: "/items/3"})
	require.Equal(t, uint16(http.StatusMethodNotAllowed), resp.Status)
	assert.Equal(t, "GET, PUT, POST", header(resp, "Allow"))
}

func TestRouter_NoRoutes(t *testing.T) {
	resp := New().HandleHTTP(&fakeHost{}, nil, interfaces.HTTPRequest{Method: http.MethodGet, URI: "/"})
	assert.Equal(t, uint16(http.StatusNotFound), resp.Status)
	assert.Equal(t, "text/plain; charset=utf-8", header(resp, "Content-Type"))
}
