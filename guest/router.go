package guest

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/ruteri/carol-node/interfaces"
)

// Request is an inbound HTTP request with its matched path variables.
type Request struct {
	interfaces.HTTPRequest
	Path  string
	Query url.Values
	Vars  map[string]string
}

// Header returns the first value of the named header, case-insensitively.
func (r *Request) Header(name string) string {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

type HandlerFunc func(c *Call, r *Request) interfaces.HTTPResponse

type route struct {
	method   string
	segments []string
	handler  HandlerFunc
}

type router struct {
	routes []route
}

// Route registers handler for method and pattern. Pattern segments written
// as {name} match any single segment and are available in Request.Vars.
func (m *Machine) Route(method, pattern string, handler HandlerFunc) {
	m.router.routes = append(m.router.routes, route{
		method:   strings.ToUpper(method),
		segments: splitPath(pattern),
		handler:  handler,
	})
}

// HandleHTTP dispatches req to the first matching route. Unmatched paths
// answer 404 and paths matched under another method answer 405.
func (m *Machine) HandleHTTP(host Host, params []byte, req interfaces.HTTPRequest) interfaces.HTTPResponse {
	u, err := url.ParseRequestURI(req.URI)
	if err != nil {
		return TextResponse(http.StatusBadRequest, "malformed request URI")
	}

	segments := splitPath(u.Path)
	var allowed []string
	for _, rt := range m.router.routes {
		vars, ok := rt.match(segments)
		if !ok {
			continue
		}
		if rt.method != req.Method {
			allowed = append(allowed, rt.method)
			continue
		}
		return rt.handler(&Call{Host: host, Params: params}, &Request{
			HTTPRequest: req,
			Path:        u.Path,
			Query:       u.Query(),
			Vars:        vars,
		})
	}

	if len(allowed) > 0 {
		resp := TextResponse(http.StatusMethodNotAllowed, "method not allowed")
		resp.Headers = append(resp.Headers, interfaces.Header{Name: "Allow", Value: strings.Join(allowed, ", ")})
		return resp
	}
	return TextResponse(http.StatusNotFound, "not found")
}

func (rt route) match(segments []string) (map[string]string, bool) {
	if len(segments) != len(rt.segments) {
		return nil, false
	}
	vars := map[string]string{}
	for i, want := range rt.segments {
		if name, ok := strings.CutPrefix(want, "{"); ok && strings.HasSuffix(name, "}") {
			vars[strings.TrimSuffix(name, "}")] = segments[i]
			continue
		}
		if want != segments[i] {
			return nil, false
		}
	}
	return vars, true
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// TextResponse is a plain text response.
func TextResponse(status int, body string) interfaces.HTTPResponse {
	return interfaces.HTTPResponse{
		Status:  uint16(status),
		Headers: []interfaces.Header{{Name: "Content-Type", Value: "text/plain; charset=utf-8"}},
		Body:    []byte(body),
	}
}

// HTMLResponse is a 200 HTML page.
func HTMLResponse(body string) interfaces.HTTPResponse {
	return interfaces.HTTPResponse{
		Status:  http.StatusOK,
		Headers: []interfaces.Header{{Name: "Content-Type", Value: "text/html; charset=utf-8"}},
		Body:    []byte(body),
	}
}
