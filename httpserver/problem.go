package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ruteri/carol-node/executor"
)

// Problem is an error response. Message is shown to the client, Err is the
// host-side cause and is only logged.
type Problem struct {
	Status  int
	Message string
	Err     error
	Headers map[string]string
	Fields  map[string]string
}

func (p *Problem) Error() string {
	if p.Err != nil {
		return p.Err.Error()
	}
	return p.Message
}

func (p *Problem) Unwrap() error { return p.Err }

func newProblem(status int, message string, err error) *Problem {
	return &Problem{Status: status, Message: message, Err: err}
}

func badRequest(message string, err error) *Problem {
	return newProblem(http.StatusBadRequest, message, err)
}

func internalServerError(err error) *Problem {
	return newProblem(http.StatusInternalServerError, "internal server error", err)
}

func notFound(path string) *Problem {
	return newProblem(http.StatusNotFound, path+" not found", fmt.Errorf("resource not found: %s", path))
}

func methodNotAllowed(path, method string, allowed []string) *Problem {
	p := newProblem(
		http.StatusMethodNotAllowed,
		fmt.Sprintf("HTTP method %s not supported on %s", method, path),
		fmt.Errorf("HTTP method %s called on %s but it's not supported", method, path),
	)
	p.Headers = map[string]string{"Allow": strings.Join(allowed, ", ")}
	return p
}

func invalidPathElement(value, kind string, err error) *Problem {
	return badRequest(fmt.Sprintf("path element %s is not a valid %s", value, kind), err)
}

func misdirected(host string) *Problem {
	return newProblem(
		http.StatusMisdirectedRequest,
		fmt.Sprintf("%s is not served by this node", host),
		fmt.Errorf("host %q resolved to neither the API nor a machine", host),
	)
}

func bodyProblem(err error) *Problem {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return newProblem(
			http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			err,
		)
	}
	return badRequest(fmt.Sprintf("unable to read request body: %s", err), err)
}

// guestProblem maps a failed guest call. Panics are the guest's own
// diagnosis and go back to the client with their backtrace; anything else
// is a host fault.
func guestProblem(err error) *Problem {
	var panicErr *executor.PanicError
	if errors.As(err, &panicErr) {
		p := badRequest(panicErr.Message, err)
		if panicErr.Backtrace != "" {
			p.Fields = map[string]string{"backtrace": panicErr.Backtrace}
		}
		return p
	}
	return internalServerError(err)
}

func (p *Problem) body() map[string]string {
	body := make(map[string]string, len(p.Fields)+1)
	for k, v := range p.Fields {
		body[k] = v
	}
	body["error"] = p.Message
	return body
}
