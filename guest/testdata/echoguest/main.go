// Command echoguest is a small machine used by the guest integration test.
package main

import (
	"errors"
	"net/http"

	"github.com/ruteri/carol-node/guest"
	"github.com/ruteri/carol-node/interfaces"
)

func init() {
	m := guest.New()

	guest.Register(m, "echo", func(c *guest.Call, name string, in string) (string, error) {
		return name + ": " + in, nil
	})
	m.HandleActivation("raw-echo", func(c *guest.Call, input []byte) ([]byte, error) {
		return input, nil
	})
	m.HandleActivation("fail", func(c *guest.Call, input []byte) ([]byte, error) {
		return nil, errors.New("refusing " + string(input))
	})
	m.HandleActivation("sign", func(c *guest.Call, input []byte) ([]byte, error) {
		return c.Host.Sign(input)
	})

	m.Route(http.MethodGet, "/self", func(c *guest.Call, r *guest.Request) interfaces.HTTPResponse {
		out, err := c.Host.SelfActivate("raw-echo", []byte("from http"))
		if err != nil {
			return guest.TextResponse(http.StatusInternalServerError, err.Error())
		}
		return guest.TextResponse(http.StatusOK, string(out))
	})
	m.Route(http.MethodGet, "/sign", func(c *guest.Call, r *guest.Request) interfaces.HTTPResponse {
		_, err := c.Host.Sign([]byte("x"))
		var capErr *guest.CapabilityError
		if errors.As(err, &capErr) && capErr.Status == guest.StatusUnavailable {
			return guest.TextResponse(http.StatusForbidden, "signing unavailable")
		}
		return guest.TextResponse(http.StatusInternalServerError, "signing should be unavailable")
	})

	guest.Serve(m)
}

func main() {}
