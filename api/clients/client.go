package clients

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ruteri/carol-node/api"
	"github.com/ruteri/carol-node/interfaces"
)

// APIError is a non-success response from the node.
type APIError struct {
	StatusCode int
	Message    string
	Backtrace  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("node returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets callers test for interfaces.ErrNotFound.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return interfaces.ErrNotFound
	}
	return nil
}

type Client struct {
	BaseURL string
	Client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Client:  http.DefaultClient,
	}
}

// Info returns the node's public key and base domain.
func (c *Client) Info(ctx context.Context) (*api.RootInfo, error) {
	var info api.RootInfo
	if _, err := c.doJSON(ctx, http.MethodGet, "/", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// UploadBinary uploads wasm and reports whether the node created it or
// already had it.
func (c *Client) UploadBinary(ctx context.Context, wasm []byte) (id interfaces.BinaryID, created bool, err error) {
	var resp api.BinaryCreated
	status, err := c.doJSON(ctx, http.MethodPost, "/binaries", wasm, &resp)
	if err != nil {
		return interfaces.BinaryID{}, false, err
	}
	return resp.ID, status == http.StatusCreated, nil
}

// HasBinary reports whether the node holds the binary.
func (c *Client) HasBinary(ctx context.Context, id interfaces.BinaryID) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, "/binaries/"+id.String(), nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, decodeError(resp)
	}
}

// CreateMachine binds binary to params.
func (c *Client) CreateMachine(ctx context.Context, binary interfaces.BinaryID, params []byte) (machine *api.MachineCreated, created bool, err error) {
	var resp api.MachineCreated
	status, err := c.doJSON(ctx, http.MethodPost, "/binaries/"+binary.String(), params, &resp)
	if err != nil {
		return nil, false, err
	}
	return &resp, status == http.StatusCreated, nil
}

func (c *Client) GetMachine(ctx context.Context, id interfaces.MachineID) (*interfaces.MachineRecord, error) {
	var resp api.GetMachine
	if _, err := c.doJSON(ctx, http.MethodGet, "/machines/"+id.String(), nil, &resp); err != nil {
		return nil, err
	}
	params, err := hex.DecodeString(resp.Params)
	if err != nil {
		return nil, fmt.Errorf("could not decode machine params: %w", err)
	}
	return &interfaces.MachineRecord{BinaryID: resp.BinaryID, Params: params}, nil
}

func (c *Client) DescribeBinary(ctx context.Context, id interfaces.BinaryID) (*api.BinaryDescription, error) {
	var resp api.BinaryDescription
	if _, err := c.doJSON(ctx, http.MethodGet, "/binaries/"+id.String()+"/api", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Activate runs the named activation on a machine and returns its raw output.
func (c *Client) Activate(ctx context.Context, machine interfaces.MachineID, name string, input []byte) ([]byte, error) {
	path := "/machines/" + machine.String() + "/activate/" + url.PathEscape(name)
	resp, err := c.do(ctx, http.MethodPost, path, input)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("could not initialize request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not reach node: %w", err)
	}
	return resp, nil
}

// doJSON accepts 200 and 201 and decodes the body into out.
func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, out any) (int, error) {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return resp.StatusCode, decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("could not parse node response: %w", err)
	}
	return resp.StatusCode, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErr.Message = err.Error()
		return apiErr
	}

	var problem api.ProblemBody
	if json.Unmarshal(body, &problem) == nil && problem.Error != "" {
		apiErr.Message = problem.Error
		apiErr.Backtrace = problem.Backtrace
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
