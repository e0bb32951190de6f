package clients

import (
	"context"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/carol-node/cryptoutils"
	"github.com/ruteri/carol-node/executor"
	"github.com/ruteri/carol-node/httpserver"
	"github.com/ruteri/carol-node/interfaces"
	"github.com/ruteri/carol-node/internal/wasmtest"
	"github.com/ruteri/carol-node/kms"
	"github.com/ruteri/carol-node/registry"
	"github.com/ruteri/carol-node/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseDomain = "carol.example"

// startNode runs the full node stack behind an httptest server.
func startNode(t *testing.T) (*httptest.Server, *kms.SimpleKMS) {
	t.Helper()

	// Create logger with no output for tests
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	signer, err := kms.NewRandomKMS()
	require.NoError(t, err)

	reg := registry.New()
	exec, err := executor.New(context.Background(), executor.DefaultConfig(), reg, signer, logger, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = exec.Close(context.Background()) })

	// Machine labels never reach DNS, so the server address is unused.
	hosts, err := resolver.New(resolver.Config{BaseDomain: baseDomain, DNSServer: "127.0.0.1:1"}, logger)
	require.NoError(t, err)

	handler := httpserver.NewHandler(reg, exec, hosts, signer, logger)
	mux := chi.NewRouter()
	mux.Use(handler.HostRouting)
	handler.RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, signer
}

func signingGuest(t *testing.T) []byte {
	t.Helper()

	g := wasmtest.NewGuest()
	sign := g.Import("carol:machine/global", "bls-static-sign", 3)
	setPanic := g.Import("carol:machine/log", "set-panic-message", 2)
	msgPtr, msgLen := g.Static([]byte("refusing to sign"))

	response, err := interfaces.MarshalWire(interfaces.HTTPResponse{
		Status:  http.StatusOK,
		Headers: []interfaces.Header{{Name: "Content-Type", Value: "text/plain"}},
		Body:    []byte("hello from the machine"),
	})
	require.NoError(t, err)
	respPtr, respLen := g.Static(response)

	descriptors, err := interfaces.MarshalWire([]interfaces.ActivationDescriptor{{Name: "sign"}})
	require.NoError(t, err)
	descPtr, descLen := g.Static(descriptors)

	// An empty input panics, anything else is signed.
	return g.
		Activate(
			wasmtest.LocalGet(5),
			wasmtest.IfElseI32(
				wasmtest.Probe(sign, wasmtest.LocalGet(4), wasmtest.LocalGet(5)),
				wasmtest.Panic(setPanic, msgPtr, msgLen),
			),
		).
		HandleHTTP(wasmtest.ReturnStatic(respPtr, respLen)).
		DescribeAPI(wasmtest.ReturnStatic(descPtr, descLen)).
		Bytes()
}

func TestClient_EndToEnd(t *testing.T) {
	srv, signer := startNode(t)
	client := NewClient(srv.URL)
	ctx := context.Background()

	info, err := client.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(signer.PublicKey()), info.PublicKey)
	assert.Equal(t, baseDomain, info.BaseDomain)

	wasm := signingGuest(t)
	binaryID, created, err := client.UploadBinary(ctx, wasm)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, interfaces.NewBinaryID(wasm), binaryID)

	again, created, err := client.UploadBinary(ctx, wasm)
	require.NoError(t, err)
	assert.False(t, created, "second upload reports an existing binary")
	assert.Equal(t, binaryID, again)

	ok, err := client.HasBinary(ctx, binaryID)
	require.NoError(t, err)
	assert.True(t, ok)

	description, err := client.DescribeBinary(ctx, binaryID)
	require.NoError(t, err)
	assert.Contains(t, description.Activations, "sign")

	machine, created, err := client.CreateMachine(ctx, binaryID, []byte{})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, interfaces.NewMachineID(binaryID, nil), machine.ID)
	assert.Equal(t, resolver.LabelForMachine(machine.ID)+"."+baseDomain, machine.Host)

	same, created, err := client.CreateMachine(ctx, binaryID, []byte{})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, machine.ID, same.ID)

	record, err := client.GetMachine(ctx, machine.ID)
	require.NoError(t, err)
	assert.Equal(t, binaryID, record.BinaryID)
	assert.Empty(t, record.Params)

	msg := []byte("attest this")
	sig, err := client.Activate(ctx, machine.ID, "sign", msg)
	require.NoError(t, err)

	pubkey, err := hex.DecodeString(info.PublicKey)
	require.NoError(t, err)
	assert.True(t, cryptoutils.VerifyBLS(pubkey, machine.ID, msg, sig))
	other := interfaces.NewMachineID(binaryID, []byte("other"))
	assert.False(t, cryptoutils.VerifyBLS(pubkey, other, msg, sig))

	_, err = client.Activate(ctx, machine.ID, "sign", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "refusing to sign", apiErr.Message)
	assert.NotEmpty(t, apiErr.Backtrace)
}

func TestClient_Errors(t *testing.T) {
	srv, _ := startNode(t)
	client := NewClient(srv.URL + "/")
	ctx := context.Background()

	_, _, err := client.UploadBinary(ctx, []byte("not wasm"))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "invalid WASM binary")

	missing := interfaces.NewBinaryID([]byte("missing"))
	ok, err := client.HasBinary(ctx, missing)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = client.CreateMachine(ctx, missing, nil)
	require.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = client.GetMachine(ctx, interfaces.MachineID{})
	require.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = client.Activate(ctx, interfaces.MachineID{}, "x", nil)
	require.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestMachineHost(t *testing.T) {
	srv, _ := startNode(t)
	client := NewClient(srv.URL)
	ctx := context.Background()

	binaryID, _, err := client.UploadBinary(ctx, signingGuest(t))
	require.NoError(t, err)
	machine, _, err := client.CreateMachine(ctx, binaryID, []byte("params"))
	require.NoError(t, err)

	get := func(host, path string) *http.Response {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+path, nil)
		require.NoError(t, err)
		req.Host = host
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	resp := get(machine.Host, "/any/path")
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	assert.Equal(t, "hello from the machine", string(body))

	resp = get(baseDomain, "/machines/"+machine.ID.String()+"/http/page")
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get("localhost", "/binaries/"+binaryID.String())
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
