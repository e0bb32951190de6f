package guest_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/ruteri/carol-node/cryptoutils"
	"github.com/ruteri/carol-node/executor"
	"github.com/ruteri/carol-node/interfaces"
	"github.com/ruteri/carol-node/kms"
	"github.com/ruteri/carol-node/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildEchoGuest compiles testdata/echoguest as a wasip1 reactor. It needs a
// Go toolchain on PATH and is only run with CAROL_GUEST_INTEGRATION=1.
func buildEchoGuest(t *testing.T) []byte {
	t.Helper()
	if os.Getenv("CAROL_GUEST_INTEGRATION") != "1" {
		t.Skip("set CAROL_GUEST_INTEGRATION=1 to build and run a wasip1 guest")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go toolchain not found")
	}

	out := filepath.Join(t.TempDir(), "echoguest.wasm")
	cmd := exec.Command(goBin, "build", "-buildmode=c-shared", "-o", out, "./testdata/echoguest")
	cmd.Env = append(os.Environ(), "GOOS=wasip1", "GOARCH=wasm")
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, string(output))

	wasm, err := os.ReadFile(out)
	require.NoError(t, err)
	return wasm
}

func TestWasip1Guest(t *testing.T) {
	wasm := buildEchoGuest(t)
	ctx := context.Background()

	// Create logger with no output for tests
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	signer, err := kms.NewRandomKMS()
	require.NoError(t, err)

	reg := registry.New()
	engine, err := executor.New(ctx, executor.DefaultConfig(), reg, signer, logger, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close(ctx) })

	binary, err := engine.Load(ctx, wasm)
	require.NoError(t, err)
	reg.InsertBinary(binary)
	params, err := interfaces.MarshalWire("node")
	require.NoError(t, err)
	machine, _, err := reg.InsertMachine(binary.ID(), params)
	require.NoError(t, err)

	t.Run("typed activation", func(t *testing.T) {
		input, err := interfaces.MarshalWire("hello")
		require.NoError(t, err)
		out, err := engine.Activate(ctx, binary, params, "echo", input)
		require.NoError(t, err)

		var got string
		require.NoError(t, interfaces.UnmarshalWire(out, &got))
		assert.Equal(t, "node: hello", got)
	})

	t.Run("error reported as panic", func(t *testing.T) {
		_, err := engine.Activate(ctx, binary, params, "fail", []byte("input"))
		var panicErr *executor.PanicError
		require.ErrorAs(t, err, &panicErr)
		assert.Contains(t, panicErr.Message, "refusing input")
	})

	t.Run("unknown activation", func(t *testing.T) {
		_, err := engine.Activate(ctx, binary, params, "missing", nil)
		var panicErr *executor.PanicError
		require.ErrorAs(t, err, &panicErr)
		assert.Contains(t, panicErr.Message, `no activation named "missing"`)
	})

	t.Run("signing", func(t *testing.T) {
		sig, err := engine.Activate(ctx, binary, params, "sign", []byte("message"))
		require.NoError(t, err)
		assert.True(t, cryptoutils.VerifyBLS(signer.PublicKey(), machine, []byte("message"), sig))
	})

	t.Run("http with self activation", func(t *testing.T) {
		resp, err := engine.HandleHTTP(ctx, binary, params, interfaces.HTTPRequest{Method: http.MethodGet, URI: "/self"})
		require.NoError(t, err)
		assert.Equal(t, uint16(http.StatusOK), resp.Status)
		assert.Equal(t, "from http", string(resp.Body))
	})

	t.Run("http has no signing", func(t *testing.T) {
		resp, err := engine.HandleHTTP(ctx, binary, params, interfaces.HTTPRequest{Method: http.MethodGet, URI: "/sign"})
		require.NoError(t, err)
		assert.Equal(t, uint16(http.StatusForbidden), resp.Status)
	})

	t.Run("http not found", func(t *testing.T) {
		resp, err := engine.HandleHTTP(ctx, binary, params, interfaces.HTTPRequest{Method: http.MethodGet, URI: "/nothing"})
		require.NoError(t, err)
		assert.Equal(t, uint16(http.StatusNotFound), resp.Status)
	})

	t.Run("describe", func(t *testing.T) {
		descriptors, err := engine.DescribeAPI(ctx, binary)
		require.NoError(t, err)
		assert.Equal(t, []interfaces.ActivationDescriptor{
			{Name: "echo"}, {Name: "fail"}, {Name: "raw-echo"}, {Name: "sign"},
		}, descriptors)
	})
}
