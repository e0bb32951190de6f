package httpserver

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/carol-node/api"
	"github.com/ruteri/carol-node/executor"
	"github.com/ruteri/carol-node/interfaces"
	"github.com/ruteri/carol-node/metrics"
	"github.com/ruteri/carol-node/resolver"
)

// Registry is the binary and machine store behind the API.
type Registry interface {
	GetBinary(id interfaces.BinaryID) (*executor.CompiledBinary, error)
	HasBinary(id interfaces.BinaryID) bool
	InsertBinary(binary *executor.CompiledBinary) (existed bool)
	GetMachine(id interfaces.MachineID) (interfaces.MachineRecord, error)
	InsertMachine(binaryID interfaces.BinaryID, params []byte) (id interfaces.MachineID, existed bool, err error)
}

// Engine loads and runs guest binaries.
type Engine interface {
	Load(ctx context.Context, wasm []byte) (*executor.CompiledBinary, error)
	Activate(ctx context.Context, binary *executor.CompiledBinary, params []byte, name string, input []byte) ([]byte, error)
	HandleHTTP(ctx context.Context, binary *executor.CompiledBinary, params []byte, req interfaces.HTTPRequest) (interfaces.HTTPResponse, error)
	DescribeAPI(ctx context.Context, binary *executor.CompiledBinary) ([]interfaces.ActivationDescriptor, error)
}

// HostResolver classifies request hosts.
type HostResolver interface {
	Resolve(ctx context.Context, host string) (resolver.Resolution, error)
	BaseDomain() string
	MachineHost(id interfaces.MachineID) string
}

// Handler serves the node API and forwards machine traffic to guests.
type Handler struct {
	registry     Registry
	engine       Engine
	hosts        HostResolver
	signer       interfaces.StaticSigner
	maxBodyBytes int64
	metrics      *metrics.HTTPMetrics
	log          *slog.Logger
}

func NewHandler(registry Registry, engine Engine, hosts HostResolver, signer interfaces.StaticSigner, log *slog.Logger) *Handler {
	return &Handler{
		registry:     registry,
		engine:       engine,
		hosts:        hosts,
		signer:       signer,
		maxBodyBytes: api.DefaultMaxBodyBytes,
		log:          log,
	}
}

// WithMaxBodyBytes caps request bodies. Non-positive values keep the default.
func (h *Handler) WithMaxBodyBytes(n int64) *Handler {
	if n > 0 {
		h.maxBodyBytes = n
	}
	return h
}

func (h *Handler) WithMetrics(m *metrics.HTTPMetrics) *Handler {
	h.metrics = m
	return h
}

type methods map[string]http.HandlerFunc

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeProblem(w, r, notFound(r.URL.Path))
	})

	r.HandleFunc("/", h.route(methods{http.MethodGet: h.HandleRoot}))
	r.HandleFunc("/index.html", h.route(methods{http.MethodGet: h.HandleRoot}))

	r.HandleFunc("/binaries", h.route(methods{http.MethodPost: h.HandleUploadBinary}))
	r.HandleFunc("/binaries/{binary_id}", h.route(methods{
		http.MethodGet:  h.HandleGetBinary,
		http.MethodPost: h.HandleCreateMachine,
	}))
	r.HandleFunc("/binaries/{binary_id}/api", h.route(methods{http.MethodGet: h.HandleDescribeBinary}))

	r.HandleFunc("/machines", h.route(methods{}))
	r.HandleFunc("/machines/{machine_id}", h.route(methods{
		http.MethodGet:  h.HandleGetMachine,
		http.MethodPost: h.HandleActivate,
	}))
	r.HandleFunc("/machines/{machine_id}/activate/{activation}", h.route(methods{http.MethodPost: h.HandleActivate}))
	r.HandleFunc("/machines/{machine_id}/http", h.HandleMachineHTTPRedirect)
	r.HandleFunc("/machines/{machine_id}/http/*", h.HandleMachineHTTP)
}

// route dispatches on the request method and answers anything else with
// 405 and an Allow header listing allowed.
func (h *Handler) route(allowed methods) http.HandlerFunc {
	names := slices.Sorted(maps.Keys(allowed))
	return func(w http.ResponseWriter, r *http.Request) {
		if fn, ok := allowed[r.Method]; ok {
			fn(w, r)
			return
		}
		h.writeProblem(w, r, methodNotAllowed(r.URL.Path, r.Method, names))
	}
}

// HandleRoot describes the node: its static public key and base domain.
//
// URL format: GET /
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, api.RootInfo{
		PublicKey:  hex.EncodeToString(h.signer.PublicKey()),
		BaseDomain: h.hosts.BaseDomain(),
	})
}

// HandleUploadBinary validates, compiles and stores a binary. Uploading the
// same bytes again returns the existing id without recompiling.
//
// URL format: POST /binaries
// Request body: raw WebAssembly bytes
func (h *Handler) HandleUploadBinary(w http.ResponseWriter, r *http.Request) {
	body, p := h.readBody(w, r)
	if p != nil {
		h.writeProblem(w, r, p)
		return
	}

	id := interfaces.NewBinaryID(body)
	log := h.log.With("binary_id", id.String())
	location := "/binaries/" + id.String()

	if h.registry.HasBinary(id) {
		log.Debug("already existing binary ignored")
		h.writeCreated(w, http.StatusOK, location, api.BinaryCreated{ID: id})
		return
	}

	compiled, err := h.engine.Load(r.Context(), body)
	if err != nil {
		var loadErr *executor.LoadError
		if errors.As(err, &loadErr) {
			h.writeProblem(w, r, badRequest(fmt.Sprintf("invalid WASM binary with id %s: %s", id, err), err))
			return
		}
		h.writeProblem(w, r, internalServerError(err))
		return
	}

	status := http.StatusCreated
	if h.registry.InsertBinary(compiled) {
		status = http.StatusOK
	} else {
		log.Info("new binary uploaded", "size", len(body))
	}
	h.writeCreated(w, status, location, api.BinaryCreated{ID: id})
}

// HandleGetBinary answers 204 when the binary exists.
//
// URL format: GET /binaries/{binary_id}
func (h *Handler) HandleGetBinary(w http.ResponseWriter, r *http.Request) {
	id, p := parseBinaryID(r)
	if p != nil {
		h.writeProblem(w, r, p)
		return
	}
	if !h.registry.HasBinary(id) {
		h.writeProblem(w, r, notFound(r.URL.Path))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCreateMachine binds a binary to the request body as params.
// Creating the same machine again returns the existing id.
//
// URL format: POST /binaries/{binary_id}
// Request body: raw params
func (h *Handler) HandleCreateMachine(w http.ResponseWriter, r *http.Request) {
	binaryID, p := parseBinaryID(r)
	if p != nil {
		h.writeProblem(w, r, p)
		return
	}
	if !h.registry.HasBinary(binaryID) {
		h.writeProblem(w, r, notFound(r.URL.Path))
		return
	}

	params, p := h.readBody(w, r)
	if p != nil {
		h.writeProblem(w, r, p)
		return
	}

	id, existed, err := h.registry.InsertMachine(binaryID, params)
	if errors.Is(err, interfaces.ErrNotFound) {
		h.writeProblem(w, r, notFound(r.URL.Path))
		return
	} else if err != nil {
		h.writeProblem(w, r, internalServerError(err))
		return
	}

	status := http.StatusOK
	if !existed {
		status = http.StatusCreated
		h.log.Info("machine created", "machine_id", id.String(), "binary_id", binaryID.String())
	}
	h.writeCreated(w, status, "/machines/"+id.String(), api.MachineCreated{
		ID:   id,
		Host: h.hosts.MachineHost(id),
	})
}

// HandleDescribeBinary lists the activations a binary exposes.
//
// URL format: GET /binaries/{binary_id}/api
func (h *Handler) HandleDescribeBinary(w http.ResponseWriter, r *http.Request) {
	id, p := parseBinaryID(r)
	if p != nil {
		h.writeProblem(w, r, p)
		return
	}
	binary, err := h.registry.GetBinary(id)
	if err != nil {
		h.writeProblem(w, r, notFound(r.URL.Path))
		return
	}

	descriptors, err := h.engine.DescribeAPI(r.Context(), binary)
	if err != nil {
		h.writeProblem(w, r, guestProblem(err))
		return
	}

	description := api.BinaryDescription{Activations: make(map[string]api.ActivationDescription, len(descriptors))}
	for _, d := range descriptors {
		description.Activations[d.Name] = api.ActivationDescription{}
	}
	h.writeJSON(w, http.StatusOK, description)
}

// HandleGetMachine returns the binary and params of a machine.
//
// URL format: GET /machines/{machine_id}
func (h *Handler) HandleGetMachine(w http.ResponseWriter, r *http.Request) {
	id, p := parseMachineID(r)
	if p != nil {
		h.writeProblem(w, r, p)
		return
	}
	record, _, p := h.machine(id, r.URL.Path)
	if p != nil {
		h.writeProblem(w, r, p)
		return
	}
	h.writeJSON(w, http.StatusOK, api.GetMachine{
		BinaryID: record.BinaryID,
		Params:   hex.EncodeToString(record.Params),
	})
}

// HandleActivate runs a named activation with the request body as input and
// returns the guest output as is. Without an activation segment the name is
// empty.
//
// URL format: POST /machines/{machine_id}/activate/{activation}
func (h *Handler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	id, p := parseMachineID(r)
	if p != nil {
		h.writeProblem(w, r, p)
		return
	}
	record, binary, p := h.machine(id, r.URL.Path)
	if p != nil {
		h.writeProblem(w, r, p)
		return
	}
	input, p := h.readBody(w, r)
	if p != nil {
		h.writeProblem(w, r, p)
		return
	}

	name := chi.URLParam(r, "activation")
	output, err := h.engine.Activate(r.Context(), binary, record.Params, name, input)
	if err != nil {
		h.writeProblem(w, r, guestProblem(err))
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(output); err != nil {
		h.log.Debug("could not write activation output", "err", err)
	}
}

// HandleMachineHTTPRedirect adds the trailing slash to a machine's http
// root so relative links in guest pages resolve under it.
//
// URL format: ANY /machines/{machine_id}/http
func (h *Handler) HandleMachineHTTPRedirect(w http.ResponseWriter, r *http.Request) {
	if _, p := parseMachineID(r); p != nil {
		h.writeProblem(w, r, p)
		return
	}
	location := r.URL.EscapedPath() + "/"
	if r.URL.RawQuery != "" {
		location += "?" + r.URL.RawQuery
	}
	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusPermanentRedirect)
}

// HandleMachineHTTP forwards a request to the machine's handle-http entry
// point with the /machines/{machine_id}/http prefix removed.
//
// URL format: ANY /machines/{machine_id}/http/...
func (h *Handler) HandleMachineHTTP(w http.ResponseWriter, r *http.Request) {
	id, p := parseMachineID(r)
	if p != nil {
		h.writeProblem(w, r, p)
		return
	}
	record, binary, p := h.machine(id, r.URL.Path)
	if p != nil {
		h.writeProblem(w, r, p)
		return
	}

	prefix := "/machines/" + chi.URLParam(r, "machine_id") + "/http"
	path := r.URL.EscapedPath()
	if len(path) >= len(prefix) {
		path = path[len(prefix):]
	}
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	h.forward(w, r, record, binary, path)
}

// machine looks up a machine and its binary.
func (h *Handler) machine(id interfaces.MachineID, path string) (interfaces.MachineRecord, *executor.CompiledBinary, *Problem) {
	record, err := h.registry.GetMachine(id)
	if err != nil {
		return interfaces.MachineRecord{}, nil, notFound(path)
	}
	binary, err := h.registry.GetBinary(record.BinaryID)
	if err != nil {
		return interfaces.MachineRecord{}, nil, notFound(path)
	}
	return record, binary, nil
}

func parseBinaryID(r *http.Request) (interfaces.BinaryID, *Problem) {
	value := chi.URLParam(r, "binary_id")
	id, err := interfaces.BinaryIDFromHex(value)
	if err != nil {
		return interfaces.BinaryID{}, invalidPathElement(value, "binary id", err)
	}
	return id, nil
}

func parseMachineID(r *http.Request) (interfaces.MachineID, *Problem) {
	value := chi.URLParam(r, "machine_id")
	id, err := interfaces.MachineIDFromHex(value)
	if err != nil {
		return interfaces.MachineID{}, invalidPathElement(value, "machine id", err)
	}
	return id, nil
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, *Problem) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		return nil, bodyProblem(err)
	}
	return body, nil
}

func (h *Handler) writeCreated(w http.ResponseWriter, status int, location string, v any) {
	w.Header().Set("Location", location)
	h.writeJSON(w, status, v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

func (h *Handler) writeProblem(w http.ResponseWriter, r *http.Request, p *Problem) {
	h.metrics.ObserveProblem(p.Status)

	level := slog.LevelDebug
	if p.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.log.Log(r.Context(), level, "HTTP response failed",
		"method", r.Method,
		"uri", r.URL.RequestURI(),
		"status", p.Status,
		"err", p.Error())

	for name, value := range p.Headers {
		w.Header().Set(name, value)
	}
	h.writeJSON(w, p.Status, p.body())
}
