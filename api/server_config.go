package api

import (
	"log/slog"
	"time"
)

// HTTPServerConfig configures the node's HTTP listener.
type HTTPServerConfig struct {
	ListenAddr string

	// MetricsAddr is where Prometheus metrics are served. Empty disables
	// the metrics listener.
	MetricsAddr string

	EnablePprof bool

	Log *slog.Logger

	// DrainDuration is how long /drain keeps reporting not-ready before
	// returning, so load balancers notice.
	DrainDuration time.Duration

	// GracefulShutdownDuration bounds waiting for in-flight requests.
	GracefulShutdownDuration time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MaxBodyBytes caps request bodies: uploaded binaries, machine params,
	// activation input and forwarded requests.
	MaxBodyBytes int64
}

// DefaultMaxBodyBytes is used when MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 64 << 20
