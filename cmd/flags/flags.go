package flags

import (
	"log/slog"
	"net"
	"time"

	"github.com/miekg/dns"
	"github.com/ruteri/carol-node/api"
	"github.com/ruteri/carol-node/common"
	"github.com/ruteri/carol-node/executor"
	"github.com/ruteri/carol-node/resolver"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	return common.SetupLogger(&common.LoggingOpts{
		Debug:   cCtx.Bool(LogDebugFlag.Name),
		JSON:    cCtx.Bool(LogJsonFlag.Name),
		Service: cCtx.String(LogServiceFlag.Name),
		Version: common.Version,
		UID:     cCtx.Bool(LogUidFlag.Name),
	})
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger) *api.HTTPServerConfig {
	return &api.HTTPServerConfig{
		ListenAddr:               cCtx.String(ListenAddrFlag.Name),
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             cCtx.Duration(ActivationTimeoutFlag.Name) + 30*time.Second,
		MaxBodyBytes:             cCtx.Int64(MaxBodyBytesFlag.Name),
	}
}

func ConfigureExecutor(cCtx *cli.Context) executor.Config {
	cfg := executor.DefaultConfig()
	cfg.MaxActivationDepth = cCtx.Int(MaxActivationDepthFlag.Name)
	cfg.ActivationTimeout = cCtx.Duration(ActivationTimeoutFlag.Name)
	cfg.EgressTimeout = cCtx.Duration(EgressTimeoutFlag.Name)
	cfg.MemoryLimitPages = uint32(cCtx.Uint(MemoryLimitPagesFlag.Name))
	return cfg
}

func ConfigureResolver(cCtx *cli.Context) resolver.Config {
	server := cCtx.String(DNSServerFlag.Name)
	if server == "" {
		server = systemDNSServer()
	}
	return resolver.Config{
		BaseDomain:  cCtx.String(BaseDomainFlag.Name),
		IgnoreHosts: cCtx.StringSlice(IgnoreHostFlag.Name),
		DNSServer:   server,
		Timeout:     5 * time.Second,
	}
}

// systemDNSServer returns the first nameserver of /etc/resolv.conf, falling
// back to the local stub resolver.
func systemDNSServer() string {
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(conf.Servers) == 0 {
		return "127.0.0.53:53"
	}
	return net.JoinHostPort(conf.Servers[0], conf.Port)
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8000",
	Usage: "address to listen on for API and machine traffic",
}

var BaseDomainFlag = &cli.StringFlag{
	Name:  "base-domain",
	Usage: "domain machines are served under as <machine label>.<base domain>; empty serves only the API",
}

var DNSServerFlag = &cli.StringFlag{
	Name:  "dns-server",
	Usage: "host:port of the DNS server used for CNAME lookups (default: first nameserver in /etc/resolv.conf)",
}

var IgnoreHostFlag = &cli.StringSliceFlag{
	Name:  "ignore-host",
	Usage: "host name always treated as API traffic (repeatable)",
}

var SigningKeySeedFlag = &cli.StringFlag{
	Name:    "signing-key-seed",
	EnvVars: []string{"CAROL_SIGNING_KEY_SEED"},
	Usage:   "hex-encoded seed of at least 32 bytes for the static signing key; a random key is used if empty",
}

var SigningKeyFileFlag = &cli.StringFlag{
	Name:  "signing-key-file",
	Usage: "file holding the hex-encoded BLS secret key, created with a random key if missing; ignored when --signing-key-seed is set",
}

var MaxActivationDepthFlag = &cli.IntFlag{
	Name:  "max-activation-depth",
	Value: executor.DefaultConfig().MaxActivationDepth,
	Usage: "maximum nesting of machine activations started by guests",
}

var ActivationTimeoutFlag = &cli.DurationFlag{
	Name:  "activation-timeout",
	Value: executor.DefaultConfig().ActivationTimeout,
	Usage: "upper bound on a single guest call, 0 for none",
}

var EgressTimeoutFlag = &cli.DurationFlag{
	Name:  "egress-timeout",
	Value: executor.DefaultConfig().EgressTimeout,
	Usage: "timeout of outbound HTTP requests made by guests",
}

var MemoryLimitPagesFlag = &cli.UintFlag{
	Name:  "memory-limit-pages",
	Value: uint(executor.DefaultConfig().MemoryLimitPages),
	Usage: "maximum linear memory of a guest in 64KiB pages",
}

var MaxBodyBytesFlag = &cli.Int64Flag{
	Name:  "max-body-bytes",
	Value: api.DefaultMaxBodyBytes,
	Usage: "maximum request body size",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: "carol-node",
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}

var NodeFlags = []cli.Flag{
	ListenAddrFlag,
	BaseDomainFlag,
	DNSServerFlag,
	IgnoreHostFlag,
	SigningKeySeedFlag,
	SigningKeyFileFlag,
	MaxActivationDepthFlag,
	ActivationTimeoutFlag,
	EgressTimeoutFlag,
	MemoryLimitPagesFlag,
	MaxBodyBytesFlag,
}
