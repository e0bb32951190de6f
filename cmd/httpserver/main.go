package main

import (
	"context"
	"encoding/hex"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruteri/carol-node/cmd/flags"
	"github.com/ruteri/carol-node/common"
	"github.com/ruteri/carol-node/executor"
	"github.com/ruteri/carol-node/httpserver"
	"github.com/ruteri/carol-node/kms"
	"github.com/ruteri/carol-node/metrics"
	"github.com/ruteri/carol-node/registry"
	"github.com/ruteri/carol-node/resolver"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:    "carol-node",
		Usage:   "Host WebAssembly machines behind an HTTP API",
		Version: common.Version,
		Flags:   append(flags.NodeFlags, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			var signer *kms.SimpleKMS
			var err error
			if seed := cCtx.String(flags.SigningKeySeedFlag.Name); seed != "" {
				signer, err = kms.NewSimpleKMSFromHex(seed)
			} else if path := cCtx.String(flags.SigningKeyFileFlag.Name); path != "" {
				var created bool
				signer, created, err = kms.LoadOrCreateKeyFile(path)
				if created {
					logger.Info("Generated new signing key", "path", path)
				}
			} else {
				logger.Warn("No signing key seed configured, using a random key")
				signer, err = kms.NewRandomKMS()
			}
			if err != nil {
				logger.Error("Failed to set up signing key", "err", err)
				return err
			}

			metricsSrv, err := metrics.New(common.PackageName, cCtx.String(flags.MetricsAddrFlag.Name))
			if err != nil {
				logger.Error("Failed to create metrics server", "err", err)
				return err
			}
			engineMetrics, err := metrics.NewEngineMetrics(metricsSrv.Namespace(), metricsSrv.Registerer())
			if err != nil {
				return err
			}
			httpMetrics, err := metrics.NewHTTPMetrics(metricsSrv.Namespace(), metricsSrv.Registerer())
			if err != nil {
				return err
			}

			reg := registry.New()
			if err := metrics.RegisterRegistrySizes(metricsSrv.Namespace(), metricsSrv.Registerer(), reg); err != nil {
				return err
			}

			ctx := context.Background()
			exec, err := executor.New(ctx, flags.ConfigureExecutor(cCtx), reg, signer, logger, engineMetrics)
			if err != nil {
				logger.Error("Failed to create executor", "err", err)
				return err
			}
			defer exec.Close(ctx)

			hosts, err := resolver.New(flags.ConfigureResolver(cCtx), logger)
			if err != nil {
				logger.Error("Invalid resolver configuration", "err", err)
				return err
			}

			handler := httpserver.NewHandler(reg, exec, hosts, signer, logger).WithMetrics(httpMetrics)
			server, err := httpserver.New(flags.ConfigureServer(cCtx, logger), handler, metricsSrv)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			logger.Info("Starting node",
				"base_domain", hosts.BaseDomain(),
				"public_key", hex.EncodeToString(signer.PublicKey()))
			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
