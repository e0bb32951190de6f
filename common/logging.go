package common

import (
	"log/slog"
	"os"

	"github.com/google/uuid"
)

type LoggingOpts struct {
	Debug   bool
	JSON    bool
	Service string
	Version string
	// UID adds a random per-process uid attribute.
	UID bool
}

func SetupLogger(opts *LoggingOpts) (log *slog.Logger) {
	logLevel := slog.LevelInfo
	if opts.Debug {
		logLevel = slog.LevelDebug
	}

	if opts.JSON {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	} else {
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	}

	if opts.Service != "" {
		log = log.With("service", opts.Service)
	}

	if opts.Version != "" {
		log = log.With("version", opts.Version)
	}

	if opts.UID {
		log = log.With("uid", uuid.Must(uuid.NewRandom()).String())
	}

	return log
}
