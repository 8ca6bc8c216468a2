package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	_ "modernc.org/sqlite"

	"github.com/lox/qtwsa/internal/config"
	"github.com/lox/qtwsa/internal/logging"
)

type CLI struct {
	EnvFile kongdotenv.ENVFileConfig `kong:"optional,name=env-file,default='.env',help='Path to a .env file supplying environment settings.'"`
	Logging config.Logging           `embed:""`

	Serve  ServeCmd  `cmd:"" help:"Load the dataset and run the dashboard HTTP server."`
	Derive DeriveCmd `cmd:"" help:"Derive discharge for one gauge and print it."`
	Sites  SitesCmd  `cmd:"" help:"List the gauges on the site map."`
	Import ImportCmd `cmd:"" help:"Pack the dataset files into a SQLite bundle."`
	Fetch  FetchCmd  `cmd:"" help:"Mirror the dataset files from an FTP server."`
}

// runContext is bound into every command's Run method.
type runContext struct {
	ctx    context.Context
	logger *slog.Logger
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("qtwsa"),
		kong.Description("Gauge discharge derived from GRACE terrestrial water storage anomalies."),
		kong.UsageOnError(),
	)

	logger := logging.New(os.Stderr, cli.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := kctx.Run(&runContext{ctx: ctx, logger: logger})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("command failed", "command", kctx.Command(), "error", err)
		os.Exit(1)
	}
}
