package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
)

// CLI is the command line of httpsink. Connection settings are read from the environment.
type CLI struct {
	ChunkSize string   `name:"chunk-size" default:"64KiB" help:"Size of the chunks pushed to the sink."`
	Zstd      bool     `name:"zstd" help:"Compress the stream with zstd before uploading."`
	Level     int      `name:"level" default:"3" help:"zstd compression level (1-19)."`
	Header    string   `name:"header" type:"existingfile" help:"File sent once at the start of the stream, uncompressed."`
	Location  string   `name:"location" help:"Target URI. Overrides HTTPSINK_LOCATION."`
	Verbose   bool     `name:"verbose" short:"v" help:"Enable debug logging."`
	Inputs    []string `arg:"" optional:"" name:"input" help:"Files or glob patterns streamed in order, - for stdin."`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("httpsink"),
		kong.Description("Streams its input to an HTTP resource with sequential PUT requests."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	logger := log.NewLogger()
	logger.EnableDebugLog(cli.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cli, env.NewRepository(), logger); err != nil {
		logger.Errorf("%s", err)
		stop()
		os.Exit(1)
	}
}
