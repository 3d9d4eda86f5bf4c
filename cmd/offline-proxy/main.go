// offline-proxy is a reverse proxy that keeps an application usable while its
// origin is unreachable: images are served cache-first, API reads
// stale-while-revalidate, and failed API writes are replayed later.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

var version = "dev"

var cli struct {
	Config   string `env:"OFFLINE_CONFIG" type:"path" help:"Path to the YAML config file."`
	Addr     string `help:"Listen address, overrides server.addr."`
	Upstream string `help:"Origin URL, overrides upstream.url."`
	LogLevel string `name:"log-level" help:"Log level (debug, info, warn, error), overrides log.level."`
	Version  bool   `help:"Print version and exit."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("offline-proxy"),
		kong.Description("Offline cache gateway in front of a web origin."),
	)

	if cli.Version {
		fmt.Println("offline-proxy", version)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
