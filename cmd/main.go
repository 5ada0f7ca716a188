package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/richinsley/asyncgl/app"
	"github.com/richinsley/asyncgl/logger"
	"github.com/richinsley/asyncgl/options"
	"github.com/richinsley/asyncgl/thread"
	flag "github.com/spf13/pflag"
)

var Version = ""

// configPath looks for --config ahead of the full flag parse, because the
// file has to be loaded before flags override its values.
func configPath(args []string) string {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	path := fs.StringP("config", "c", "", "")
	_ = fs.Parse(args)
	return *path
}

func newLogger(o *options.Options) *logger.Logger {
	if o.JSONLog {
		return logger.New(o.Debug)
	}
	return logger.NewConsole(o.Debug, "asyncgl", o.NoColor)
}

func run() int {
	var opts options.Options
	if err := options.Load(&opts, configPath(os.Args[1:])); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}

	help := flag.BoolP("help", "h", false, "Show help message")
	flag.StringP("config", "c", "", "Config file (default ./config.yaml or ./configs/config.yaml)")
	opts.AddFlags(flag.CommandLine)
	flag.Parse()

	if *help {
		fmt.Println("Async Rendering: two shared OpenGL contexts on separate threads")
		flag.PrintDefaults()
		return 0
	}
	if err := opts.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}

	log := newLogger(&opts)
	log.Info().Str("version", Version).Msg("Starting")
	log.Debug().Msgf("Configuration %+v", opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.New(&opts, log).Run(ctx); err != nil {
		log.Error().Err(err).Msg("Exited with error")
		return 1
	}
	log.Info().Msg("Bye")
	return 0
}

func main() {
	code := 0
	thread.Run(func() { code = run() })
	os.Exit(code)
}
