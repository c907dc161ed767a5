// Package main is the entry point for the slotwire demo.
//
// slotwire watches directories and fans file changes out through signals:
// a logging slot, an optional Lua slot, and a stream consumer printing to
// stdout. Registry statistics can be exposed to Prometheus.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/dshills/slotwire/internal/config"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// options holds command line flags.
type options struct {
	configPath string
	logLevel   string
	metrics    string
	script     string
	recursive  bool
	paths      []string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		return 1
	}
	opts.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if err := serve(cfg, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string) (options, error) {
	var opts options
	var showVersion bool

	fs := flag.NewFlagSet("slotwire", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file (.toml, .yaml)")
	fs.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	fs.StringVar(&opts.metrics, "metrics", "", "Serve Prometheus metrics on this address")
	fs.StringVar(&opts.script, "script", "", "Lua file whose on_change function receives events")
	fs.BoolVar(&opts.recursive, "r", false, "Watch directories recursively")
	fs.BoolVar(&showVersion, "version", false, "Show version information")

	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "slotwire - file changes over signals and slots\n\n")
		fmt.Fprintf(out, "Usage: slotwire [options] [paths...]\n\n")
		fmt.Fprintf(out, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(out, "\nExamples:\n")
		fmt.Fprintf(out, "  slotwire -r ./src                 Watch a tree\n")
		fmt.Fprintf(out, "  slotwire -metrics :9090 .         Expose /metrics\n")
		fmt.Fprintf(out, "  slotwire -script hooks.lua .      Deliver events to Lua\n")
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if showVersion {
		fmt.Printf("slotwire %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		return opts, flag.ErrHelp
	}

	opts.paths = fs.Args()
	return opts, nil
}

// apply lets command line flags override the loaded configuration.
func (o options) apply(cfg *config.Config) {
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.metrics != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = o.metrics
	}
	if o.script != "" {
		cfg.Script.Path = o.script
	}
	if o.recursive {
		cfg.Watch.Recursive = true
	}
	if len(o.paths) > 0 {
		cfg.Watch.Paths = o.paths
	}
}
