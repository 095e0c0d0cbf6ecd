// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/truthqr/lib/chunkstore"
	"github.com/bureau-foundation/truthqr/lib/config"
	"github.com/bureau-foundation/truthqr/lib/version"
)

// app holds the process streams so tests can drive commands without
// touching the real ones.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// command is one subcommand of truthqr. flags registers the command's
// own flags; the shared configuration flags are added for every
// command.
type command struct {
	name    string
	summary string
	usage   string
	flags   func(*pflag.FlagSet)
	run     func(ctx context.Context, env *environment, args []string) error
}

// environment is what a command runs against: the resolved
// configuration, a logger, and the process streams.
type environment struct {
	*app
	config *config.Config
	logger *slog.Logger
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.printUsage()
		return usageError("command required")
	}
	switch args[0] {
	case "--version":
		fmt.Fprintf(a.stdout, "truthqr %s\n", version.Info())
		return nil
	case "version":
		fmt.Fprintf(a.stdout, "truthqr %s\n", version.Full())
		return nil
	case "-h", "--help", "help":
		a.printUsage()
		return nil
	}

	for _, cmd := range a.commands() {
		if cmd.name == args[0] {
			return classify(a.execute(ctx, cmd, args[1:]))
		}
	}
	return usageError("unknown command %q\n\nRun 'truthqr --help' for usage.", args[0])
}

func (a *app) execute(ctx context.Context, cmd *command, args []string) error {
	var shared sharedFlags
	flagSet := pflag.NewFlagSet("truthqr "+cmd.name, pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	if cmd.flags != nil {
		cmd.flags(flagSet)
	}
	shared.add(flagSet)

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			a.printCommandHelp(cmd, flagSet)
			return nil
		}
		return usageError("%v\n\nRun 'truthqr %s --help' for usage.", err, cmd.name)
	}

	cfg, err := shared.load()
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	logger, err := cfg.NewLogger(a.stderr)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}

	return cmd.run(ctx, &environment{app: a, config: cfg, logger: logger}, flagSet.Args())
}

// sharedFlags override individual configuration keys.
type sharedFlags struct {
	configPath string
	prefix     string
	serializer string
	transport  string
	backend    string
	sqlitePath string
	redisAddr  string
	logLevel   string
}

func (s *sharedFlags) add(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&s.configPath, "config", "", "path to config file (default: $"+config.EnvironmentVariable+", else built-in defaults)")
	flagSet.StringVar(&s.prefix, "prefix", "", "document kind (envelope prefix)")
	flagSet.StringVar(&s.serializer, "serializer", "", "document format: json, jsonc, yaml, cbor, auto")
	flagSet.StringVar(&s.transport, "transport", "", "transport codec: base64url, deflate, gzip, zstd, lz4")
	flagSet.StringVar(&s.backend, "store", "", "chunk store backend: memory, sqlite, redis")
	flagSet.StringVar(&s.sqlitePath, "sqlite-path", "", "sqlite database file")
	flagSet.StringVar(&s.redisAddr, "redis-addr", "", "redis host:port")
	flagSet.StringVar(&s.logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// load resolves the configuration file, applies flag overrides and
// validates the result.
func (s *sharedFlags) load() (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case s.configPath != "":
		cfg, err = config.LoadFile(s.configPath)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	override := func(target *string, value string) {
		if value != "" {
			*target = value
		}
	}
	override(&cfg.Envelope.Prefix, s.prefix)
	override(&cfg.Serializer.Name, s.serializer)
	override(&cfg.Transport.Name, s.transport)
	override(&cfg.Store.Backend, s.backend)
	override(&cfg.Store.SQLitePath, s.sqlitePath)
	override(&cfg.Store.RedisAddr, s.redisAddr)
	override(&cfg.Log.Level, s.logLevel)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openStore opens the configured store, bounded by the configured
// store timeout.
func (env *environment) openStore(ctx context.Context) (chunkstore.ClosableStore, error) {
	timeout, err := env.config.Store.OperationTimeout()
	if err != nil {
		return nil, err
	}
	openCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	store, err := env.config.OpenStore(openCtx, env.logger)
	if err != nil {
		return nil, err
	}
	env.logger.Debug("opened chunk store", "backend", env.config.Store.Backend)
	return store, nil
}

func (a *app) printUsage() {
	fmt.Fprintf(a.stderr, "truthqr moves documents through QR codes as framed fragment lines.\n\n")
	fmt.Fprintf(a.stderr, "Usage:\n  truthqr <command> [flags]\n\nCommands:\n")
	writer := tabwriter.NewWriter(a.stderr, 2, 0, 3, ' ', 0)
	for _, cmd := range a.commands() {
		fmt.Fprintf(writer, "  %s\t%s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintf(writer, "  version\tprint detailed version information\n")
	writer.Flush()
	fmt.Fprintf(a.stderr, "\nRun 'truthqr <command> --help' for command flags.\n")
}

func (a *app) printCommandHelp(cmd *command, flagSet *pflag.FlagSet) {
	fmt.Fprintf(a.stderr, "%s\n\nUsage:\n  %s\n", cmd.summary, cmd.usage)
	var flagHelp strings.Builder
	flagSet.SetOutput(&flagHelp)
	flagSet.PrintDefaults()
	fmt.Fprintf(a.stderr, "\nFlags:\n%s", flagHelp.String())
}
